package model

// ContentNode mirrors one published node of the host CMS: its current URL
// path per culture. The registry is kept in sync by the lifecycle events the
// CMS posts; it is the tracker's only view of the content tree.
type ContentNode struct {
	BaseModel
	NodeID     int    `gorm:"uniqueIndex:idx_node_culture;not null" json:"nodeId"`
	Culture    string `gorm:"type:varchar(10);uniqueIndex:idx_node_culture;not null;default:''" json:"culture"`
	RootNodeID int    `gorm:"index" json:"rootNodeId"`
	Path       string `gorm:"type:varchar(255);index;not null" json:"path"`
}

// TableName specifies the table name for ContentNode model
func (ContentNode) TableName() string {
	return "content_nodes"
}
