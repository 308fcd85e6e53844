package model

// Redirect HTTP status codes served for a matched rule.
const (
	StatusMovedPermanently = 301
	StatusFound            = 302
	StatusGone             = 410
)

// RedirectReason records why a rule exists.
type RedirectReason string

const (
	ReasonMoved                     RedirectReason = "moved"
	ReasonRenamed                   RedirectReason = "renamed"
	ReasonUrlOverwritten            RedirectReason = "url_overwritten"
	ReasonUrlOverwrittenSEOMetadata RedirectReason = "url_overwritten_seo_metadata"
	ReasonManual                    RedirectReason = "manual"
	ReasonImport                    RedirectReason = "import"
)

// Redirect maps a source path or anchored regex pattern to a target.
// Exactly one of SourcePath/SourceRegex is set, and at most one of
// TargetNodeID/TargetURL.
type Redirect struct {
	BaseModel
	Key                    string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"key"`
	Culture                *string        `gorm:"type:varchar(10);index" json:"culture"`
	RootNodeID             *int           `gorm:"index" json:"rootNodeId"`
	SourcePath             *string        `gorm:"type:varchar(255);index" json:"sourcePath"`
	SourceRegex            *string        `gorm:"type:varchar(255)" json:"sourceRegex"`
	TargetNodeID           *int           `gorm:"index" json:"targetNodeId"`
	TargetRootNodeID       *int           `json:"targetRootNodeId"`
	TargetURL              *string        `gorm:"type:varchar(255)" json:"targetUrl"`
	StatusCode             int            `gorm:"not null;default:301" json:"statusCode"`
	PassThroughQueryString bool           `gorm:"not null;default:false" json:"passThroughQueryString"`
	ForceRedirect          bool           `gorm:"not null;default:false" json:"forceRedirect"`
	Notes                  string         `gorm:"type:varchar(255)" json:"notes"`
	Reason                 RedirectReason `gorm:"type:varchar(32);not null;default:'manual'" json:"reason"`
}

// TableName specifies the table name for Redirect model
func (Redirect) TableName() string {
	return "redirects"
}

// IsRegex reports whether the rule matches by pattern rather than exact path.
func (r *Redirect) IsRegex() bool {
	return r.SourceRegex != nil && *r.SourceRegex != ""
}

// Specificity ranks how narrowly a rule is scoped: culture+root > culture >
// root > wildcard. Used to tie-break multiple exact matches for one path.
func (r *Redirect) Specificity() int {
	s := 0
	if r.Culture != nil && *r.Culture != "" {
		s += 2
	}
	if r.RootNodeID != nil && *r.RootNodeID != 0 {
		s++
	}
	return s
}
