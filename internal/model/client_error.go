package model

import (
	"time"
)

// ClientError tracks an unmatched ("not found") request path. One record per
// normalized path; repeated misses append Occurrence rows instead of
// duplicating the record.
type ClientError struct {
	BaseModel
	Key     string `gorm:"type:varchar(36);uniqueIndex;not null" json:"key"`
	Path    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"path"`
	Ignored bool   `gorm:"not null;default:false" json:"ignored"`

	Occurrences []Occurrence `gorm:"foreignKey:ClientErrorID;constraint:OnDelete:CASCADE" json:"occurrences,omitempty"`
}

// TableName specifies the table name for ClientError model
func (ClientError) TableName() string {
	return "client_errors"
}

// Occurrence is one observed miss: when it happened and who linked to it.
// Referrer is null when the request carried no Referer header; null referrers
// are excluded from the most-common-referrer aggregate.
type Occurrence struct {
	ID            int       `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientErrorID int       `gorm:"index;not null" json:"clientErrorId"`
	Referrer      *string   `gorm:"type:varchar(255)" json:"referrer"`
	OccurredAt    time.Time `gorm:"index;not null" json:"occurredAt"`
}

// TableName specifies the table name for Occurrence model
func (Occurrence) TableName() string {
	return "client_error_occurrences"
}

// ClientErrorAggregate is a ClientError with its server-side derived
// aggregates. Aggregates are computed at query time, never materialized on
// the write path.
type ClientErrorAggregate struct {
	ID                   int        `json:"id"`
	Key                  string     `json:"key"`
	Path                 string     `json:"path"`
	Ignored              bool       `json:"ignored"`
	CreatedAt            time.Time  `json:"created_at"`
	TotalOccurrences     int64      `json:"totalOccurrences"`
	MostRecentOccurrence *time.Time `json:"mostRecentOccurrence"`
	MostCommonReferrer   *string    `json:"mostCommonReferrer"`
}

// IgnoreRule suppresses miss tracking for a path or anchored pattern.
// Exactly one of Path/Pattern is set.
type IgnoreRule struct {
	BaseModel
	Path    *string `gorm:"type:varchar(255);index" json:"path"`
	Pattern *string `gorm:"type:varchar(255)" json:"pattern"`
	Notes   string  `gorm:"type:varchar(255)" json:"notes"`
}

// TableName specifies the table name for IgnoreRule model
func (IgnoreRule) TableName() string {
	return "client_error_ignore_rules"
}
