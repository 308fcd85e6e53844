package model

import (
	"time"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        int       `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UPtr converts an int to *int
func UPtr(i int) *int {
	return &i
}

// SPtr converts a string to *string
func SPtr(s string) *string {
	return &s
}
