// internal/models/models.go
package models

import (
	"time"
)

// Member is a registered account. Email is unique.
type Member struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Cut is one stored analysis outcome. MemberID is the owner's email or the
// anonymous sentinel; it is not a foreign key.
type Cut struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	DetectedPart  *string   `json:"detectedPart"`
	DetectedGrade *string   `json:"detectedGrade"`
	Insight       string    `gorm:"type:text;not null" json:"insight"`
	FileName      string    `json:"fileName"`
	MemberID      string    `gorm:"index" json:"memberId"`
	ImageKey      string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}
