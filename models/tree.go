package models

import (
	"time"

	"gorm.io/gorm"
)

// Tree status values
const (
	TreeStatusHealthy   = "healthy"
	TreeStatusFlowering = "flowering"
	TreeStatusDiseased  = "diseased"
	TreeStatusDead      = "dead"
)

// ValidTreeStatus reports whether s is one of the enumerated statuses.
func ValidTreeStatus(s string) bool {
	switch s {
	case TreeStatusHealthy, TreeStatusFlowering, TreeStatusDiseased, TreeStatusDead:
		return true
	}
	return false
}

// Tree represents a pinned tree in the database using GORM.
// It corresponds to the 'trees' table.
type Tree struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	Species     *string    `gorm:"" json:"species,omitempty"`      // Nullable
	Description *string    `gorm:"" json:"description,omitempty"`  // Nullable
	DatePlanted *time.Time `gorm:"" json:"date_planted,omitempty"` // Nullable

	// always resolved, either from EXIF metadata or manual pin placement
	Latitude  float64 `gorm:"not null;index:idx_trees_position" json:"latitude"`
	Longitude float64 `gorm:"not null;index:idx_trees_position" json:"longitude"`
	Address   *string `gorm:"" json:"address,omitempty"` // Nullable, free text

	ImageURL   string  `gorm:"not null" json:"image_url"`
	PreviewURL *string `gorm:"" json:"preview_url,omitempty"` // Nullable

	Status string   `gorm:"not null;default:healthy" json:"status"`
	Tags   []string `gorm:"serializer:json" json:"tags"`

	// EXIF-derived fields carried over from the upload, when present
	Altitude    *float64   `gorm:"" json:"altitude,omitempty"`     // Nullable, meters
	CapturedAt  *time.Time `gorm:"" json:"captured_at,omitempty"`  // Nullable
	CameraMake  *string    `gorm:"" json:"camera_make,omitempty"`  // Nullable
	CameraModel *string    `gorm:"" json:"camera_model,omitempty"` // Nullable

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"` // For soft deletes
}

// TableName explicitly sets the table name for GORM.
func (Tree) TableName() string {
	return "trees"
}
