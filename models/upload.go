package models

import "time"

// Upload preview status values
const (
	PreviewStatusPending = "pending"
	PreviewStatusDone    = "done"
	PreviewStatusError   = "error"
)

// Upload represents a stored image asset in the database using GORM.
// It corresponds to the 'uploads' table. An upload with no tree referencing
// it is an orphaned asset; it stays listable and deletable by its owner so a
// failed record creation can be retried without re-uploading.
type Upload struct {
	ID           string `gorm:"primaryKey" json:"id"` // UUID
	OriginalPath string `gorm:"not null;unique" json:"original_path"`
	PreviewPath  *string `gorm:"" json:"preview_path,omitempty"` // Nullable
	Filename     string `gorm:"not null" json:"filename"`
	SizeBytes    int64  `gorm:"not null" json:"size_bytes"`
	MimeType     string `gorm:"not null" json:"mime_type"`

	// extraction result; latitude and longitude are set together or not at all
	HasGPS      bool       `gorm:"not null;default:false" json:"has_gps"`
	Latitude    *float64   `gorm:"" json:"latitude,omitempty"`     // Nullable
	Longitude   *float64   `gorm:"" json:"longitude,omitempty"`    // Nullable
	Altitude    *float64   `gorm:"" json:"altitude,omitempty"`     // Nullable
	CapturedAt  *time.Time `gorm:"" json:"captured_at,omitempty"`  // Nullable
	CameraMake  *string    `gorm:"" json:"camera_make,omitempty"`  // Nullable
	CameraModel *string    `gorm:"" json:"camera_model,omitempty"` // Nullable

	PreviewStatus string  `gorm:"not null;default:pending" json:"preview_status"`
	PreviewError  *string `gorm:"" json:"preview_error,omitempty"` // Nullable

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Upload) TableName() string {
	return "uploads"
}
