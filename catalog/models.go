package catalog

import (
	"time"

	"gorm.io/datatypes"
)

// ModelRecord represents one uploaded 3D asset and its creator metadata.
type ModelRecord struct {
	ID             uint64         `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"size:100;not null" json:"name"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	Category       string         `gorm:"size:64;not null" json:"category"`
	GlbURL         string         `gorm:"size:512;not null" json:"glb_url"`
	StorageRef     *string        `gorm:"size:512" json:"storage_ref,omitempty"`
	StorageKind    string         `gorm:"size:16" json:"storage_kind,omitempty"`
	CreatorName    string         `gorm:"size:100;not null" json:"creator_name"`
	CreatorEmail   string         `gorm:"size:255;not null" json:"creator_email"`
	CreatorWebsite *string        `gorm:"size:255" json:"creator_website,omitempty"`
	OwnerID        uint64         `gorm:"not null;index" json:"owner_id"`
	Specs          datatypes.JSON `gorm:"type:json" json:"specs,omitempty"`
	UploadDate     time.Time      `gorm:"not null;index" json:"upload_date"`
	Views          int64          `gorm:"-" json:"views"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (ModelRecord) TableName() string {
	return "model_records"
}
