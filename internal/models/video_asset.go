package models

import (
	"time"

	"gorm.io/gorm"
)

// VideoAsset represents an ingested marketing video
type VideoAsset struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	SourcePath      string         `gorm:"size:500;not null" json:"source_path"`
	Filename        string         `gorm:"size:255;not null" json:"filename"`
	ContentHash     string         `gorm:"uniqueIndex;size:64;not null" json:"content_hash"` // sha256 of file bytes
	SizeBytes       int64          `json:"size_bytes"`
	DurationSeconds float64        `json:"duration_seconds"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	FrameRate       float64        `json:"frame_rate"`
	Codec           string         `gorm:"size:50" json:"codec"`
	Source          string         `gorm:"size:20;default:upload" json:"source"` // upload, watch, manual
	SourceMeta      string         `gorm:"type:text" json:"source_meta,omitempty"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (VideoAsset) TableName() string { return "video_assets" }
