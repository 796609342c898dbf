package models

import "time"

// Post is an image + caption entry in the feed. The like count is derived
// from the likes table and never stored on the row.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageRef  string    `gorm:"column:image_ref;size:1024" json:"image_ref,omitempty"` // object store ref, written once
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
