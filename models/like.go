package models

import "time"

// Like marks that a user likes a post. The composite primary key is the
// uniqueness constraint: at most one row per (post, user).
type Like struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
