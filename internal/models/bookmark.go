package models

import (
	"time"
)

// Bookmark 收藏关系，约束同 Like
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  string    `gorm:"size:36;not null;index;uniqueIndex:idx_bookmark_author_post" json:"authorId"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_bookmark_author_post" json:"postId"`
	Post      Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
