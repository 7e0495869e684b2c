package models

import (
	"time"
)

// Like 点赞关系。唯一索引保证同一用户对同一帖子最多一条记录，
// 并发重复插入会触发唯一约束冲突，由 toggle 逻辑按"已点赞"处理。
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  string    `gorm:"size:36;not null;index;uniqueIndex:idx_like_author_post" json:"authorId"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_like_author_post" json:"postId"`
	Post      Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
