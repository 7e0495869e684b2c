package models

import (
	"encoding/json"
	"time"
)

// 帖子主题，固定五种，创建和编辑时后端都会校验
const (
	TopicPainPoint   = "pain-point"
	TopicBrownBag    = "brown-bag"
	TopicNewIdea     = "new-idea"
	TopicImprovement = "improvement"
	TopicFun         = "fun"

	// TopicAll 列表接口的哨兵值，表示不按主题过滤
	TopicAll = "all"
)

// Topics 所有合法主题
var Topics = []string{TopicPainPoint, TopicBrownBag, TopicNewIdea, TopicImprovement, TopicFun}

// ValidTopic 校验主题是否合法
func ValidTopic(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}

type Post struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	Slug     string          `gorm:"uniqueIndex;size:30;not null" json:"slug"`
	Title    string          `gorm:"size:120;not null" json:"title"`
	Content  json.RawMessage `gorm:"type:jsonb" json:"content"` // 富文本编辑器的 JSON 文档，后端只提取链接，不解析排版
	Topic    string          `gorm:"size:20;not null;index" json:"topic"`
	Complete bool            `gorm:"default:false" json:"complete"`
	// Cloak 软删除标记，一旦为 true 永久从所有列表和详情中隐藏，没有恢复路径
	Cloak     bool      `gorm:"default:false;index" json:"-"`
	AuthorID  string    `gorm:"size:36;not null;index" json:"authorId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
