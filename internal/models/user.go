package models

import (
	"time"
)

// User 设备身份。登录时用站点口令换取一个新的 uuid，
// 之后全靠 cookie 里的会话识别，没有用户名密码体系。
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Admin     bool      `gorm:"default:false" json:"admin"` // 管理员可以编辑/完成/删除任何帖子，运维直接改库
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
