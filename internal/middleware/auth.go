package middleware

import (
	"net/http"

	"kyoumi/internal/db"
	"kyoumi/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// LoadUser 从会话取设备身份并挂到上下文。
// 会话里只存 user_id（登录时签发的 uuid），找不到对应用户就当未登录
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")

		if id, ok := userID.(string); ok && id != "" {
			var user models.User
			if err := db.DB.First(&user, "id = ?", id).Error; err == nil {
				c.Set(CheckUserKey, &user)
			}
		}
		c.Next()
	}
}

// AuthRequired 确保已登录，未登录返回 401（纯 API，不做跳转）
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文取当前用户，未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if user, exists := c.Get(CheckUserKey); exists {
		return user.(*models.User)
	}
	return nil
}
