package handlers

import (
	"net/http"
	"os"

	"kyoumi/internal/db"
	"kyoumi/internal/middleware"
	"kyoumi/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type loginInput struct {
	Password string `json:"password" binding:"required"`
}

// Login 用站点口令换设备身份：口令对了就建一个新 uuid 用户，
// 写进长期会话 cookie。没有用户名，一台设备一个身份
func (h *AuthHandler) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		jsonError(c, http.StatusBadRequest, "password is required")
		return
	}

	if !checkSitePassword(input.Password) {
		jsonError(c, http.StatusForbidden, "invalid password")
		return
	}

	user := models.User{ID: uuid.NewString()}
	if err := db.DB.Create(&user).Error; err != nil {
		serverError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	if err := session.Save(); err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID})
}

// Me 返回当前设备身份，未登录返回 null 而不是 401，前端据此决定跳登录页
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"id": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "admin": user.Admin})
}

// Logout 清会话。设备用户记录保留，likes/bookmarks 还挂在上面
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		serverError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// checkSitePassword 校验站点口令。优先用 SITE_PASSWORD_HASH（bcrypt），
// 本地开发可以退回明文 SITE_PASSWORD
func checkSitePassword(password string) bool {
	if hash := os.Getenv("SITE_PASSWORD_HASH"); hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	plain := os.Getenv("SITE_PASSWORD")
	return plain != "" && password == plain
}
