package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"kyoumi/internal/db"
	"kyoumi/internal/middleware"
	"kyoumi/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type LikeHandler struct{}

func NewLikeHandler() *LikeHandler {
	return &LikeHandler{}
}

// Toggle 点赞开关：有则删、无则插。
// 不包事务——并发重复请求最坏触发唯一索引冲突或空删除，两者都收敛到正确状态
func (h *LikeHandler) Toggle(c *gin.Context) {
	user := middleware.CurrentUser(c)

	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		jsonError(c, http.StatusBadRequest, "invalid post id")
		return
	}

	// 帖子必须存在且未被软删除
	var post models.Post
	if err := db.DB.Where("id = ? AND cloak = ?", postID, false).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			jsonError(c, http.StatusNotFound, "post not found")
			return
		}
		serverError(c, err)
		return
	}

	liked := false
	res := db.DB.Where("author_id = ? AND post_id = ?", user.ID, postID).Delete(&models.Like{})
	if res.Error != nil {
		serverError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		// 没删到说明当前未点赞，插入；唯一索引冲突说明并发请求抢先了，当作已点赞
		like := models.Like{AuthorID: user.ID, PostID: uint(postID)}
		if err := db.DB.Create(&like).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			serverError(c, err)
			return
		}
		liked = true
	}

	var count int64
	if err := db.DB.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": count, "likedByMe": liked})
}
