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

type BookmarkHandler struct{}

func NewBookmarkHandler() *BookmarkHandler {
	return &BookmarkHandler{}
}

// Toggle 收藏开关，语义同 LikeHandler.Toggle
func (h *BookmarkHandler) Toggle(c *gin.Context) {
	user := middleware.CurrentUser(c)

	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		jsonError(c, http.StatusBadRequest, "invalid post id")
		return
	}

	var post models.Post
	if err := db.DB.Where("id = ? AND cloak = ?", postID, false).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			jsonError(c, http.StatusNotFound, "post not found")
			return
		}
		serverError(c, err)
		return
	}

	bookmarked := false
	res := db.DB.Where("author_id = ? AND post_id = ?", user.ID, postID).Delete(&models.Bookmark{})
	if res.Error != nil {
		serverError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		bookmark := models.Bookmark{AuthorID: user.ID, PostID: uint(postID)}
		if err := db.DB.Create(&bookmark).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			serverError(c, err)
			return
		}
		bookmarked = true
	}

	var count int64
	if err := db.DB.Model(&models.Bookmark{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": count, "bookmarkedByMe": bookmarked})
}
