package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"kyoumi/internal/db"
	"kyoumi/internal/middleware"
	"kyoumi/internal/models"
	"kyoumi/internal/services"
	"kyoumi/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PostHandler struct{}

func NewPostHandler() *PostHandler {
	return &PostHandler{}
}

type createPostInput struct {
	Title   string          `json:"title" binding:"required,max=120"`
	Topic   string          `json:"topic" binding:"required"`
	Content json.RawMessage `json:"content" binding:"required"`
}

// Create 发布帖子。slug 随机生成，撞了唯一索引就换一个重试
func (h *PostHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input createPostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}
	if !models.ValidTopic(input.Topic) {
		jsonError(c, http.StatusBadRequest, "invalid topic")
		return
	}
	if !json.Valid(input.Content) {
		jsonError(c, http.StatusBadRequest, "content must be a valid document")
		return
	}

	post := models.Post{
		Slug:     utils.NewSlug(),
		Title:    utils.CleanText(input.Title),
		Topic:    input.Topic,
		Content:  utils.SanitizeDoc(input.Content),
		AuthorID: user.ID,
	}
	if post.Title == "" {
		jsonError(c, http.StatusBadRequest, "title must not be empty")
		return
	}

	// slug 空间足够大，冲突基本只在测试灌数据时出现，重试几次就够
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = db.DB.Create(&post).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		post.ID = 0
		post.Slug = utils.NewSlug()
	}
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"slug": post.Slug})
}

// Get 按 slug 查详情，带统计字段和当前用户的点赞/收藏状态
func (h *PostHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, err := services.GetPostBySlug(user.ID, c.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			jsonError(c, http.StatusNotFound, "post not found")
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

type updatePostInput struct {
	Title   string          `json:"title" binding:"required,max=120"`
	Topic   string          `json:"topic" binding:"required"`
	Content json.RawMessage `json:"content" binding:"required"`
}

// Update 编辑帖子，作者本人或管理员
func (h *PostHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, ok := h.loadEditable(c, user)
	if !ok {
		return
	}

	var input updatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}
	if !models.ValidTopic(input.Topic) {
		jsonError(c, http.StatusBadRequest, "invalid topic")
		return
	}
	if !json.Valid(input.Content) {
		jsonError(c, http.StatusBadRequest, "content must be a valid document")
		return
	}

	post.Title = utils.CleanText(input.Title)
	post.Topic = input.Topic
	post.Content = utils.SanitizeDoc(input.Content)
	if post.Title == "" {
		jsonError(c, http.StatusBadRequest, "title must not be empty")
		return
	}

	if err := db.DB.Save(post).Error; err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slug": post.Slug})
}

// Complete 标记已完成。只能从 false 翻到 true，重复调用无副作用
func (h *PostHandler) Complete(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, ok := h.loadEditable(c, user)
	if !ok {
		return
	}

	if !post.Complete {
		if err := db.DB.Model(post).Update("complete", true).Error; err != nil {
			serverError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"complete": true})
}

// Delete 软删除：置 cloak，帖子从所有列表和详情里永久消失。
// 点赞收藏记录保留，只是再也查不到了
func (h *PostHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, ok := h.loadEditable(c, user)
	if !ok {
		return
	}

	if err := db.DB.Model(post).Update("cloak", true).Error; err != nil {
		serverError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Previews 帖子正文里外链的预览卡片
func (h *PostHandler) Previews(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, err := services.GetPostBySlug(user.ID, c.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			jsonError(c, http.StatusNotFound, "post not found")
			return
		}
		serverError(c, err)
		return
	}

	links := utils.ExtractLinks(post.Content)
	previews := services.GetPreviewService().GetPreviews(links)
	c.JSON(http.StatusOK, previews)
}

// loadEditable 按 slug 取帖子并做写权限检查（作者或管理员）。
// cloak 的帖子等同不存在，软删除不可逆
func (h *PostHandler) loadEditable(c *gin.Context, user *models.User) (*models.Post, bool) {
	var post models.Post
	err := db.DB.Where("slug = ? AND cloak = ?", c.Param("slug"), false).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			jsonError(c, http.StatusNotFound, "post not found")
		} else {
			serverError(c, err)
		}
		return nil, false
	}

	if post.AuthorID != user.ID && !user.Admin {
		jsonError(c, http.StatusForbidden, "not the author")
		return nil, false
	}
	return &post, true
}
