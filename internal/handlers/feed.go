package handlers

import (
	"errors"
	"net/http"

	"kyoumi/internal/middleware"
	"kyoumi/internal/models"
	"kyoumi/internal/services"
	"kyoumi/internal/utils"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct{}

func NewFeedHandler() *FeedHandler {
	return &FeedHandler{}
}

// feedInput 列表查询参数。limit/sortBy 的合法性在绑定层卡死，topic 用
// models.ValidTopic 校验（主题清单只维护一份），feed service 只管查询本身。
// limit 必须是指针：int 零值会被 omitempty 放过，显式传 limit=0 就混进默认值了
type feedInput struct {
	Topic      string `form:"topic"`
	Completed  *bool  `form:"completed"`
	Bookmarked bool   `form:"bookmarked"`
	Cursor     string `form:"cursor"`
	Limit      *int   `form:"limit" binding:"omitempty,min=1,max=100"`
	SortBy     string `form:"sortBy" binding:"omitempty,oneof=new hot"`
}

// List 信息流接口：过滤 + 排序 + 游标分页。
// 换过滤条件时客户端要丢掉旧游标，这里不做防御（游标只是数据边界）
func (h *FeedHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input feedInput
	if err := c.ShouldBindQuery(&input); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}
	if input.Topic == "" {
		input.Topic = models.TopicAll
	}
	if input.Topic != models.TopicAll && !models.ValidTopic(input.Topic) {
		jsonError(c, http.StatusBadRequest, "invalid topic")
		return
	}
	limit := services.DefaultFeedLimit
	if input.Limit != nil {
		limit = *input.Limit
	}
	if input.SortBy == "" {
		input.SortBy = "new"
	}

	page, err := services.GetPosts(services.FeedParams{
		ViewerID:   user.ID,
		Topic:      input.Topic,
		Completed:  input.Completed,
		Bookmarked: input.Bookmarked,
		Cursor:     input.Cursor,
		Limit:      limit,
		SortBy:     input.SortBy,
	})
	if err != nil {
		if errors.Is(err, utils.ErrMalformedCursor) {
			jsonError(c, http.StatusBadRequest, "malformed cursor")
			return
		}
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
