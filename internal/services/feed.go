package services

import (
	"kyoumi/internal/db"
	"kyoumi/internal/models"
	"kyoumi/internal/utils"

	"gorm.io/gorm"
)

// 列表页的默认和上限条数
const (
	DefaultFeedLimit = 30
	MaxFeedLimit     = 100
)

// FeedParams 列表查询参数。校验（limit 区间、topic 合法性）在 handler 的
// 绑定层完成，这里当作前置条件
type FeedParams struct {
	ViewerID   string
	Topic      string // models.TopicAll 表示不过滤
	Completed  *bool  // nil 表示不过滤，显式 true/false 才过滤
	Bookmarked bool   // true 时只看当前用户收藏过的
	Cursor     string // 上一页返回的游标，空串表示第一页
	Limit      int
	SortBy     string // "new" 或 "hot"
}

// FeedPost 带统计字段的帖子，likedByMe/bookmarkedByMe 相对当前用户
type FeedPost struct {
	models.Post
	Likes          int  `json:"likes"`
	Bookmarks      int  `json:"bookmarks"`
	LikedByMe      bool `json:"likedByMe"`
	BookmarkedByMe bool `json:"bookmarkedByMe"`
}

// FeedPage 一页结果。NextCursor 为 nil 表示没有下一页
type FeedPage struct {
	Data       []FeedPost `json:"data"`
	NextCursor *string    `json:"nextCursor"`
}

// 统计列的聚合表达式。点赞/收藏数和"我是否赞过/收藏过"在同一次
// 扫描里算完（CASE WHEN 条件计数），不做逐帖子查询
const (
	likeCountExpr      = "COUNT(DISTINCT likes.id)"
	bookmarkCountExpr  = "COUNT(DISTINCT bookmarks.id)"
	likedByMeExpr      = "COUNT(DISTINCT CASE WHEN likes.author_id = ? THEN likes.id END)"
	bookmarkedByMeExpr = "COUNT(DISTINCT CASE WHEN bookmarks.author_id = ? THEN bookmarks.id END)"
)

// feedRow 扫描用的行结构，布尔标记先按计数收回来再转 bool
type feedRow struct {
	models.Post
	LikeCount      int
	BookmarkCount  int
	LikedByMe      int
	BookmarkedByMe int
}

func (r feedRow) toFeedPost() FeedPost {
	return FeedPost{
		Post:           r.Post,
		Likes:          r.LikeCount,
		Bookmarks:      r.BookmarkCount,
		LikedByMe:      r.LikedByMe > 0,
		BookmarkedByMe: r.BookmarkedByMe > 0,
	}
}

// baseFeedQuery 组装公共部分：聚合列、JOIN、cloak 排除、按帖子分组。
// cloak=true 的帖子无条件排除，任何过滤组合都绕不开
func baseFeedQuery(viewerID string) *gorm.DB {
	return db.DB.Model(&models.Post{}).
		Select("posts.*, "+
			likeCountExpr+" AS like_count, "+
			bookmarkCountExpr+" AS bookmark_count, "+
			likedByMeExpr+" AS liked_by_me, "+
			bookmarkedByMeExpr+" AS bookmarked_by_me",
			viewerID, viewerID).
		Joins("LEFT JOIN likes ON likes.post_id = posts.id").
		Joins("LEFT JOIN bookmarks ON bookmarks.post_id = posts.id").
		Where("posts.cloak = ?", false).
		Group("posts.id")
}

func applyFeedFilters(query *gorm.DB, p FeedParams) *gorm.DB {
	if p.Topic != "" && p.Topic != models.TopicAll {
		query = query.Where("posts.topic = ?", p.Topic)
	}
	if p.Completed != nil {
		query = query.Where("posts.complete = ?", *p.Completed)
	}
	if p.Bookmarked {
		// 收藏过滤基于聚合结果，只能放 HAVING
		query = query.Having(bookmarkedByMeExpr+" > 0", p.ViewerID)
	}
	return query
}

// GetPosts 列表入口，按排序方式分发。limit 的精细校验在绑定层，
// 这里兜底补默认值、封顶上限，直连调用（测试、脚本）也不会拖垮查询
func GetPosts(p FeedParams) (*FeedPage, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultFeedLimit
	}
	if p.Limit > MaxFeedLimit {
		p.Limit = MaxFeedLimit
	}
	if p.SortBy == "hot" {
		return getPaginatedHotPosts(p)
	}
	return getPaginatedNewPosts(p)
}

// getPaginatedNewPosts 按发布时间倒序分页。
// 游标是上一页最后一行的 createdAt，边界条件和排序键完全一致
func getPaginatedNewPosts(p FeedParams) (*FeedPage, error) {
	query := applyFeedFilters(baseFeedQuery(p.ViewerID), p)

	if p.Cursor != "" {
		cursor, err := utils.DecodeNewCursor(p.Cursor)
		if err != nil {
			return nil, err
		}
		query = query.Where("posts.created_at < ?", cursor.CreatedAt)
	}

	var rows []feedRow
	if err := query.
		Order("posts.created_at DESC").
		Limit(p.Limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	page := buildPage(rows)
	if len(rows) == p.Limit {
		next := utils.NewCursor{CreatedAt: rows[len(rows)-1].CreatedAt}.Encode()
		page.NextCursor = &next
	}
	return page, nil
}

// getPaginatedHotPosts 按点赞数倒序、时间倒序分页。
// 边界必须是 (赞数, 时间) 的复合比较：只比赞数的话，同赞数的帖子会跨页重复或丢失
func getPaginatedHotPosts(p FeedParams) (*FeedPage, error) {
	query := applyFeedFilters(baseFeedQuery(p.ViewerID), p)

	if p.Cursor != "" {
		cursor, err := utils.DecodeHotCursor(p.Cursor)
		if err != nil {
			return nil, err
		}
		// 点赞数是聚合值，边界条件放 HAVING；整体加括号避免和其他条件的 AND 串味
		query = query.Having(
			"("+likeCountExpr+" < ? OR ("+likeCountExpr+" = ? AND posts.created_at < ?))",
			cursor.LikeCount, cursor.LikeCount, cursor.CreatedAt,
		)
	}

	var rows []feedRow
	if err := query.
		Order("like_count DESC, posts.created_at DESC").
		Limit(p.Limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	page := buildPage(rows)
	if len(rows) == p.Limit {
		last := rows[len(rows)-1]
		next := utils.HotCursor{LikeCount: last.LikeCount, CreatedAt: last.CreatedAt}.Encode()
		page.NextCursor = &next
	}
	return page, nil
}

// buildPage 把扫描行转成响应结构。不满一页（或空页）说明到底了，
// NextCursor 留 nil，由调用方按满页补上
func buildPage(rows []feedRow) *FeedPage {
	data := make([]FeedPost, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.toFeedPost())
	}
	return &FeedPage{Data: data}
}

// GetPostBySlug 按 slug 查单篇，带同样的统计字段。cloak 的帖子等同不存在
func GetPostBySlug(viewerID, slug string) (*FeedPost, error) {
	var rows []feedRow
	if err := baseFeedQuery(viewerID).
		Where("posts.slug = ?", slug).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	post := rows[0].toFeedPost()
	return &post, nil
}
