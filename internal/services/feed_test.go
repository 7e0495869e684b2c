package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"kyoumi/internal/db"
	"kyoumi/internal/models"
	"kyoumi/internal/utils"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 用内存 sqlite 顶替全局连接。内存库只在单个连接里可见，
// 必须把连接池压到 1
func setupTestDB(t *testing.T) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	db.DB = gdb
}

func seedUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{ID: uuid.NewString()}
	if err := db.DB.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedPost(t *testing.T, author *models.User, slug, topic string, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		Slug:      slug,
		Title:     "title " + slug,
		Content:   []byte(`{"type":"doc","content":[]}`),
		Topic:     topic,
		AuthorID:  author.ID,
		CreatedAt: createdAt,
	}
	if err := db.DB.Create(post).Error; err != nil {
		t.Fatalf("seed post %s: %v", slug, err)
	}
	return post
}

func seedLikes(t *testing.T, post *models.Post, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		liker := seedUser(t)
		if err := db.DB.Create(&models.Like{AuthorID: liker.ID, PostID: post.ID}).Error; err != nil {
			t.Fatalf("seed like on %s: %v", post.Slug, err)
		}
	}
}

// baseTime 固定基准时间，测试里所有时间戳都从它偏移，保证互不相同
var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// collectPages 从第一页开始顺着游标翻到底，返回每页内容
func collectPages(t *testing.T, p FeedParams) [][]FeedPost {
	t.Helper()
	var pages [][]FeedPost
	p.Cursor = ""
	for {
		page, err := GetPosts(p)
		if err != nil {
			t.Fatalf("GetPosts page %d: %v", len(pages)+1, err)
		}
		pages = append(pages, page.Data)
		if page.NextCursor == nil {
			return pages
		}
		if len(pages) > 20 {
			t.Fatal("pagination did not terminate")
		}
		p.Cursor = *page.NextCursor
	}
}

// assertSlugs 校验一页的 slug 顺序
func assertSlugs(t *testing.T, got []FeedPost, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("page length: got %d posts %v, want %d", len(got), slugsOf(got), len(want))
	}
	for i := range want {
		if got[i].Slug != want[i] {
			t.Errorf("position %d: got %s, want %s (page %v)", i, got[i].Slug, want[i], slugsOf(got))
		}
	}
}

func slugsOf(posts []FeedPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return out
}

func TestNewFeedPagination(t *testing.T) {
	setupTestDB(t)
	author := seedUser(t)

	// 7 篇帖子，时间戳递增；按时间倒序翻页应该是 7 6 5 | 4 3 2 | 1
	for i := 1; i <= 7; i++ {
		seedPost(t, author, fmt.Sprintf("post-%d", i), models.TopicFun, baseTime.Add(time.Duration(i)*time.Minute))
	}

	pages := collectPages(t, FeedParams{ViewerID: author.ID, Topic: models.TopicAll, Limit: 3, SortBy: "new"})
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	assertSlugs(t, pages[0], "post-7", "post-6", "post-5")
	assertSlugs(t, pages[1], "post-4", "post-3", "post-2")
	assertSlugs(t, pages[2], "post-1")

	// 跨页不重不漏
	seen := make(map[string]int)
	for _, page := range pages {
		for _, post := range page {
			seen[post.Slug]++
		}
	}
	if len(seen) != 7 {
		t.Errorf("expected 7 distinct posts across pages, got %d", len(seen))
	}
	for slug, n := range seen {
		if n != 1 {
			t.Errorf("post %s appeared %d times", slug, n)
		}
	}
}

func TestNewFeedExactPageBoundary(t *testing.T) {
	setupTestDB(t)
	author := seedUser(t)
	for i := 1; i <= 3; i++ {
		seedPost(t, author, fmt.Sprintf("post-%d", i), models.TopicFun, baseTime.Add(time.Duration(i)*time.Minute))
	}

	// 总数正好等于 limit：第一页满页带游标，第二页空页、游标为 nil
	page1, err := GetPosts(FeedParams{ViewerID: author.ID, Topic: models.TopicAll, Limit: 3, SortBy: "new"})
	if err != nil {
		t.Fatal(err)
	}
	if page1.NextCursor == nil {
		t.Fatal("full page should carry a next cursor")
	}
	page2, err := GetPosts(FeedParams{ViewerID: author.ID, Topic: models.TopicAll, Limit: 3, SortBy: "new", Cursor: *page1.NextCursor})
	if err != nil {
		t.Fatal(err)
	}
	if len(page2.Data) != 0 {
		t.Errorf("page past the end should be empty, got %v", slugsOf(page2.Data))
	}
	if page2.NextCursor != nil {
		t.Error("empty page should not carry a next cursor")
	}
}

func TestHotFeedCompoundCursor(t *testing.T) {
	setupTestDB(t)
	author := seedUser(t)

	t1 := baseTime.Add(1 * time.Minute)
	t2 := baseTime.Add(2 * time.Minute)
	t3 := baseTime.Add(3 * time.Minute)
	p1 := seedPost(t, author, "post-1", models.TopicFun, t1)
	p2 := seedPost(t, author, "post-2", models.TopicFun, t2)
	p3 := seedPost(t, author, "post-3", models.TopicFun, t3)
	seedLikes(t, p1, 5)
	seedLikes(t, p2, 5)
	seedLikes(t, p3, 10)

	// 赞数 10/5/5，同赞数按时间倒序：第一页 [post-3, post-2]
	page1, err := GetPosts(FeedParams{ViewerID: author.ID, Topic: models.TopicAll, Limit: 2, SortBy: "hot"})
	if err != nil {
		t.Fatal(err)
	}
	assertSlugs(t, page1.Data, "post-3", "post-2")
	if page1.NextCursor == nil {
		t.Fatal("full page should carry a next cursor")
	}

	// 游标记录的是最后一行的 (赞数, 时间) 复合位置
	cursor, err := utils.DecodeHotCursor(*page1.NextCursor)
	if err != nil {
		t.Fatalf("decode next cursor: %v", err)
	}
	if cursor.LikeCount != 5 {
		t.Errorf("cursor like count: got %d, want 5", cursor.LikeCount)
	}
	if !cursor.CreatedAt.Equal(t2) {
		t.Errorf("cursor timestamp: got %v, want %v", cursor.CreatedAt, t2)
	}

	// 第二页只剩同赞数但更早的 post-1，并且到底了
	page2, err := GetPosts(FeedParams{ViewerID: author.ID, Topic: models.TopicAll, Limit: 2, SortBy: "hot", Cursor: *page1.NextCursor})
	if err != nil {
		t.Fatal(err)
	}
	assertSlugs(t, page2.Data, "post-1")
	if page2.NextCursor != nil {
		t.Error("short page should not carry a next cursor")
	}
}

func TestHotFeedWalkNoDuplicates(t *testing.T) {
	setupTestDB(t)
	author := seedUser(t)

	// 赞数带大量并列，专门考验复合游标：3 3 3 1 1 0 0
	likeCounts := []int{3, 3, 3, 1, 1, 0, 0}
	for i, n := range likeCounts {
		post := seedPost(t, author, fmt.Sprintf("post-%d", i+1), models.TopicFun, baseTime.Add(time.Duration(i)*time.Minute))
		seedLikes(t, post, n)
	}

	pages := collectPages(t, FeedParams{ViewerID: author.ID, Topic: models.TopicAll, Limit: 2, SortBy: "hot"})

	var all []FeedPost
	for _, page := range pages {
		all = append(all, page...)
	}
	if len(all) != len(likeCounts) {
		t.Fatalf("got %d posts across pages, want %d: %v", len(all), len(likeCounts), slugsOf(all))
	}

	seen := make(map[string]bool)
	for i, post := range all {
		if seen[post.Slug] {
			t.Errorf("post %s appeared twice", post.Slug)
		}
		seen[post.Slug] = true
		if i > 0 {
			prev := all[i-1]
			// 全局顺序：赞数倒序，同赞数时间倒序
			if post.Likes > prev.Likes {
				t.Errorf("like order violated at %d: %s(%d) after %s(%d)", i, post.Slug, post.Likes, prev.Slug, prev.Likes)
			}
			if post.Likes == prev.Likes && post.CreatedAt.After(prev.CreatedAt) {
				t.Errorf("time tiebreak violated at %d: %s after %s", i, post.Slug, prev.Slug)
			}
		}
	}
}

func TestFeedFilters(t *testing.T) {
	setupTestDB(t)
	author := seedUser(t)
	viewer := seedUser(t)

	fun1 := seedPost(t, author, "fun-1", models.TopicFun, baseTime.Add(1*time.Minute))
	fun2 := seedPost(t, author, "fun-2", models.TopicFun, baseTime.Add(2*time.Minute))
	idea := seedPost(t, author, "idea-1", models.TopicNewIdea, baseTime.Add(3*time.Minute))
	pain := seedPost(t, author, "pain-1", models.TopicPainPoint, baseTime.Add(4*time.Minute))
	seedPost(t, author, "pain-2", models.TopicPainPoint, baseTime.Add(5*time.Minute))

	if err := db.DB.Model(fun2).Update("complete", true).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.DB.Model(pain).Update("complete", true).Error; err != nil {
		t.Fatal(err)
	}
	for _, post := range []*models.Post{fun1, fun2, idea} {
		if err := db.DB.Create(&models.Bookmark{AuthorID: viewer.ID, PostID: post.ID}).Error; err != nil {
			t.Fatal(err)
		}
	}

	boolPtr := func(b bool) *bool { return &b }

	// 主题过滤
	page, err := GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicPainPoint, SortBy: "new"})
	if err != nil {
		t.Fatal(err)
	}
	assertSlugs(t, page.Data, "pain-2", "pain-1")

	// completed 不传表示不过滤
	page, err = GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicAll, SortBy: "new"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 5 {
		t.Errorf("unfiltered feed: got %d posts, want 5", len(page.Data))
	}

	// completed=true 只剩标记完成的
	page, err = GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicAll, Completed: boolPtr(true), SortBy: "new"})
	if err != nil {
		t.Fatal(err)
	}
	assertSlugs(t, page.Data, "pain-1", "fun-2")

	// completed=false 是显式过滤，不是不过滤
	page, err = GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicAll, Completed: boolPtr(false), SortBy: "new"})
	if err != nil {
		t.Fatal(err)
	}
	assertSlugs(t, page.Data, "pain-2", "idea-1", "fun-1")

	// bookmarked 只看当前用户收藏过的
	page, err = GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicAll, Bookmarked: true, SortBy: "new"})
	if err != nil {
		t.Fatal(err)
	}
	assertSlugs(t, page.Data, "idea-1", "fun-2", "fun-1")

	// 过滤条件是合取：fun 主题 + 未完成 + 已收藏 = 只剩 fun-1
	page, err = GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicFun, Completed: boolPtr(false), Bookmarked: true, SortBy: "new"})
	if err != nil {
		t.Fatal(err)
	}
	assertSlugs(t, page.Data, "fun-1")

	// 别人的收藏不影响 viewer 的 bookmarked 过滤
	page, err = GetPosts(FeedParams{ViewerID: author.ID, Topic: models.TopicAll, Bookmarked: true, SortBy: "new"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 0 {
		t.Errorf("author has no bookmarks, got %v", slugsOf(page.Data))
	}
}

func TestCloakedPostsInvisible(t *testing.T) {
	setupTestDB(t)
	author := seedUser(t)

	visible := seedPost(t, author, "visible", models.TopicFun, baseTime.Add(1*time.Minute))
	cloaked := seedPost(t, author, "cloaked", models.TopicFun, baseTime.Add(2*time.Minute))
	seedLikes(t, cloaked, 10)
	seedLikes(t, visible, 1)
	if err := db.DB.Model(cloaked).Update("cloak", true).Error; err != nil {
		t.Fatal(err)
	}

	for _, sortBy := range []string{"new", "hot"} {
		page, err := GetPosts(FeedParams{ViewerID: author.ID, Topic: models.TopicAll, SortBy: sortBy})
		if err != nil {
			t.Fatal(err)
		}
		assertSlugs(t, page.Data, "visible")
	}

	// 详情页同样不可见
	if _, err := GetPostBySlug(author.ID, "cloaked"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("cloaked post lookup: want ErrRecordNotFound, got %v", err)
	}
	if _, err := GetPostBySlug(author.ID, "no-such-slug"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("missing post lookup: want ErrRecordNotFound, got %v", err)
	}
}

func TestViewerFlagsAndCounts(t *testing.T) {
	setupTestDB(t)
	author := seedUser(t)
	viewer := seedUser(t)
	other := seedUser(t)

	post := seedPost(t, author, "the-post", models.TopicFun, baseTime)
	// 2 赞 3 收藏，交叉验证 JOIN 扇出没把计数乘起来
	for _, u := range []*models.User{viewer, other} {
		if err := db.DB.Create(&models.Like{AuthorID: u.ID, PostID: post.ID}).Error; err != nil {
			t.Fatal(err)
		}
	}
	for _, u := range []*models.User{author, other, seedUser(t)} {
		if err := db.DB.Create(&models.Bookmark{AuthorID: u.ID, PostID: post.ID}).Error; err != nil {
			t.Fatal(err)
		}
	}

	got, err := GetPostBySlug(viewer.ID, "the-post")
	if err != nil {
		t.Fatal(err)
	}
	if got.Likes != 2 || got.Bookmarks != 3 {
		t.Errorf("counts: got likes=%d bookmarks=%d, want 2/3", got.Likes, got.Bookmarks)
	}
	if !got.LikedByMe || got.BookmarkedByMe {
		t.Errorf("viewer flags: got likedByMe=%v bookmarkedByMe=%v, want true/false", got.LikedByMe, got.BookmarkedByMe)
	}

	// 换个视角，标记要跟着变
	got, err = GetPostBySlug(author.ID, "the-post")
	if err != nil {
		t.Fatal(err)
	}
	if got.LikedByMe || !got.BookmarkedByMe {
		t.Errorf("author flags: got likedByMe=%v bookmarkedByMe=%v, want false/true", got.LikedByMe, got.BookmarkedByMe)
	}

	// 列表里的统计字段走同一条查询，抽查一条
	page, err := GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicAll, SortBy: "hot"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 1 || page.Data[0].Likes != 2 || !page.Data[0].LikedByMe {
		t.Errorf("feed stats mismatch: %+v", page.Data)
	}
}

func TestFeedLimitClamped(t *testing.T) {
	setupTestDB(t)
	author := seedUser(t)
	for i := 1; i <= MaxFeedLimit+5; i++ {
		seedPost(t, author, fmt.Sprintf("post-%d", i), models.TopicFun, baseTime.Add(time.Duration(i)*time.Second))
	}

	// 越过上限的 limit 被封顶，不会一口气捞全表
	page, err := GetPosts(FeedParams{ViewerID: author.ID, Topic: models.TopicAll, Limit: MaxFeedLimit + 50, SortBy: "new"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != MaxFeedLimit {
		t.Errorf("got %d posts, want %d", len(page.Data), MaxFeedLimit)
	}
	if page.NextCursor == nil {
		t.Error("clamped full page should carry a next cursor")
	}
}

func TestEmptyFeed(t *testing.T) {
	setupTestDB(t)
	viewer := seedUser(t)

	for _, sortBy := range []string{"new", "hot"} {
		page, err := GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicAll, SortBy: sortBy})
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Data) != 0 {
			t.Errorf("%s feed should be empty", sortBy)
		}
		if page.NextCursor != nil {
			t.Errorf("%s feed should not carry a cursor", sortBy)
		}
	}
}

func TestCursorPastEnd(t *testing.T) {
	setupTestDB(t)
	author := seedUser(t)
	seedPost(t, author, "only-post", models.TopicFun, baseTime)

	// 游标指到比所有帖子都早的位置，返回空页而不是报错
	ancient := baseTime.Add(-24 * time.Hour)
	newCursor := utils.NewCursor{CreatedAt: ancient}.Encode()
	page, err := GetPosts(FeedParams{ViewerID: author.ID, Topic: models.TopicAll, SortBy: "new", Cursor: newCursor})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 0 || page.NextCursor != nil {
		t.Errorf("new cursor past end: got %v", slugsOf(page.Data))
	}

	hotCursor := utils.HotCursor{LikeCount: 0, CreatedAt: ancient}.Encode()
	page, err = GetPosts(FeedParams{ViewerID: author.ID, Topic: models.TopicAll, SortBy: "hot", Cursor: hotCursor})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 0 || page.NextCursor != nil {
		t.Errorf("hot cursor past end: got %v", slugsOf(page.Data))
	}
}

func TestMalformedCursorRejected(t *testing.T) {
	setupTestDB(t)
	viewer := seedUser(t)

	for _, sortBy := range []string{"new", "hot"} {
		_, err := GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicAll, SortBy: sortBy, Cursor: "not-base64-json"})
		if !errors.Is(err, utils.ErrMalformedCursor) {
			t.Errorf("%s feed with bad cursor: want ErrMalformedCursor, got %v", sortBy, err)
		}
	}

	// 两种排序的游标格式不通用
	newCursor := utils.NewCursor{CreatedAt: baseTime}.Encode()
	if _, err := GetPosts(FeedParams{ViewerID: viewer.ID, Topic: models.TopicAll, SortBy: "hot", Cursor: newCursor}); !errors.Is(err, utils.ErrMalformedCursor) {
		t.Errorf("hot feed with new-shaped cursor: want ErrMalformedCursor, got %v", err)
	}
}
