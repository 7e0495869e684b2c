package router

import (
	"kyoumi/internal/handlers"
	"kyoumi/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Handlers
	authHandler := handlers.NewAuthHandler()
	feedHandler := handlers.NewFeedHandler()
	postHandler := handlers.NewPostHandler()
	likeHandler := handlers.NewLikeHandler()
	bookmarkHandler := handlers.NewBookmarkHandler()

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.POST("/login", authHandler.Login) // 站点口令换设备身份
	api.GET("/me", authHandler.Me)        // 当前设备身份
	api.POST("/logout", authHandler.Logout)

	// 受保护路由 (Protected Routes)
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/posts", feedHandler.List)               // 信息流（过滤/排序/游标分页）
		authorized.POST("/posts", postHandler.Create)            // 发布帖子
		authorized.GET("/posts/:slug", postHandler.Get)          // 帖子详情
		authorized.PUT("/posts/:slug", postHandler.Update)       // 编辑帖子
		authorized.POST("/posts/:slug/complete", postHandler.Complete) // 标记完成（单向）
		authorized.DELETE("/posts/:slug", postHandler.Delete)    // 软删除（cloak）
		authorized.GET("/posts/:slug/previews", postHandler.Previews) // 外链预览卡片

		authorized.POST("/like/:id", likeHandler.Toggle)         // 点赞开关
		authorized.POST("/bookmark/:id", bookmarkHandler.Toggle) // 收藏开关
	}
}
