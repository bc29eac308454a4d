package app

import (
	"newsreel_backend/docs"
	"newsreel_backend/internal/middleware"
	"newsreel_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api/v1"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	auth := a.services.auth
	api := router.Group("/api/v1")

	// 1. 读接口：可选认证
	public := api.Group("")
	public.Use(middleware.TryAuthMiddleware(auth))
	a.registerPublicRoutes(public, c)

	// 2. 写接口：强制认证
	authorized := api.Group("")
	authorized.Use(middleware.AuthMiddleware(auth))
	a.registerAuthorizedRoutes(authorized, c)
}

func (a *App) registerPublicRoutes(public *gin.RouterGroup, c *controllers) {
	// 账号
	public.POST("/signup", c.auth.Signup)
	public.POST("/login", c.auth.Login)
	public.POST("/token/refresh", c.auth.Refresh)
	public.POST("/password/reset", c.auth.RequestPasswordReset)
	public.POST("/password/reset/confirm", c.auth.ConfirmPasswordReset)

	public.GET("/users/:id", c.user.GetUser)
	public.GET("/users/:id/posts", c.user.GetUserPosts)

	public.GET("/feed", c.post.Feed)
	public.GET("/posts/:key", c.post.GetPost)
	public.GET("/posts/:key/related", c.post.Related)
	public.GET("/posts/:key/comments", c.post.Comments)

	public.GET("/comments/:id/replies", c.comment.Replies)

	public.GET("/reviews", c.review.ListReviews)
	public.GET("/reviews/:id", c.review.GetReview)
}

func (a *App) registerAuthorizedRoutes(authorized *gin.RouterGroup, c *controllers) {
	authorized.POST("/logout", c.auth.Logout)
	authorized.POST("/phone/verification", c.auth.SendPhoneVerification)
	authorized.POST("/phone/verification/confirm", c.auth.ConfirmPhoneVerification)

	authorized.PUT("/users/:id", c.user.UpdateUser)

	// 发帖
	authorized.POST("/psas", c.post.CreatePSA)
	authorized.POST("/polls", c.post.CreatePoll)
	authorized.POST("/memes", c.post.CreateMeme)
	authorized.POST("/reposts", c.post.CreateRepost)
	authorized.POST("/articles", c.post.CreateArticle)

	authorized.PUT("/posts/:key", c.post.UpdatePost)
	authorized.DELETE("/posts/:key", c.post.DeletePost)
	authorized.POST("/posts/:key/upvote", c.post.Upvote)
	authorized.POST("/posts/:key/choices/:choice_id", c.post.VoteChoice)

	authorized.POST("/comments", c.comment.CreateComment)
	authorized.DELETE("/comments/:id", c.comment.DeleteComment)

	authorized.POST("/reviews", c.review.CreateReview)
	authorized.DELETE("/reviews/:id", c.review.DeleteReview)
	authorized.POST("/reviews/:id/vote", c.review.VoteReview)
	authorized.POST("/reviews/:id/replies", c.review.Reply)
	authorized.POST("/reviews/:id/replies/vote", c.review.VoteReply)

	authorized.POST("/reports", c.report.CreateReport)

	authorized.POST("/followings/:id", c.follow.Follow)
	authorized.DELETE("/followings/:id", c.follow.Unfollow)
}
