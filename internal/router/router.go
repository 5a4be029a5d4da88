package router

import (
	"Orion_Tube/internal/handler"
	"Orion_Tube/internal/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	User    handler.UserHandler
	Video   handler.VideoHandler
	Like    handler.LikeHandler
	Comment handler.CommentHandler
	Channel handler.ChannelHandler
}

type Options struct {
	JWTSecret     string
	MaxUploadSize int64
	// AssetsDir 不为空时以 /assets 提供本地存储的文件
	AssetsDir string
}

func SetupRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pang",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.AssetsDir != "" {
		r.Static("/assets", opts.AssetsDir)
	}

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/videos", h.Video.ListVideos)

		userGroup := apiV1.Group("/users")
		{
			userGroup.POST("/register", middleware.BodyLimit(opts.MaxUploadSize), h.User.Register)
			userGroup.POST("/login", h.User.Login)
			userGroup.POST("/refresh-token", h.User.RefreshToken)
		}

		authorized := apiV1.Group("/")
		authorized.Use(middleware.AuthMiddleware(opts.JWTSecret))
		{
			authorized.GET("/profile", h.User.GetCurrentUser)
			authorized.POST("/users/logout", h.User.Logout)
			authorized.PATCH("/users/account", h.User.UpdateAccountDetails)
			authorized.POST("/users/change-password", h.User.ChangePassword)
			authorized.GET("/history", h.Channel.GetWatchHistory)

			uploads := authorized.Group("/")
			uploads.Use(middleware.BodyLimit(opts.MaxUploadSize))
			uploads.POST("/videos", h.Video.CreateVideo)
			uploads.PATCH("/videos/:video_id", h.Video.UpdateVideo)
			uploads.PATCH("/users/avatar", h.User.UpdateAvatar)
			uploads.PATCH("/users/cover-image", h.User.UpdateCoverImage)

			authorized.GET("/videos/mine", h.Video.ListMyVideos)
			authorized.GET("/videos/:video_id", h.Video.GetVideoByID)
			authorized.DELETE("/videos/:video_id", h.Video.DeleteVideo)
			authorized.PATCH("/videos/:video_id/publish", h.Video.TogglePublish)

			authorized.POST("/videos/:video_id/like", h.Like.LikeVideo)
			authorized.DELETE("/videos/:video_id/like", h.Like.UnlikeVideo)

			authorized.GET("/videos/:video_id/comments", h.Comment.GetComments)
			authorized.POST("/videos/:video_id/comments", h.Comment.CreateCommentForVideo)

			// 同一层的通配符名字必须一致：subscribe 取频道ID，主页取用户名
			authorized.POST("/channels/:channel/subscribe", h.Channel.ToggleSubscription)
			authorized.GET("/channels/:channel", h.Channel.GetChannelProfile)
		}
	}

	return r
}
