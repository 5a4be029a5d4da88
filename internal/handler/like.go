package handler

import (
	"Orion_Tube/internal/service"
	"Orion_Tube/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

type LikeHandler interface {
	LikeVideo(c *gin.Context)
	UnlikeVideo(c *gin.Context)
}

type likeHandler struct {
	LikeService service.LikeService
}

func NewLikeHandler(likeService service.LikeService) LikeHandler {
	return &likeHandler{LikeService: likeService}
}

// 视频点赞：1、从URL通过:video_id获取videoID 2、从认证后的context获取userID 3、执行点赞服务
func (h *likeHandler) LikeVideo(c *gin.Context) {
	// :video_id用来定位资源(Resource)，把它放在URL路径里，用c.Param()获取，而Body承载(Payload)
	videoID, ok := pathID(c, "video_id", "无效的视频ID")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("user_id", userID).WithField("video_id", videoID)

	if err := h.LikeService.LikeVideo(c.Request.Context(), userID, videoID); err != nil {
		logCtx.WithError(err).Error("点赞失败")
		sendServiceError(c, err, "点赞失败")
		return
	}
	logCtx.Info("点赞成功")
	c.JSON(http.StatusOK, gin.H{"message": "点赞成功"})
}

// 取消点赞：没有点赞过返回400
func (h *likeHandler) UnlikeVideo(c *gin.Context) {
	videoID, ok := pathID(c, "video_id", "无效的视频ID")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("user_id", userID).WithField("video_id", videoID)

	if err := h.LikeService.UnlikeVideo(c.Request.Context(), userID, videoID); err != nil {
		logCtx.WithError(err).Error("取消点赞失败")
		sendServiceError(c, err, "取消点赞失败")
		return
	}
	logCtx.Info("取消点赞成功")
	c.JSON(http.StatusOK, gin.H{"message": "取消点赞成功"})
}
