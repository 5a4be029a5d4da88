package handler

import (
	"Orion_Tube/internal/service"
	"Orion_Tube/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChannelHandler 频道相关：订阅切换、频道主页、观看记录
type ChannelHandler interface {
	ToggleSubscription(c *gin.Context)
	GetChannelProfile(c *gin.Context)
	GetWatchHistory(c *gin.Context)
}

type channelHandler struct {
	SubscriptionService service.SubscriptionService
	Aggregator          service.ViewAggregator
}

func NewChannelHandler(subscriptionService service.SubscriptionService, aggregator service.ViewAggregator) ChannelHandler {
	return &channelHandler{SubscriptionService: subscriptionService, Aggregator: aggregator}
}

func (h *channelHandler) ToggleSubscription(c *gin.Context) {
	channelID, ok := pathID(c, "channel", "无效的频道ID")
	if !ok {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("user_id", userID).WithField("channel_id", channelID)

	subscribed, err := h.SubscriptionService.ToggleSubscription(c.Request.Context(), userID, channelID)
	if err != nil {
		logCtx.WithError(err).Error("切换订阅失败")
		sendServiceError(c, err, "切换订阅失败")
		return
	}
	logCtx.WithField("subscribed", subscribed).Info("切换订阅成功")
	c.JSON(http.StatusOK, gin.H{
		"message": "切换订阅成功",
		"data":    gin.H{"subscribed": subscribed},
	})
}

func (h *channelHandler) GetChannelProfile(c *gin.Context) {
	viewerID, ok := requireUserID(c)
	if !ok {
		return
	}
	username := c.Param("channel")
	profile, err := h.Aggregator.GetChannelProfile(c.Request.Context(), username, viewerID)
	if err != nil {
		logger.Log.WithField("username", username).WithError(err).Warn("获取频道信息失败")
		sendServiceError(c, err, "获取频道信息失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "成功获取频道信息",
		"data":    profile,
	})
}

func (h *channelHandler) GetWatchHistory(c *gin.Context) {
	viewerID, ok := requireUserID(c)
	if !ok {
		return
	}
	history, err := h.Aggregator.GetWatchHistory(c.Request.Context(), viewerID)
	if err != nil {
		logger.Log.WithField("user_id", viewerID).WithError(err).Error("获取观看记录失败")
		sendServiceError(c, err, "获取观看记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "成功获取观看记录",
		"data":    history,
	})
}
