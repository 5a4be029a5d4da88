package handler

import (
	"Orion_Tube/internal/dto"
	"Orion_Tube/internal/service"
	"Orion_Tube/pkg/logger"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CommentHandler interface {
	CreateCommentForVideo(c *gin.Context)
	GetComments(c *gin.Context)
}

type commentHandler struct {
	CommentService service.CommentService
}

func NewCommentHandler(commentService service.CommentService) CommentHandler {
	return &commentHandler{CommentService: commentService}
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// 视频评论：1、解析URL中的videoID参数 2、解析Body，进行Content格式匹配 3、获取context中的userID（jwt） 4、创建评论并返回状态
func (h *commentHandler) CreateCommentForVideo(c *gin.Context) {
	videoID, ok := pathID(c, "video_id", "无效的视频ID")
	if !ok {
		return
	}
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Log.WithError(err).Error("评论参数解析失败")
		sendErrorResponse(c, http.StatusBadRequest, "无效的参数") // 400
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// 正式进入业务前，将logger格式整理好
	logCtx := logger.Log.WithField("user_id", userID).WithField("video_id", videoID)
	logCtx.Info("开始创建评论")
	comment, err := h.CommentService.CreateComment(c.Request.Context(), userID, videoID, req.Content)
	if err != nil {
		logCtx.WithError(err).Error("创建评论失败")
		sendServiceError(c, err, "评论失败")
		return
	}
	// 业务成功，打上返回的comment的ID
	logCtx.WithField("comment_id", comment.ID).Info("评论创建成功")
	c.JSON(http.StatusCreated, gin.H{ //201
		"message": "评论成功",
		"data":    dto.ToCommentResponse(comment),
	})
}

// 获取一个视频的评论：1、提取URL中videoID参数 2、从查询参数获取分页信息，并提供默认值 3、通过service分页获取
func (h *commentHandler) GetComments(c *gin.Context) {
	videoID, ok := pathID(c, "video_id", "无效的视频ID")
	if !ok {
		return
	}
	viewerID, _ := currentUserID(c)
	// 在URL的查询参数里（?后面的部分）找page这个键，没找到就返回默认值“1”
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	comments, err := h.CommentService.GetComments(c.Request.Context(), videoID, viewerID, page, pageSize)
	if err != nil {
		logger.Log.WithField("video_id", videoID).WithError(err).Error("获取评论列表失败")
		sendServiceError(c, err, "获取评论列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "获取评论列表成功",
		"data":    comments,
	})
}
