package handler

import (
	"Orion_Tube/internal/service"
	"Orion_Tube/internal/staging"
	"Orion_Tube/pkg/logger"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type VideoHandler interface {
	CreateVideo(c *gin.Context)
	UpdateVideo(c *gin.Context)
	DeleteVideo(c *gin.Context)
	TogglePublish(c *gin.Context)

	GetVideoByID(c *gin.Context)
	ListVideos(c *gin.Context)
	ListMyVideos(c *gin.Context)
}

type videoHandler struct {
	VideoService service.VideoService
}

func NewVideoHandler(videoService service.VideoService) VideoHandler {
	return &videoHandler{VideoService: videoService}
}

// formUpload 打开multipart中的一个文件，没有上传这个字段时返回nil
func formUpload(c *gin.Context, field string) (*staging.Upload, io.Closer, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &staging.Upload{Filename: fh.Filename, Reader: f}, f, nil
}

func closeAll(closers ...io.Closer) {
	for _, cl := range closers {
		if cl != nil {
			cl.Close()
		}
	}
}

// 创建视频：1、解析multipart中的title、description和两个文件 2、统一校验输入 3、service层暂存、上传、入库 4、返回视频摘要
func (h *videoHandler) CreateVideo(c *gin.Context) {
	authorID, ok := requireUserID(c)
	if !ok {
		return
	}
	// 蛇形命名法（日志聚合平台ELK、前端JavaScript）
	logCtx := logger.Log.WithField("author_id", authorID)

	videoFile, vc, err := formUpload(c, "videoFile")
	if err != nil {
		logCtx.WithError(err).Error("视频文件解析失败")
		sendErrorResponse(c, http.StatusBadRequest, "无效的视频文件")
		return
	}
	thumbnail, tc, err := formUpload(c, "thumbnail")
	if err != nil {
		closeAll(vc)
		logCtx.WithError(err).Error("封面文件解析失败")
		sendErrorResponse(c, http.StatusBadRequest, "无效的封面文件")
		return
	}
	defer closeAll(vc, tc)

	in, err := service.NewCreateVideoInput(authorID, c.PostForm("title"), c.PostForm("description"), videoFile, thumbnail)
	if err != nil {
		sendServiceError(c, err, "无效的参数")
		return
	}

	logCtx.Info("开始处理发布视频请求")
	video, err := h.VideoService.CreateVideo(c.Request.Context(), in)
	if err != nil {
		logCtx.WithError(err).Error("发布视频业务处理失败")
		sendServiceError(c, err, "发布视频失败")
		return
	}
	// 没有赋值，临时追加上下文，避免污染后续其他日志
	logCtx.WithField("video_id", video.ID).Info("视频发布成功")

	c.JSON(http.StatusCreated, gin.H{ // 使用201 Created状态码，更符合RESTful规范
		"message": "视频发布成功",
		"data":    video,
	})
}

// 修改视频：title、description 必填，thumbnail 可选，有新封面时替换旧封面
func (h *videoHandler) UpdateVideo(c *gin.Context) {
	videoID, ok := pathID(c, "video_id", "无效的视频ID")
	if !ok {
		return
	}
	actorID, ok := requireUserID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("user_id", actorID).WithField("video_id", videoID)

	thumbnail, tc, err := formUpload(c, "thumbnail")
	if err != nil {
		logCtx.WithError(err).Error("封面文件解析失败")
		sendErrorResponse(c, http.StatusBadRequest, "无效的封面文件")
		return
	}
	defer closeAll(tc)

	in, err := service.NewUpdateVideoInput(videoID, actorID, c.PostForm("title"), c.PostForm("description"), thumbnail)
	if err != nil {
		sendServiceError(c, err, "无效的参数")
		return
	}

	video, err := h.VideoService.UpdateVideo(c.Request.Context(), in)
	if err != nil {
		logCtx.WithError(err).Error("修改视频失败")
		sendServiceError(c, err, "修改视频失败")
		return
	}
	logCtx.Info("视频修改成功")
	c.JSON(http.StatusOK, gin.H{
		"message": "视频修改成功",
		"data":    video,
	})
}

func (h *videoHandler) DeleteVideo(c *gin.Context) {
	videoID, ok := pathID(c, "video_id", "无效的视频ID")
	if !ok {
		return
	}
	actorID, ok := requireUserID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("user_id", actorID).WithField("video_id", videoID)

	if err := h.VideoService.DeleteVideo(c.Request.Context(), videoID, actorID); err != nil {
		logCtx.WithError(err).Error("删除视频失败")
		sendServiceError(c, err, "删除视频失败")
		return
	}
	logCtx.Info("视频删除成功")
	c.JSON(http.StatusOK, gin.H{"message": "视频删除成功"})
}

func (h *videoHandler) TogglePublish(c *gin.Context) {
	videoID, ok := pathID(c, "video_id", "无效的视频ID")
	if !ok {
		return
	}
	actorID, ok := requireUserID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("user_id", actorID).WithField("video_id", videoID)

	published, err := h.VideoService.TogglePublish(c.Request.Context(), videoID, actorID)
	if err != nil {
		logCtx.WithError(err).Error("切换发布状态失败")
		sendServiceError(c, err, "切换发布状态失败")
		return
	}
	logCtx.WithField("is_published", published).Info("切换发布状态成功")
	c.JSON(http.StatusOK, gin.H{
		"message": "切换发布状态成功",
		"data":    gin.H{"is_published": published},
	})
}

// 查看视频详情：附带作者、点赞、订阅信息，同时计入播放量和观看记录
func (h *videoHandler) GetVideoByID(c *gin.Context) {
	videoID, ok := pathID(c, "video_id", "无效的视频ID")
	if !ok {
		return
	}
	viewerID, ok := requireUserID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("video_id", videoID).WithField("viewer_id", viewerID)

	view, err := h.VideoService.GetVideo(c.Request.Context(), videoID, viewerID)
	if err != nil {
		// 草稿对非作者也按不存在处理
		logCtx.WithError(err).Warn("查找视频失败")
		sendServiceError(c, err, "查找视频失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "成功获取视频",
		"data":    view,
	})
}

// optionalInt 查询参数不存在时返回nil，存在但不是整数时报错
func optionalInt(c *gin.Context, key string) (*int, error) {
	raw, exists := c.GetQuery(key)
	if !exists || raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// 公开视频列表：带 page 或 limit 时分页查询，都不带时随机抽样
func (h *videoHandler) ListVideos(c *gin.Context) {
	// 攻击溯源，用户分析，问题排查
	logCtx := logger.Log.WithField("ip", c.ClientIP())

	filter := service.ListFilter{
		Query:    c.Query("query"),
		SortBy:   c.Query("sortBy"),
		SortType: c.Query("sortType"),
	}
	if raw := c.Query("userId"); raw != "" {
		ownerID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			sendErrorResponse(c, http.StatusBadRequest, "无效的用户ID")
			return
		}
		filter.OwnerID = ownerID
	}
	var err error
	if filter.Page, err = optionalInt(c, "page"); err != nil {
		sendErrorResponse(c, http.StatusBadRequest, "无效的页码")
		return
	}
	if filter.Limit, err = optionalInt(c, "limit"); err != nil {
		sendErrorResponse(c, http.StatusBadRequest, "无效的每页数量")
		return
	}

	listing, err := h.VideoService.ListVideos(c.Request.Context(), filter)
	if err != nil {
		logCtx.WithError(err).Error("获取视频列表失败")
		sendServiceError(c, err, "获取视频列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "成功获取视频列表",
		"data":    listing.Payload(),
	})
}

// 我的视频：包含草稿
func (h *videoHandler) ListMyVideos(c *gin.Context) {
	actorID, ok := requireUserID(c)
	if !ok {
		return
	}
	videos, err := h.VideoService.ListOwnedVideos(c.Request.Context(), actorID)
	if err != nil {
		logger.Log.WithField("user_id", actorID).WithError(err).Error("获取我的视频失败")
		sendServiceError(c, err, "获取我的视频失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "成功获取我的视频",
		"data":    videos,
	})
}
