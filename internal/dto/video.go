package dto

import (
	"Orion_Tube/internal/model"
	"time"
)

// OwnerInfo 作者的公开信息，不包含密码和邮箱
type OwnerInfo struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
}

type VideoFileInfo struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// VideoSummary 列表、创建、更新接口返回的视频信息
type VideoSummary struct {
	ID           uint64        `json:"id"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Duration     *float64      `json:"duration"`
	Views        int64         `json:"views"`
	IsPublished  bool          `json:"is_published"`
	VideoFile    VideoFileInfo `json:"video_file"`
	ThumbnailURL string        `json:"thumbnail"`
	Owner        OwnerInfo     `json:"owner"`
}

// ChannelOwner 视频详情里的作者，带订阅信息
type ChannelOwner struct {
	OwnerInfo
	SubscribersCount int64 `json:"subscribers_count"`
	IsSubscribed     bool  `json:"is_subscribed"`
}

// VideoView 视频详情，由聚合引擎拼装
type VideoView struct {
	VideoSummary
	Owner      ChannelOwner `json:"owner"`
	LikesCount int64        `json:"likes_count"`
	IsLiked    bool         `json:"is_liked"`
}

// VideoListing 列表接口的两种返回：分页或随机抽样，二者只有一个不为空
type VideoListing struct {
	Page   *VideoPage
	Sample *VideoSample
}

// Payload 返回真正需要序列化的那一个
func (l VideoListing) Payload() any {
	if l.Sample != nil {
		return l.Sample
	}
	return l.Page
}

type VideoPage struct {
	Docs        []VideoSummary `json:"docs"`
	TotalDocs   int64          `json:"total_docs"`
	Limit       int            `json:"limit"`
	Page        int            `json:"page"`
	TotalPages  int            `json:"total_pages"`
	HasNextPage bool           `json:"has_next_page"`
	HasPrevPage bool           `json:"has_prev_page"`
}

type VideoSample struct {
	Docs []VideoSummary `json:"docs"`
}

func ToOwnerInfo(u *model.User) OwnerInfo {
	return OwnerInfo{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Avatar:   u.Avatar,
	}
}

// ToVideoSummary 把DB模型转换为API响应模型，Owner没有被preload时只返回OwnerID
func ToVideoSummary(video *model.Video) VideoSummary {
	resp := VideoSummary{
		ID:           video.ID,
		CreatedAt:    video.CreatedAt,
		UpdatedAt:    video.UpdatedAt,
		Title:        video.Title,
		Description:  video.Description,
		Duration:     video.Duration,
		Views:        video.Views,
		IsPublished:  video.IsPublished,
		VideoFile:    VideoFileInfo{URL: video.VideoFile.URL, Format: video.VideoFile.Format},
		ThumbnailURL: video.Thumbnail.URL,
	}
	if video.Owner.ID != 0 {
		resp.Owner = ToOwnerInfo(&video.Owner)
	} else {
		resp.Owner.ID = video.OwnerID
	}
	return resp
}

func ToVideoSummaries(videos []model.Video) []VideoSummary {
	out := make([]VideoSummary, 0, len(videos))
	for i := range videos {
		out = append(out, ToVideoSummary(&videos[i]))
	}
	return out
}

// NewVideoPage 计算总页数和前后页标记
func NewVideoPage(videos []model.Video, total int64, page, limit int) *VideoPage {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &VideoPage{
		Docs:        ToVideoSummaries(videos),
		TotalDocs:   total,
		Limit:       limit,
		Page:        page,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
