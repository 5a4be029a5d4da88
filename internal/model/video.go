package model

import "errors"

// PublicationState 发布状态，只有 Draft 和 Published 两种
type PublicationState string

const (
	StateDraft     PublicationState = "draft"
	StatePublished PublicationState = "published"
)

var ErrMissingAsset = errors.New("video and thumbnail assets must both be uploaded")

// VideoAsset 远端视频文件，ExternalID 是对象存储里的key
type VideoAsset struct {
	URL        string `gorm:"not null"`
	ExternalID string `gorm:"not null"`
	Format     string
}

type ThumbnailAsset struct {
	URL        string `gorm:"not null"`
	ExternalID string `gorm:"not null"`
}

type Video struct {
	BaseModel
	OwnerID     uint64   `gorm:"not null;index"` // 创建后不可修改
	Title       string   `gorm:"not null"`
	Description string   `gorm:"type:text"`
	Duration    *float64 // 秒，由上传的视频文件解析得到，可能为空

	VideoFile VideoAsset     `gorm:"embedded;embeddedPrefix:video_"`
	Thumbnail ThumbnailAsset `gorm:"embedded;embeddedPrefix:thumbnail_"`

	IsPublished bool  `gorm:"default:false;index"`
	Views       int64 `gorm:"default:0"`

	Owner User `gorm:"foreignKey:OwnerID;references:ID"`
}

func (Video) TableName() string {
	return "videos"
}

func (v *Video) State() PublicationState {
	if v.IsPublished {
		return StatePublished
	}
	return StateDraft
}

// TogglePublication Draft <-> Published，返回新的状态
func (v *Video) TogglePublication() PublicationState {
	v.IsPublished = !v.IsPublished
	return v.State()
}

func (v *Video) IsOwnedBy(userID uint64) bool {
	return v.OwnerID == userID
}

// VisibleTo 草稿只对作者可见
func (v *Video) VisibleTo(viewerID uint64) bool {
	return v.IsPublished || v.IsOwnedBy(viewerID)
}

// CheckAssets 入库前检查两个远端文件都已上传
func (v *Video) CheckAssets() error {
	if v.VideoFile.ExternalID == "" || v.Thumbnail.ExternalID == "" {
		return ErrMissingAsset
	}
	return nil
}
