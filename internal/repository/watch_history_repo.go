package repository

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WatchHistoryRepository 观看记录是集合语义，同一个视频只记一次
type WatchHistoryRepository interface {
	Add(ctx context.Context, userID, videoID uint64) error
	Exists(ctx context.Context, userID, videoID uint64) (bool, error)
	// ListVideos 用户看过且仍对他可见的视频，最近加入的在前
	ListVideos(ctx context.Context, userID uint64) ([]model.Video, error)
	DeleteByVideo(ctx context.Context, videoID uint64) error

	WithTx(tx *gorm.DB) WatchHistoryRepository
}

type watchHistoryRepository struct {
	db *gorm.DB
}

func NewWatchHistoryRepository(db *gorm.DB) WatchHistoryRepository {
	return &watchHistoryRepository{db: db}
}

func (r *watchHistoryRepository) WithTx(tx *gorm.DB) WatchHistoryRepository {
	return &watchHistoryRepository{db: tx}
}

// Add INSERT ... ON CONFLICT DO NOTHING（MySQL下为 ON DUPLICATE KEY UPDATE），重复添加是幂等的
func (r *watchHistoryRepository) Add(ctx context.Context, userID, videoID uint64) error {
	entry := &model.WatchHistory{UserID: userID, VideoID: videoID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
	return apperr.FromDB(err, "add watch history")
}

func (r *watchHistoryRepository) Exists(ctx context.Context, userID, videoID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.WatchHistory{}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Count(&n).Error
	return n > 0, apperr.FromDB(err, "check watch history")
}

func (r *watchHistoryRepository) ListVideos(ctx context.Context, userID uint64) ([]model.Video, error) {
	var videos []model.Video
	err := r.db.WithContext(ctx).
		Model(&model.Video{}).
		Select("videos.*").
		Joins("JOIN watch_histories ON watch_histories.video_id = videos.id").
		Where("watch_histories.user_id = ?", userID).
		Where("(videos.is_published = ? OR videos.owner_id = ?)", true, userID).
		Order("watch_histories.id desc").
		Preload("Owner").
		Find(&videos).Error
	if err != nil {
		return nil, apperr.FromDB(err, "list watch history")
	}
	return videos, nil
}

func (r *watchHistoryRepository) DeleteByVideo(ctx context.Context, videoID uint64) error {
	err := r.db.WithContext(ctx).Where("video_id = ?", videoID).Delete(&model.WatchHistory{}).Error
	return apperr.FromDB(err, "delete video watch history")
}
