package repository

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/model"
	"Orion_Tube/pkg/logger"
	"context"

	"gorm.io/gorm"
)

type LikeRepository interface {
	Create(ctx context.Context, like *model.Like) error
	// Delete 返回是否真的删除了一条点赞
	Delete(ctx context.Context, userID, videoID uint64) (bool, error)
	CountByVideo(ctx context.Context, videoID uint64) (int64, error)
	Exists(ctx context.Context, userID, videoID uint64) (bool, error)
	DeleteByVideo(ctx context.Context, videoID uint64) error

	WithTx(tx *gorm.DB) LikeRepository
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) WithTx(tx *gorm.DB) LikeRepository {
	return &likeRepository{db: tx}
}

// Create 重复点赞会被联合唯一索引拒绝，映射为 ErrConflict
func (r *likeRepository) Create(ctx context.Context, like *model.Like) error {
	result := r.db.WithContext(ctx).Create(like)
	if result.Error != nil {
		if !apperr.IsDuplicateKey(result.Error) {
			logger.Log.WithError(result.Error).Error("MySQL添加点赞失败")
		}
		return apperr.FromDB(result.Error, "create like")
	}
	return nil
}

func (r *likeRepository) Delete(ctx context.Context, userID, videoID uint64) (bool, error) {
	result := r.db.WithContext(ctx).Exec("DELETE FROM likes WHERE user_id = ? AND video_id = ?", userID, videoID)
	if result.Error != nil {
		logger.Log.WithError(result.Error).Error("MySQL删除点赞失败")
		return false, apperr.FromDB(result.Error, "delete like")
	}
	return result.RowsAffected > 0, nil
}

// CountByVideo SELECT count(*)，不把点赞集合整个捞出来
func (r *likeRepository) CountByVideo(ctx context.Context, videoID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("video_id = ?", videoID).Count(&n).Error
	return n, apperr.FromDB(err, "count likes")
}

func (r *likeRepository) Exists(ctx context.Context, userID, videoID uint64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Count(&n).Error
	return n > 0, apperr.FromDB(err, "check like")
}

func (r *likeRepository) DeleteByVideo(ctx context.Context, videoID uint64) error {
	err := r.db.WithContext(ctx).Exec("DELETE FROM likes WHERE video_id = ?", videoID).Error
	return apperr.FromDB(err, "delete video likes")
}
