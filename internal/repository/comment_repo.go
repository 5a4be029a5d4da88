package repository

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/model"
	"context"

	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, commentID uint64) (*model.Comment, error)
	// 分页获取视频的评论，返回当页数据和总数
	ListByVideo(ctx context.Context, videoID uint64, offset, limit int) ([]model.Comment, int64, error)
	DeleteByVideo(ctx context.Context, videoID uint64) error

	WithTx(tx *gorm.DB) CommentRepository
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// WithTx 返回一个新的、使用事务的 commentRepository 实例
func (r *commentRepository) WithTx(tx *gorm.DB) CommentRepository {
	return &commentRepository{
		db: tx,
	}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return apperr.FromDB(r.db.WithContext(ctx).Create(comment).Error, "create comment")
}

// 利用commentID找comment，顺便Preload出评论作者
func (r *commentRepository) FindByID(ctx context.Context, commentID uint64) (*model.Comment, error) {
	var result model.Comment
	err := r.db.WithContext(ctx).Preload("User").First(&result, commentID).Error
	if err != nil {
		return nil, apperr.FromDB(err, "find comment")
	}
	return &result, nil
}

func (r *commentRepository) ListByVideo(ctx context.Context, videoID uint64, offset, limit int) ([]model.Comment, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("video_id = ?", videoID).Count(&total).Error
	if err != nil {
		return nil, 0, apperr.FromDB(err, "count comments")
	}

	var comments []model.Comment
	err = r.db.WithContext(ctx).
		Preload("User"). // 预加载评论的作者信息
		Where("video_id = ?", videoID).
		Order("created_at desc").Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, apperr.FromDB(err, "list comments")
	}
	return comments, total, nil
}

func (r *commentRepository) DeleteByVideo(ctx context.Context, videoID uint64) error {
	err := r.db.WithContext(ctx).Where("video_id = ?", videoID).Delete(&model.Comment{}).Error
	return apperr.FromDB(err, "delete video comments")
}
