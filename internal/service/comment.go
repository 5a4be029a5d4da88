package service

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/dto"
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/repository"
	"context"
	"strings"
)

type CommentService interface {
	CreateComment(ctx context.Context, userID, videoID uint64, content string) (*model.Comment, error)
	// 分页获取一个视频的评论，page/pageSize 越界时回退到默认值
	GetComments(ctx context.Context, videoID, viewerID uint64, page, pageSize int) (*dto.CommentPage, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	videoRepo   repository.VideoRepository
}

func NewCommentService(commentRepo repository.CommentRepository, videoRepo repository.VideoRepository) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		videoRepo:   videoRepo,
	}
}

// 创建评论：1、检查视频可见 2、创建评论 3、利用评论ID再查一次，Preload出User
func (s *commentService) CreateComment(ctx context.Context, userID, videoID uint64, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	if _, err := visibleVideo(ctx, s.videoRepo, videoID, userID); err != nil {
		return nil, err
	}
	newComment := &model.Comment{
		UserID:  userID,
		VideoID: videoID,
		Content: content,
	}
	if err := s.commentRepo.Create(ctx, newComment); err != nil {
		return nil, err
	}
	return s.commentRepo.FindByID(ctx, newComment.ID)
}

func (s *commentService) GetComments(ctx context.Context, videoID, viewerID uint64, page, pageSize int) (*dto.CommentPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	if _, err := visibleVideo(ctx, s.videoRepo, videoID, viewerID); err != nil {
		return nil, err
	}
	// pageSize：每页大小。page:当前页码。offset: “跳过” 多少条记录，再开始取数据。
	offset := (page - 1) * pageSize
	comments, total, err := s.commentRepo.ListByVideo(ctx, videoID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	return dto.ToCommentPage(comments, total, page, pageSize), nil
}
