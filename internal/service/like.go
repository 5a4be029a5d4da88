package service

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/repository"
	"context"
)

type LikeService interface {
	LikeVideo(ctx context.Context, userID, videoID uint64) error
	UnlikeVideo(ctx context.Context, userID, videoID uint64) error
}

type likeService struct {
	videoRepo repository.VideoRepository
	likeRepo  repository.LikeRepository
}

func NewLikeService(videoRepo repository.VideoRepository, likeRepo repository.LikeRepository) LikeService {
	return &likeService{
		videoRepo: videoRepo,
		likeRepo:  likeRepo,
	}
}

// visibleVideo 视频不存在或是别人的草稿都按不存在处理
func visibleVideo(ctx context.Context, repo repository.VideoRepository, videoID, viewerID uint64) (*model.Video, error) {
	video, err := repo.FindByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.VisibleTo(viewerID) {
		return nil, apperr.NotFound("video")
	}
	return video, nil
}

// 点赞视频：1、检查视频是否存在 2、写入点赞，重复点赞由唯一索引拒绝
func (s *likeService) LikeVideo(ctx context.Context, userID, videoID uint64) error {
	if _, err := visibleVideo(ctx, s.videoRepo, videoID, userID); err != nil {
		return err
	}
	return s.likeRepo.Create(ctx, &model.Like{UserID: userID, VideoID: videoID})
}

// 取消点赞：1、检查视频是否存在 2、删除点赞，没有点赞过返回 ErrValidation
func (s *likeService) UnlikeVideo(ctx context.Context, userID, videoID uint64) error {
	if _, err := visibleVideo(ctx, s.videoRepo, videoID, userID); err != nil {
		return err
	}
	removed, err := s.likeRepo.Delete(ctx, userID, videoID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.Validation("video is not liked")
	}
	return nil
}
