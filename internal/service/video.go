package service

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/config"
	"Orion_Tube/internal/data"
	"Orion_Tube/internal/dto"
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/pipeline"
	"Orion_Tube/internal/repository"
	"Orion_Tube/internal/staging"
	"Orion_Tube/internal/storage"
	"Orion_Tube/pkg/logger"
	"context"
)

type VideoService interface {
	CreateVideo(ctx context.Context, in CreateVideoInput) (*dto.VideoSummary, error)
	UpdateVideo(ctx context.Context, in UpdateVideoInput) (*dto.VideoSummary, error)
	DeleteVideo(ctx context.Context, videoID, actorID uint64) error
	TogglePublish(ctx context.Context, videoID, actorID uint64) (bool, error)

	GetVideo(ctx context.Context, videoID, viewerID uint64) (*dto.VideoView, error)
	ListVideos(ctx context.Context, filter ListFilter) (dto.VideoListing, error)
	ListOwnedVideos(ctx context.Context, actorID uint64) ([]dto.VideoSummary, error)
}

type videoService struct {
	assetPipeline
	uow        data.UnitOfWork
	videoRepo  repository.VideoRepository
	aggregator ViewAggregator
	listing    config.ListingConfig
}

func NewVideoService(
	uow data.UnitOfWork,
	videoRepo repository.VideoRepository,
	stager *staging.Manager,
	assets AssetStore,
	janitor AssetJanitor,
	aggregator ViewAggregator,
	listing config.ListingConfig,
) VideoService {
	if listing.DefaultLimit <= 0 {
		listing.DefaultLimit = 10
	}
	if listing.MaxLimit < listing.DefaultLimit {
		listing.MaxLimit = listing.DefaultLimit
	}
	if listing.SampleSize <= 0 {
		listing.SampleSize = 10
	}
	return &videoService{
		assetPipeline: newAssetPipeline(stager, assets, janitor),
		uow:           uow,
		videoRepo:     videoRepo,
		aggregator:    aggregator,
		listing:       listing,
	}
}

// CreateVideo 暂存视频 -> 暂存封面 -> 校验两个文件的类型 -> 上传视频 -> 上传封面 -> 写库。任一步失败，已上传的远端文件都会被删除，不会留下半条记录
func (s *videoService) CreateVideo(ctx context.Context, in CreateVideoInput) (*dto.VideoSummary, error) {
	logCtx := logger.Log.WithField("owner_id", in.ActorID)
	logCtx.Info("开始创建视频")

	var (
		videoFile, thumbFile *staging.Handle
		videoRef, thumbRef   *storage.AssetRef
		created              *model.Video
	)
	// 无论成功失败，本地临时文件都要删掉
	defer func() {
		s.stager.Release(videoFile)
		s.stager.Release(thumbFile)
	}()

	err := pipeline.New("create_video").
		Then(s.stageStep("stage_video", in.Video, &videoFile)).
		Then(s.stageStep("stage_thumbnail", in.Thumbnail, &thumbFile)).
		Then(s.checkStep(staged{&videoFile, storage.KindVideo}, staged{&thumbFile, storage.KindImage})).
		Then(s.uploadStep("upload_video", &videoFile, storage.KindVideo, &videoRef)).
		Then(s.uploadStep("upload_thumbnail", &thumbFile, storage.KindImage, &thumbRef)).
		Then(pipeline.Step{
			Name: "persist",
			Run: func(ctx context.Context) error {
				video := &model.Video{
					OwnerID:     in.ActorID,
					Title:       in.Title,
					Description: in.Description,
					Duration:    videoRef.DurationSeconds,
					VideoFile: model.VideoAsset{
						URL:        videoRef.URL,
						ExternalID: videoRef.ExternalID,
						Format:     videoRef.Format,
					},
					Thumbnail: model.ThumbnailAsset{
						URL:        thumbRef.URL,
						ExternalID: thumbRef.ExternalID,
					},
				}
				if err := s.videoRepo.Create(ctx, video); err != nil {
					return err
				}
				created = video
				return nil
			},
		}).
		Run(ctx)
	if err != nil {
		logCtx.WithError(err).Error("创建视频失败")
		return nil, err
	}

	logCtx.WithField("video_id", created.ID).Info("视频创建成功")
	return s.summary(ctx, created), nil
}

// summary 重新读一次带上作者信息，读失败就用手里的记录
func (s *videoService) summary(ctx context.Context, v *model.Video) *dto.VideoSummary {
	if full, err := s.videoRepo.FindByID(ctx, v.ID); err == nil {
		v = full
	}
	resp := dto.ToVideoSummary(v)
	return &resp
}

// authorize 上传之前先确认视频存在且属于操作者
func (s *videoService) authorize(ctx context.Context, videoID, actorID uint64) (*model.Video, error) {
	video, err := s.videoRepo.FindByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.IsOwnedBy(actorID) {
		return nil, apperr.Ownership("video")
	}
	return video, nil
}

// UpdateVideo [暂存、校验并上传新封面] -> 加锁写库 -> 写库成功后删除旧封面。写库失败则删除刚上传的新封面
func (s *videoService) UpdateVideo(ctx context.Context, in UpdateVideoInput) (*dto.VideoSummary, error) {
	logCtx := logger.Log.WithField("video_id", in.VideoID).WithField("actor_id", in.ActorID)
	logCtx.Info("开始更新视频")

	var (
		thumbFile *staging.Handle
		thumbRef  *storage.AssetRef
		previous  model.ThumbnailAsset
		updated   *model.Video
	)
	defer func() { s.stager.Release(thumbFile) }()

	saga := pipeline.New("update_video").Then(pipeline.Step{
		Name: "authorize",
		Run: func(ctx context.Context) error {
			_, err := s.authorize(ctx, in.VideoID, in.ActorID)
			return err
		},
	})
	if in.Thumbnail != nil {
		saga.Then(s.stageStep("stage_thumbnail", *in.Thumbnail, &thumbFile)).
			Then(s.checkStep(staged{&thumbFile, storage.KindImage})).
			Then(s.uploadStep("upload_thumbnail", &thumbFile, storage.KindImage, &thumbRef))
	}
	saga.Then(pipeline.Step{
		Name: "persist",
		Run: func(ctx context.Context) error {
			err := s.uow.Execute(ctx, func(repos *data.TransactionalRepositories) error {
				video, err := repos.VideoRepo.FindByIDForUpdate(ctx, in.VideoID)
				if err != nil {
					return err
				}
				// 加锁后再检查一次，防止上传期间所有权被改
				if !video.IsOwnedBy(in.ActorID) {
					return apperr.Ownership("video")
				}
				previous = video.Thumbnail
				video.Title = in.Title
				video.Description = in.Description
				if thumbRef != nil {
					video.Thumbnail = model.ThumbnailAsset{URL: thumbRef.URL, ExternalID: thumbRef.ExternalID}
				}
				if err := repos.VideoRepo.Save(ctx, video); err != nil {
					return err
				}
				updated = video
				return nil
			})
			s.videoRepo.InvalidateCache(ctx, in.VideoID)
			return err
		},
	})

	if err := saga.Run(ctx); err != nil {
		logCtx.WithError(err).Error("更新视频失败")
		return nil, err
	}

	// 新封面已经落库，旧封面最后删
	if thumbRef != nil && previous.ExternalID != thumbRef.ExternalID {
		s.discard(context.WithoutCancel(ctx), previous.ExternalID, storage.KindImage)
	}
	logCtx.Info("视频更新成功")
	return s.summary(ctx, updated), nil
}

// DeleteVideo 1、一个事务里删除点赞、评论、观看记录和视频本身 2、提交后尽力删除两个远端文件，失败进入清理队列，不阻塞删除
func (s *videoService) DeleteVideo(ctx context.Context, videoID, actorID uint64) error {
	if videoID == 0 {
		return apperr.Validation("invalid video id")
	}
	logCtx := logger.Log.WithField("video_id", videoID).WithField("actor_id", actorID)
	logCtx.Info("开始删除视频")

	var deleted *model.Video
	err := s.uow.Execute(ctx, func(repos *data.TransactionalRepositories) error {
		video, err := repos.VideoRepo.FindByIDForUpdate(ctx, videoID)
		if err != nil {
			return err
		}
		if !video.IsOwnedBy(actorID) {
			return apperr.Ownership("video")
		}
		if err := repos.LikeRepo.DeleteByVideo(ctx, videoID); err != nil {
			return err
		}
		if err := repos.CommentRepo.DeleteByVideo(ctx, videoID); err != nil {
			return err
		}
		if err := repos.HistoryRepo.DeleteByVideo(ctx, videoID); err != nil {
			return err
		}
		if err := repos.VideoRepo.Delete(ctx, videoID); err != nil {
			return err
		}
		deleted = video
		return nil
	})
	if err != nil {
		logCtx.WithError(err).Warn("删除视频失败")
		return err
	}
	s.videoRepo.InvalidateCache(ctx, videoID)

	// 客户端断开也要继续清理远端文件
	cleanupCtx := context.WithoutCancel(ctx)
	s.discard(cleanupCtx, deleted.VideoFile.ExternalID, storage.KindVideo)
	s.discard(cleanupCtx, deleted.Thumbnail.ExternalID, storage.KindImage)

	logCtx.Info("视频删除成功")
	return nil
}

// TogglePublish 草稿和发布互相切换，返回切换后是否已发布
func (s *videoService) TogglePublish(ctx context.Context, videoID, actorID uint64) (bool, error) {
	if videoID == 0 {
		return false, apperr.Validation("invalid video id")
	}
	var published bool
	err := s.uow.Execute(ctx, func(repos *data.TransactionalRepositories) error {
		video, err := repos.VideoRepo.FindByIDForUpdate(ctx, videoID)
		if err != nil {
			return err
		}
		if !video.IsOwnedBy(actorID) {
			return apperr.Ownership("video")
		}
		published = video.TogglePublication() == model.StatePublished
		return repos.VideoRepo.Save(ctx, video)
	})
	if err != nil {
		return false, err
	}
	s.videoRepo.InvalidateCache(ctx, videoID)
	logger.Log.WithField("video_id", videoID).WithField("published", published).Info("视频发布状态已切换")
	return published, nil
}

func (s *videoService) GetVideo(ctx context.Context, videoID, viewerID uint64) (*dto.VideoView, error) {
	return s.aggregator.GetEnrichedVideo(ctx, videoID, viewerID)
}

// ListVideos 没有page和limit时随机抽样，否则分页；两种模式都只返回已发布的视频
func (s *videoService) ListVideos(ctx context.Context, filter ListFilter) (dto.VideoListing, error) {
	q, page, limit, err := filter.toQuery(s.listing.DefaultLimit, s.listing.MaxLimit)
	if err != nil {
		return dto.VideoListing{}, err
	}

	if filter.sampleMode() {
		videos, err := s.videoRepo.Sample(ctx, q, s.listing.SampleSize)
		if err != nil {
			return dto.VideoListing{}, err
		}
		return dto.VideoListing{Sample: &dto.VideoSample{Docs: dto.ToVideoSummaries(videos)}}, nil
	}

	videos, total, err := s.videoRepo.List(ctx, q)
	if err != nil {
		return dto.VideoListing{}, err
	}
	return dto.VideoListing{Page: dto.NewVideoPage(videos, total, page, limit)}, nil
}

func (s *videoService) ListOwnedVideos(ctx context.Context, actorID uint64) ([]dto.VideoSummary, error) {
	if actorID == 0 {
		return nil, apperr.Validation("actor is required")
	}
	videos, err := s.videoRepo.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return dto.ToVideoSummaries(videos), nil
}
