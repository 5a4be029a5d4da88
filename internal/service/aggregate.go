package service

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/dto"
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/repository"
	"Orion_Tube/pkg/logger"
	"Orion_Tube/pkg/metrics"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ViewAggregator 读侧聚合：把视频、作者、点赞、订阅拼成前端直接可用的视图
type ViewAggregator interface {
	// GetEnrichedVideo 附带副作用：播放量+1（受去重策略约束），写入观看记录
	GetEnrichedVideo(ctx context.Context, videoID, viewerID uint64) (*dto.VideoView, error)
	GetChannelProfile(ctx context.Context, username string, viewerID uint64) (*dto.ChannelView, error)
	GetWatchHistory(ctx context.Context, viewerID uint64) ([]dto.VideoSummary, error)
}

// ViewGate 决定这一次访问是否计入播放量
type ViewGate interface {
	ShouldCount(ctx context.Context, videoID, viewerID uint64) bool
}

type countEveryView struct{}

func (countEveryView) ShouldCount(context.Context, uint64, uint64) bool { return true }

// redisViewGate 同一观众在窗口期内重复观看只计一次，SETNX video:viewed:{video}:{viewer}
type redisViewGate struct {
	rdb    *redis.Client
	window time.Duration
}

// NewViewGate window<=0 或没有Redis时每次访问都计数
func NewViewGate(rdb *redis.Client, window time.Duration) ViewGate {
	if rdb == nil || window <= 0 {
		return countEveryView{}
	}
	return &redisViewGate{rdb: rdb, window: window}
}

func (g *redisViewGate) ShouldCount(ctx context.Context, videoID, viewerID uint64) bool {
	if viewerID == 0 {
		return true
	}
	key := fmt.Sprintf("video:viewed:%d:%d", videoID, viewerID)
	ok, err := g.rdb.SetNX(ctx, key, 1, g.window).Result()
	if err != nil {
		// Redis出错时宁可多计一次
		logger.Log.WithError(err).WithField("key", key).Warn("播放去重检查失败")
		return true
	}
	return ok
}

type viewAggregator struct {
	wg sync.WaitGroup // 异步写入的播放记录

	loads singleflight.Group

	videoRepo   repository.VideoRepository
	likeRepo    repository.LikeRepository
	subRepo     repository.SubscriptionRepository
	historyRepo repository.WatchHistoryRepository
	userRepo    repository.UserRepository

	gate  ViewGate
	async bool
}

func NewViewAggregator(
	videoRepo repository.VideoRepository,
	likeRepo repository.LikeRepository,
	subRepo repository.SubscriptionRepository,
	historyRepo repository.WatchHistoryRepository,
	userRepo repository.UserRepository,
	gate ViewGate,
	async bool,
) *viewAggregator {
	if gate == nil {
		gate = countEveryView{}
	}
	return &viewAggregator{
		videoRepo:   videoRepo,
		likeRepo:    likeRepo,
		subRepo:     subRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		gate:        gate,
		async:       async,
	}
}

// loadVideo 缓存未命中时，同一时间对同一视频的查询只打一次数据库
// 共享的查询不跟随第一个调用方取消，每个调用方只按自己的ctx放弃等待
func (s *viewAggregator) loadVideo(ctx context.Context, videoID uint64) (*model.Video, error) {
	key := "get_video_" + strconv.FormatUint(videoID, 10)
	shared := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(key, func() (interface{}, error) {
		return s.videoRepo.FindByID(shared, videoID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// 共享结果是同一个指针，拷贝一份再交给调用方
		v := *res.Val.(*model.Video)
		return &v, nil
	}
}

// GetEnrichedVideo 1、加载视频，草稿对非作者表现为不存在 2、并发查询点赞数、是否点赞、订阅数、是否订阅 3、计数和观看记录
func (s *viewAggregator) GetEnrichedVideo(ctx context.Context, videoID, viewerID uint64) (*dto.VideoView, error) {
	if videoID == 0 {
		return nil, apperr.Validation("invalid video id")
	}
	video, err := s.loadVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.VisibleTo(viewerID) {
		return nil, apperr.NotFound("video")
	}

	var (
		likes, subscribers    int64
		isLiked, isSubscribed bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		likes, err = s.likeRepo.CountByVideo(gctx, video.ID)
		return err
	})
	g.Go(func() (err error) {
		isLiked, err = s.likeRepo.Exists(gctx, viewerID, video.ID)
		return err
	})
	g.Go(func() (err error) {
		subscribers, err = s.subRepo.CountSubscribers(gctx, video.OwnerID)
		return err
	})
	g.Go(func() (err error) {
		isSubscribed, err = s.subRepo.IsSubscribed(gctx, viewerID, video.OwnerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counted := s.gate.ShouldCount(ctx, video.ID, viewerID)
	metrics.VideoViews.WithLabelValues(strconv.FormatBool(counted)).Inc()
	if counted {
		video.Views++
	}
	s.recordView(ctx, video.ID, viewerID, counted)

	summary := dto.ToVideoSummary(video)
	return &dto.VideoView{
		VideoSummary: summary,
		Owner: dto.ChannelOwner{
			OwnerInfo:        summary.Owner,
			SubscribersCount: subscribers,
			IsSubscribed:     isSubscribed,
		},
		LikesCount: likes,
		IsLiked:    isLiked,
	}, nil
}

// recordView 播放量自增和观看记录并发执行；异步模式下脱离请求的ctx，失败只记日志
func (s *viewAggregator) recordView(ctx context.Context, videoID, viewerID uint64, counted bool) {
	if !s.async {
		s.applyView(ctx, videoID, viewerID, counted)
		return
	}
	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.applyView(detached, videoID, viewerID, counted)
	}()
}

func (s *viewAggregator) applyView(ctx context.Context, videoID, viewerID uint64, counted bool) {
	logCtx := logger.Log.WithField("video_id", videoID).WithField("viewer_id", viewerID)

	var g errgroup.Group
	if counted {
		g.Go(func() error {
			return s.videoRepo.IncrementViews(ctx, videoID)
		})
	}
	if viewerID != 0 {
		g.Go(func() error {
			return s.historyRepo.Add(ctx, viewerID, videoID)
		})
	}
	if err := g.Wait(); err != nil {
		logCtx.WithError(err).Error("记录播放失败")
	}
}

// Wait 等待后台的播放记录写完，停止接收请求之后调用
func (s *viewAggregator) Wait() {
	s.wg.Wait()
}

// GetChannelProfile 用户名大小写不敏感
func (s *viewAggregator) GetChannelProfile(ctx context.Context, username string, viewerID uint64) (*dto.ChannelView, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("username is required")
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	var (
		subscribers, subscribedTo int64
		isSubscribed              bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		subscribers, err = s.subRepo.CountSubscribers(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		subscribedTo, err = s.subRepo.CountSubscribedTo(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		isSubscribed, err = s.subRepo.IsSubscribed(gctx, viewerID, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dto.ToChannelView(user, subscribers, subscribedTo, isSubscribed), nil
}

func (s *viewAggregator) GetWatchHistory(ctx context.Context, viewerID uint64) ([]dto.VideoSummary, error) {
	if viewerID == 0 {
		return nil, apperr.Validation("viewer is required")
	}
	videos, err := s.historyRepo.ListVideos(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return dto.ToVideoSummaries(videos), nil
}
