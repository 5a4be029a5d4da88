package main

import (
	"Orion_Tube/internal/config"
	"Orion_Tube/internal/data"
	"Orion_Tube/internal/handler"
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/repository"
	"Orion_Tube/internal/router"
	"Orion_Tube/internal/service"
	"Orion_Tube/internal/staging"
	"Orion_Tube/internal/storage"
	"Orion_Tube/pkg/logger"
	"Orion_Tube/pkg/rabbitmq"
	"Orion_Tube/pkg/redis"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/spf13/afero"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	if cfg.JWT.Secret == "" {
		logger.Log.Fatal("jwt.secret 未配置")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// gorm.Open()后可以执行gorm的简化语句，db.Debug()可以打印SQL
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Log.Fatalf("无法连接到数据库: %v", err)
	}
	logger.Log.Info("数据库连接成功")
	// db.AutoMigrate(),没有这个表就创建,没有属性列则创建列,没有约束则增加约束;不会主动删除和修改
	if err := model.AutoMigrate(db); err != nil {
		logger.Log.Fatalf("数据库迁移失败: %v", err)
	}
	logger.Log.Info("数据库迁移成功")

	// Redis是缓存和播放去重用的，连不上时降级为直接读库、每次访问都计数
	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.InitRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Log.WithError(err).Warn("无法连接到Redis，缓存已关闭")
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Log.Info("Redis连接成功")
		}
	}

	// RabbitMQ只承载清理队列，连不上时删除失败的文件只记录日志
	janitor := service.NewLogJanitor()
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Log.WithError(err).Warn("无法连接到RabbitMQ，清理任务只记录日志")
		} else {
			defer conn.Close() // 确保程序退出时关闭连接
			retry := service.RetryPolicy{Base: cfg.RabbitMQ.CleanupRetryBase, Max: cfg.RabbitMQ.CleanupRetryMax}
			if janitor, err = service.NewAMQPJanitor(conn, cfg.RabbitMQ.CleanupQueue, retry); err != nil {
				logger.Log.Fatalf("清理队列初始化失败: %v", err)
			}
			logger.Log.Info("RabbitMQ连接成功")
		}
	}

	osFs := afero.NewOsFs()
	gateway, err := storage.NewFromConfig(ctx, osFs, cfg.Storage)
	if err != nil {
		logger.Log.Fatalf("对象存储初始化失败: %v", err)
	}
	logger.Log.WithField("driver", gateway.Name()).Info("对象存储初始化成功")
	stager := staging.NewManager(osFs, cfg.Staging.Dir)

	userRepo := repository.NewUserRepository(db)
	videoRepo := repository.NewVideoRepository(db, redisClient)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	historyRepo := repository.NewWatchHistoryRepository(db)

	uow := data.NewUnitOfWork(db, videoRepo, likeRepo, commentRepo, historyRepo)

	gate := service.NewViewGate(redisClient, cfg.Views.DedupWindow)
	aggregator := service.NewViewAggregator(videoRepo, likeRepo, subRepo, historyRepo, userRepo, gate, cfg.Views.Async)
	videoService := service.NewVideoService(uow, videoRepo, stager, gateway, janitor, aggregator, cfg.Listing)
	userService := service.NewUserService(userRepo, stager, gateway, janitor, cfg.JWT)
	likeService := service.NewLikeService(videoRepo, likeRepo)
	commentService := service.NewCommentService(commentRepo, videoRepo)
	subscriptionService := service.NewSubscriptionService(subRepo, userRepo)

	routerOpts := router.Options{JWTSecret: cfg.JWT.Secret, MaxUploadSize: cfg.Server.MaxUploadSize}
	if cfg.Storage.Driver == "local" {
		routerOpts.AssetsDir = cfg.Storage.LocalDir
	}
	r := router.SetupRouter(router.Handlers{
		User:    handler.NewUserHandler(userService),
		Video:   handler.NewVideoHandler(videoService),
		Like:    handler.NewLikeHandler(likeService),
		Comment: handler.NewCommentHandler(commentService),
		Channel: handler.NewChannelHandler(subscriptionService, aggregator),
	}, routerOpts)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: r}
	go func() {
		logger.Log.Printf("服务器将在: %d端口启动", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("收到退出信号，开始关闭服务器")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("服务器关闭超时")
	}
	// 等后台的播放量、观看记录写完再关闭数据库
	aggregator.Wait()
	logger.Log.Info("服务器已退出")
}
