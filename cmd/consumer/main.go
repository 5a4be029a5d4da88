package main

import (
	"Orion_Tube/internal/config"
	"Orion_Tube/internal/service"
	"Orion_Tube/internal/storage"
	"Orion_Tube/pkg/logger"
	"Orion_Tube/pkg/rabbitmq"
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/streadway/amqp"
)

// 消费者进程：从清理队列取出删除失败的远端文件，重新删除；失败则带着attempt+1重新入队，超过上限放弃
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := storage.NewFromConfig(ctx, afero.NewOsFs(), cfg.Storage)
	if err != nil {
		logger.Log.Fatalf("消费者无法初始化对象存储: %v", err)
	}

	conn, err := rabbitmq.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Log.Fatalf("消费者无法连接到RabbitMQ: %v", err)
	}
	defer conn.Close()

	janitor, err := service.NewAMQPJanitor(conn, cfg.RabbitMQ.CleanupQueue, service.RetryPolicy{
		Base: cfg.RabbitMQ.CleanupRetryBase,
		Max:  cfg.RabbitMQ.CleanupRetryMax,
	})
	if err != nil {
		logger.Log.Fatalf("清理队列初始化失败: %v", err)
	}

	queue := cfg.RabbitMQ.CleanupQueue
	if queue == "" {
		queue = service.QueueAssetCleanup
	}
	ch, msgs, err := rabbitmq.OpenConsumer(conn, queue, 10)
	if err != nil {
		logger.Log.Fatalf("无法注册清理消费者: %v", err)
	}
	defer ch.Close()

	logger.Log.Info(" [*] 等待清理消息中. 按 CTRL+C 退出")
	consumeCleanup(ctx, msgs, gateway, janitor, cfg.RabbitMQ.CleanupAttempts)
	logger.Log.Info("消费者已退出")
}

// 清理消息消费者：1、反序列化消息，坏消息直接丢弃 2、ProcessCleanup重新删除或重新入队 3、处理完才Ack，重新入队失败时Nack让mq重投
func consumeCleanup(ctx context.Context, msgs <-chan amqp.Delivery, assets service.AssetStore, janitor service.AssetJanitor, maxAttempts int) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			// msgs不是切片，而是通道channel，连接断开时会被关闭
			if !ok {
				logger.Log.Warn("清理队列的消息通道已关闭")
				return
			}
			handleDelivery(ctx, d, assets, janitor, maxAttempts)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, assets service.AssetStore, janitor service.AssetJanitor, maxAttempts int) {
	logCtx := logger.Log.WithField("redelivered", d.Redelivered)

	var job service.CleanupJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.ExternalID == "" {
		logCtx.WithField("body", string(d.Body)).WithError(err).Error("清理消息解析失败")
		// 对于无法解析的“坏消息”，通知mq处理失败，并直接删除
		d.Nack(false, false)
		return
	}

	outcome, err := service.ProcessCleanup(ctx, assets, janitor, job, maxAttempts)
	if err != nil {
		logCtx.WithError(err).Error("处理清理消息失败，将进行重试")
		d.Nack(false, true)
		return
	}
	logCtx.WithField("outcome", outcome).Debug("清理消息处理完毕")
	d.Ack(false)
}
