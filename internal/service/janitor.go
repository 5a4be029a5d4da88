package service

import (
	"Orion_Tube/internal/storage"
	"Orion_Tube/pkg/logger"
	"Orion_Tube/pkg/metrics"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"
)

const (
	// 遵循：项目名.业务领域.实体/功能
	QueueAssetCleanup = "orion.asset_cleanup.queue"
)

// CleanupJob 一个删除失败、需要后台重试的远端文件
type CleanupJob struct {
	ExternalID string            `json:"external_id"`
	Kind       storage.AssetKind `json:"kind"`
	Attempt    int               `json:"attempt"`
}

// AssetJanitor 接收删除失败的远端文件，交给后台对账
type AssetJanitor interface {
	Enqueue(ctx context.Context, job CleanupJob) error
}

// RetryPolicy 第 attempt 次清理前的等待时间：Base, 2*Base, 4*Base ... 封顶 Max
type RetryPolicy struct {
	Base time.Duration
	Max  time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Base <= 0 {
		p.Base = 30 * time.Second
	}
	if p.Max < p.Base {
		p.Max = p.Base
	}
	return p
}

func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.MaxInterval = p.Max
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// retryQueue 每种等待时长一个延迟队列：消息在里面过期后经默认交换机死信回到清理队列
func retryQueue(queue string, delay time.Duration) (string, amqp.Table) {
	ttl := delay.Milliseconds()
	return fmt.Sprintf("%s.retry.%dms", queue, ttl), amqp.Table{
		"x-message-ttl":             ttl,
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
	}
}

type amqpJanitor struct {
	conn  *amqp.Connection
	queue string
	retry RetryPolicy
}

// NewAMQPJanitor 创建清理队列（幂等），每条消息单独开一个channel发送
func NewAMQPJanitor(conn *amqp.Connection, queue string, retry RetryPolicy) (AssetJanitor, error) {
	if queue == "" {
		queue = QueueAssetCleanup
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	// 执行完毕后，这个临时的Channel就被关闭了
	defer ch.Close()
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable: 队列持久化，RabbitMQ重启后队列还在
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return &amqpJanitor{conn: conn, queue: queue, retry: retry.normalized()}, nil
}

// Enqueue 投递到对应等待时长的延迟队列，到期后才会被消费者取到，给远端存储恢复的时间
func (j *amqpJanitor) Enqueue(ctx context.Context, job CleanupJob) error {
	ch, err := j.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	delay := j.retry.Delay(job.Attempt)
	name, args := retryQueue(j.queue, delay)
	if _, err := ch.QueueDeclare(name, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare retry queue %s: %w", name, err)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	err = ch.Publish(
		"",    // exchange默认交换机
		name,  // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // 确保消息持久化
		})
	if err != nil {
		return err
	}
	metrics.CleanupJobs.WithLabelValues("enqueued").Inc()
	logger.Log.WithField("external_id", job.ExternalID).
		WithField("attempt", job.Attempt).
		WithField("delay", delay.String()).
		Info("清理任务已投递")
	return nil
}

// logJanitor 没有配置RabbitMQ时使用，只记录日志，孤儿文件留给人工处理
type logJanitor struct{}

func NewLogJanitor() AssetJanitor {
	return logJanitor{}
}

func (logJanitor) Enqueue(ctx context.Context, job CleanupJob) error {
	metrics.CleanupJobs.WithLabelValues("logged").Inc()
	logger.Log.WithField("external_id", job.ExternalID).
		WithField("kind", job.Kind).
		Error("远端文件删除失败且没有清理队列，需人工核对")
	return nil
}

// ProcessCleanup 消费者处理一条清理任务：1、重新删除 2、失败且未超过最大次数则attempt+1重新入队 3、超过则放弃
// 返回值是本次处理的结果，用于打点和日志
func ProcessCleanup(ctx context.Context, assets AssetStore, janitor AssetJanitor, job CleanupJob, maxAttempts int) (string, error) {
	logCtx := logger.Log.WithField("external_id", job.ExternalID).WithField("kind", job.Kind).WithField("attempt", job.Attempt)

	res := assets.Delete(ctx, job.ExternalID, job.Kind)
	if res.OK() {
		logCtx.Info("远端文件清理成功")
		metrics.CleanupJobs.WithLabelValues("deleted").Inc()
		return "deleted", nil
	}
	if job.Attempt >= maxAttempts {
		logCtx.WithError(res.Err).Error("远端文件多次清理失败，放弃重试，需人工核对")
		metrics.CleanupJobs.WithLabelValues("abandoned").Inc()
		return "abandoned", nil
	}

	next := job
	next.Attempt++
	if err := janitor.Enqueue(ctx, next); err != nil {
		return "", fmt.Errorf("requeue cleanup job: %w", err)
	}
	logCtx.WithError(res.Err).Warn("远端文件清理失败，已重新入队")
	metrics.CleanupJobs.WithLabelValues("requeued").Inc()
	return "requeued", nil
}
