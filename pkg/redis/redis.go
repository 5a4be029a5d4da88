package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// InitRedis 初始化Redis客户端，连接不上时返回错误，由调用方决定是否降级为不使用缓存
func InitRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr, //redis运行地址
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	// 如果到时间，自动关闭后台监视计时器的goroutine
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
