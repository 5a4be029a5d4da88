package data

import (
	"Orion_Tube/internal/repository"
	"context"

	"gorm.io/gorm"
)

// UnitOfWork 定义了我们事务管理器的接口
type UnitOfWork interface {
	// Execute 将一个函数包裹在数据库事务中执行。
	// 它会为这个函数提供能在事务中工作的 Repositories。
	Execute(ctx context.Context, fn func(repos *TransactionalRepositories) error) error
}

// TransactionalRepositories 持有所有需要在同一个事务中操作的 Repository。
// 删除视频时点赞、评论、观看记录和视频本身必须一起提交
type TransactionalRepositories struct {
	VideoRepo   repository.VideoRepository
	LikeRepo    repository.LikeRepository
	CommentRepo repository.CommentRepository
	HistoryRepo repository.WatchHistoryRepository
}

// db是事务的入口和管理者
type gormUnitOfWork struct {
	db          *gorm.DB
	videoRepo   repository.VideoRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
	historyRepo repository.WatchHistoryRepository
}

// NewUnitOfWork 创建一个新的、基于GORM的“工作单元”。
// 注意，它接收的是原始的、非事务的 repositories。
func NewUnitOfWork(
	db *gorm.DB,
	videoRepo repository.VideoRepository,
	likeRepo repository.LikeRepository,
	commentRepo repository.CommentRepository,
	historyRepo repository.WatchHistoryRepository,
) UnitOfWork {
	return &gormUnitOfWork{
		db:          db,
		videoRepo:   videoRepo,
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
		historyRepo: historyRepo,
	}
}

// 契约：fn func(repos *TransactionalRepositories) error
// fn 返回错误则整个事务回滚，返回nil则提交
func (u *gormUnitOfWork) Execute(ctx context.Context, fn func(repos *TransactionalRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 临时创建“一次性”的、绑定了特定事务的Repo副本
		transactionalRepos := &TransactionalRepositories{
			VideoRepo:   u.videoRepo.WithTx(tx),
			LikeRepo:    u.likeRepo.WithTx(tx),
			CommentRepo: u.commentRepo.WithTx(tx),
			HistoryRepo: u.historyRepo.WithTx(tx),
		}
		return fn(transactionalRepos)
	})
}
