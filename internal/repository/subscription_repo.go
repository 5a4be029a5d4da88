package repository

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/model"
	"context"

	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	// CountSubscribers 频道的订阅者数量
	CountSubscribers(ctx context.Context, channelID uint64) (int64, error)
	// CountSubscribedTo 用户订阅了多少个频道
	CountSubscribedTo(ctx context.Context, subscriberID uint64) (int64, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID uint64) (bool, error)
	// Toggle 已订阅则取消，未订阅则订阅，返回操作后的状态
	Toggle(ctx context.Context, subscriberID, channelID uint64) (bool, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) CountSubscribers(ctx context.Context, channelID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).Where("channel_id = ?", channelID).Count(&n).Error
	return n, apperr.FromDB(err, "count subscribers")
}

func (r *subscriptionRepository) CountSubscribedTo(ctx context.Context, subscriberID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).Where("subscriber_id = ?", subscriberID).Count(&n).Error
	return n, apperr.FromDB(err, "count subscriptions")
}

func (r *subscriptionRepository) IsSubscribed(ctx context.Context, subscriberID, channelID uint64) (bool, error) {
	if subscriberID == 0 {
		return false, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Count(&n).Error
	return n > 0, apperr.FromDB(err, "check subscription")
}

// Toggle 1、先尝试删除 2、没删到说明未订阅，插入一条；并发插入撞唯一索引时按已订阅处理
func (r *subscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Delete(&model.Subscription{})
	if res.Error != nil {
		return false, apperr.FromDB(res.Error, "unsubscribe")
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	sub := &model.Subscription{SubscriberID: subscriberID, ChannelID: channelID}
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		if apperr.IsDuplicateKey(err) {
			return true, nil
		}
		return false, apperr.FromDB(err, "subscribe")
	}
	return true, nil
}
