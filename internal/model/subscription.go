package model

// Subscription SubscriberID 订阅了 ChannelID（频道就是用户本身）
type Subscription struct {
	BaseModel
	SubscriberID uint64 `gorm:"uniqueIndex:idx_sub_subscriber_channel;not null"`
	ChannelID    uint64 `gorm:"uniqueIndex:idx_sub_subscriber_channel;index;not null"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
