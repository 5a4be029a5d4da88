package model

// WatchHistory 每个观众看过的视频集合，只记录是否看过，不计次数
type WatchHistory struct {
	BaseModel
	UserID  uint64 `gorm:"uniqueIndex:idx_history_user_video;not null"`
	VideoID uint64 `gorm:"uniqueIndex:idx_history_user_video;index;not null"`
}

func (WatchHistory) TableName() string {
	return "watch_histories"
}
