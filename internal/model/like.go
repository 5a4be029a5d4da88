package model

// 用户与视频的点赞关系，联合唯一索引保证一个用户对一个视频只能点赞一次
type Like struct {
	BaseModel
	UserID  uint64 `gorm:"uniqueIndex:idx_like_user_video"`
	VideoID uint64 `gorm:"uniqueIndex:idx_like_user_video;index"`
}

func (Like) TableName() string {
	return "likes"
}
