package model

import (
	"time"
)

// gorm自带的Model里ID是uint，这里统一成uint64；视频、点赞等都是硬删除，所以不带DeletedAt
type BaseModel struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
