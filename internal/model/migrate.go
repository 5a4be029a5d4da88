package model

import "gorm.io/gorm"

// AutoMigrate 没有这个表就创建，没有属性列则创建列，没有约束则增加约束；不会主动删除和修改
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Video{},
		&Like{},
		&Comment{},
		&Subscription{},
		&WatchHistory{},
	)
}
