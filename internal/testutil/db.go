// Package testutil 测试用的数据库和种子数据
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"Orion_Tube/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB 每个测试一个独立的SQLite文件库，单连接避免 database is locked
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orion.db")
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=off"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.AutoMigrate(db))
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Password: "x", FullName: username}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateVideo 直接写库，跳过上传流程
func CreateVideo(t testing.TB, db *gorm.DB, owner *model.User, title string, published bool) *model.Video {
	t.Helper()
	v := &model.Video{
		OwnerID:     owner.ID,
		Title:       title,
		Description: "about " + title,
		VideoFile: model.VideoAsset{
			URL:        fmt.Sprintf("https://cdn.test/videos/%s.mp4", title),
			ExternalID: "videos/" + title + ".mp4",
			Format:     "mp4",
		},
		Thumbnail: model.ThumbnailAsset{
			URL:        fmt.Sprintf("https://cdn.test/images/%s.png", title),
			ExternalID: "images/" + title + ".png",
		},
		IsPublished: published,
	}
	require.NoError(t, db.Create(v).Error)
	return v
}
