// cmd/seeder/main.go

package main

import (
	"Orion_Tube/internal/config"
	"Orion_Tube/internal/model"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/go-faker/faker/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	userCount         = 100
	videoCount        = 500
	likeCount         = 2000
	subscriptionCount = 600
	commentCount      = 1000
)

func main() {
	fmt.Println("🚀 开始填充测试数据...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 配置加载失败: %v", err)
	}

	// --- 1. 连接数据库 ---
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ 无法连接到数据库: %v", err)
	}
	fmt.Println("✅ 数据库连接成功!")

	// --- 2. 清理旧数据 ---
	// 注意：这将删除所有数据！
	fmt.Println("🧹 正在清理旧数据...")
	if err := db.Migrator().DropTable(&model.WatchHistory{}, &model.Subscription{}, &model.Comment{}, &model.Like{}, &model.Video{}, &model.User{}); err != nil {
		log.Fatalf("❌ 旧表删除失败: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("❌ 数据库迁移失败: %v", err)
	}
	fmt.Println("✅ 数据库迁移成功!")

	// --- 3. 创建用户 ---
	fmt.Println("👥 正在创建用户...")
	// 为所有用户设置一个简单的默认密码 "password"，只加密一次
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ 密码加密失败: %v", err)
	}
	users := make([]model.User, 0, userCount)
	for i := 0; i < userCount; i++ {
		// 用户名唯一，faker可能重复，所以加上序号
		users = append(users, model.User{
			Username: fmt.Sprintf("%s_%d", strings.ToLower(faker.Username()), i),
			Password: string(hashedPassword),
			FullName: faker.Name(),
			Email:    strings.ToLower(faker.Email()),
		})
	}
	if err := db.CreateInBatches(&users, 100).Error; err != nil {
		log.Fatalf("❌ 创建用户失败: %v", err)
	}
	fmt.Printf("✅ 成功创建 %d 个用户!\n", userCount)

	// --- 4. 创建视频 ---
	fmt.Println("🎬 正在创建视频...")
	videos := make([]model.Video, 0, videoCount)
	for i := 0; i < videoCount; i++ {
		duration := float64(rand.Intn(600) + 5)
		videos = append(videos, model.Video{
			OwnerID:     users[rand.Intn(len(users))].ID,
			Title:       faker.Sentence(),
			Description: faker.Paragraph(),
			Duration:    &duration,
			VideoFile: model.VideoAsset{
				URL:        fmt.Sprintf("https://test.com/videos/seed-%d.mp4", i),
				ExternalID: fmt.Sprintf("videos/seed-%d.mp4", i),
				Format:     "mp4",
			},
			Thumbnail: model.ThumbnailAsset{
				URL:        fmt.Sprintf("https://test.com/images/seed-%d.jpg", i),
				ExternalID: fmt.Sprintf("images/seed-%d.jpg", i),
			},
			// 大约八成是已发布的，剩下是草稿
			IsPublished: rand.Intn(10) < 8,
			Views:       int64(rand.Intn(10000)),
		})
	}
	if err := db.CreateInBatches(&videos, 100).Error; err != nil {
		log.Fatalf("❌ 创建视频失败: %v", err)
	}
	fmt.Printf("✅ 成功创建 %d 个视频!\n", videoCount)

	// --- 5. 创建随机点赞、订阅、评论 ---
	// 使用GORM的 OnConflict 来避免因为重复点赞而报错：如果因为唯一键冲突失败，就什么都不做
	ignoreDup := db.Clauses(clause.OnConflict{DoNothing: true})

	fmt.Println("👍 正在创建随机点赞...")
	for i := 0; i < likeCount; i++ {
		ignoreDup.Create(&model.Like{
			UserID:  users[rand.Intn(len(users))].ID,
			VideoID: videos[rand.Intn(len(videos))].ID,
		})
	}
	fmt.Printf("✅ 成功创建(或尝试创建) %d 个随机点赞!\n", likeCount)

	fmt.Println("🔔 正在创建随机订阅...")
	for i := 0; i < subscriptionCount; i++ {
		subscriber, channel := users[rand.Intn(len(users))].ID, users[rand.Intn(len(users))].ID
		// 不能订阅自己
		if subscriber == channel {
			continue
		}
		ignoreDup.Create(&model.Subscription{SubscriberID: subscriber, ChannelID: channel})
	}
	fmt.Printf("✅ 成功创建(或尝试创建) %d 个随机订阅!\n", subscriptionCount)

	fmt.Println("💬 正在创建随机评论...")
	comments := make([]model.Comment, 0, commentCount)
	for i := 0; i < commentCount; i++ {
		comments = append(comments, model.Comment{
			UserID:  users[rand.Intn(len(users))].ID,
			VideoID: videos[rand.Intn(len(videos))].ID,
			Content: faker.Sentence(),
		})
	}
	if err := db.CreateInBatches(&comments, 200).Error; err != nil {
		log.Fatalf("❌ 创建评论失败: %v", err)
	}
	fmt.Printf("✅ 成功创建 %d 条评论!\n", commentCount)

	fmt.Println("🎉🎉🎉 所有测试数据填充完毕! 🎉🎉🎉")
}
