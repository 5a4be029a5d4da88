package repository

import (
	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/model"
	"context"
	"strings"

	"gorm.io/gorm"
)

// 用户仓库接口：1、将用户插入用户表 2、根据用户名/邮箱查找用户 3、根据ID查找用户 4、更新指定列
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByLogin(ctx context.Context, username, email string) (*model.User, error)
	FindByID(ctx context.Context, userID uint64) (*model.User, error)
	Update(ctx context.Context, user *model.User, columns ...string) error
}

// 数据库接口封装
type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

// 用户名统一小写入库
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	return apperr.FromDB(r.db.WithContext(ctx).Create(user).Error, "create user")
}

// 根据用户名找用户，大小写不敏感
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var result model.User
	name := strings.ToLower(strings.TrimSpace(username))
	err := r.db.WithContext(ctx).Where("username = ?", name).First(&result).Error
	if err != nil {
		return nil, apperr.FromDB(err, "find user")
	}
	return &result, nil
}

func (r *userRepository) FindByID(ctx context.Context, userID uint64) (*model.User, error) {
	var result model.User
	if err := r.db.WithContext(ctx).First(&result, userID).Error; err != nil {
		return nil, apperr.FromDB(err, "find user")
	}
	return &result, nil
}

// FindByLogin 用户名或邮箱任一匹配即可，两个都为空返回NotFound
func (r *userRepository) FindByLogin(ctx context.Context, username, email string) (*model.User, error) {
	name := strings.ToLower(strings.TrimSpace(username))
	mail := strings.ToLower(strings.TrimSpace(email))
	if name == "" && mail == "" {
		return nil, apperr.NotFound("user")
	}
	db := r.db.WithContext(ctx)
	switch {
	case name != "" && mail != "":
		db = db.Where("username = ? OR email = ?", name, mail)
	case name != "":
		db = db.Where("username = ?", name)
	default:
		db = db.Where("email = ?", mail)
	}
	var result model.User
	if err := db.First(&result).Error; err != nil {
		return nil, apperr.FromDB(err, "find user")
	}
	return &result, nil
}

// Update 只更新给定的列，updated_at 一起更新
func (r *userRepository) Update(ctx context.Context, user *model.User, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	cols := append([]string{"updated_at"}, columns...)
	err := r.db.WithContext(ctx).Model(user).Select(cols).Updates(user).Error
	return apperr.FromDB(err, "update user")
}
