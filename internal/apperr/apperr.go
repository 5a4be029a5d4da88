// Package apperr 定义业务错误分类，各层用 %w 包装，handler 用 HTTPStatus 映射状态码
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrValidation 缺少必填字段、字段为空、非法ID，在任何副作用之前返回
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 引用的视频/用户不存在
	ErrNotFound = errors.New("not found")
	// ErrOwnership 操作者不是视频作者
	ErrOwnership = errors.New("actor is not the owner")
	// ErrUpstreamStorage 远端对象存储上传失败
	ErrUpstreamStorage = errors.New("upstream storage failure")
	// ErrConflict 唯一键冲突
	ErrConflict = errors.New("conflict")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

func Ownership(what string) error {
	return fmt.Errorf("%s: %w", what, ErrOwnership)
}

func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUpstreamStorage, err)
}

// FromDB 把 gorm/MySQL 的错误映射成业务错误：1、记录不存在 2、1062 重复键（sqlite 为 UNIQUE constraint）
func FromDB(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if IsDuplicateKey(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsDuplicateKey 判断是否为唯一键冲突
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsOwnership(err error) bool  { return errors.Is(err, ErrOwnership) }
func IsUpstream(err error) bool   { return errors.Is(err, ErrUpstreamStorage) }

// HTTPStatus 把业务错误映射为HTTP状态码
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOwnership):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
