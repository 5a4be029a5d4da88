// Package storage 把暂存文件上传到远端对象存储。上传要么成功要么整体失败；删除只尽力而为，从不返回错误
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/mediainfo"
	"Orion_Tube/internal/staging"
	"Orion_Tube/pkg/logger"
	"Orion_Tube/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type AssetKind string

const (
	KindVideo AssetKind = "video"
	KindImage AssetKind = "image"
)

func (k AssetKind) prefix() string {
	if k == KindVideo {
		return "videos"
	}
	return "images"
}

// AssetRef 上传成功后的稳定引用
type AssetRef struct {
	URL             string
	ExternalID      string
	Format          string
	DurationSeconds *float64
}

// DeleteResult 删除结果，Err 不为空说明远端可能留下了孤儿文件
type DeleteResult struct {
	ExternalID string
	Kind       AssetKind
	Err        error
}

func (r DeleteResult) OK() bool { return r.Err == nil }

// objectStore 具体的存储后端（S3 / 本地目录）
type objectStore interface {
	put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	remove(ctx context.Context, key string) error
	url(key string) string
}

type Gateway struct {
	name       string
	store      objectStore
	durations  mediainfo.DurationReader
	attempts   int
	newBackOff func() backoff.BackOff
}

type Option func(*Gateway)

// WithDurationReader 上传视频时用它解析时长
func WithDurationReader(p mediainfo.DurationReader) Option {
	return func(g *Gateway) { g.durations = p }
}

// WithAttempts 上传最多尝试次数，重试时复用同一个key
func WithAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.attempts = n
		}
	}
}

func WithBackOff(fn func() backoff.BackOff) Option {
	return func(g *Gateway) { g.newBackOff = fn }
}

func newGateway(name string, store objectStore, opts ...Option) *Gateway {
	g := &Gateway{
		name:     name,
		store:    store,
		attempts: 1,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Detect 嗅探暂存文件的真实类型，不是kind对应的类型返回 ErrValidation。只读本地文件，不碰远端
func Detect(h *staging.Handle, kind AssetKind) (*mimetype.MIME, error) {
	if h == nil {
		return nil, apperr.Validation("%s file is required", kind)
	}
	mt, err := sniff(h)
	if err != nil {
		return nil, fmt.Errorf("read staged file %s: %w", h.Filename(), err)
	}
	if !strings.HasPrefix(mt.String(), string(kind)+"/") {
		return nil, apperr.Validation("%s is not a valid %s file (detected %s)", h.Filename(), kind, mt.String())
	}
	return mt, nil
}

// Check 上传前的内容校验，调用方应在任何远端写入之前对所有文件执行
func (g *Gateway) Check(h *staging.Handle, kind AssetKind) error {
	_, err := Detect(h, kind)
	return err
}

// Upload 上传一个暂存文件：1、嗅探文件类型，必须与kind一致 2、生成key 3、带退避的有限重试上传 4、视频解析时长（失败不影响上传）
func (g *Gateway) Upload(ctx context.Context, h *staging.Handle, kind AssetKind) (*AssetRef, error) {
	mt, err := Detect(h, kind)
	if err != nil {
		return nil, err
	}

	format := strings.TrimPrefix(mt.Extension(), ".")
	key := fmt.Sprintf("%s/%s%s", kind.prefix(), uuid.NewString(), mt.Extension())
	logCtx := logger.Log.WithField("backend", g.name).WithField("external_id", key).WithField("kind", kind)

	attempt := 0
	op := func() error {
		attempt++
		rc, err := h.Open()
		if err != nil {
			return backoff.Permanent(err)
		}
		defer rc.Close()
		if err := g.store.put(ctx, key, mt.String(), rc, h.Size()); err != nil {
			logCtx.WithError(err).WithField("attempt", attempt).Warn("上传远端文件失败")
			return err
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), uint64(g.attempts-1)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		metrics.AssetUploads.WithLabelValues(string(kind), "failure").Inc()
		return nil, apperr.Upstream("upload "+string(kind), err)
	}
	metrics.AssetUploads.WithLabelValues(string(kind), "success").Inc()

	ref := &AssetRef{
		URL:        g.store.url(key),
		ExternalID: key,
		Format:     format,
	}
	if kind == KindVideo && g.durations != nil {
		if d, err := g.durations.Duration(ctx, h.Path()); err != nil {
			logCtx.WithError(err).Warn("解析视频时长失败")
		} else {
			ref.DurationSeconds = &d
		}
	}
	logCtx.WithField("attempts", attempt).Info("远端文件上传成功")
	return ref, nil
}

// Delete 尽力删除远端文件，失败只记录在结果里
func (g *Gateway) Delete(ctx context.Context, externalID string, kind AssetKind) DeleteResult {
	res := DeleteResult{ExternalID: externalID, Kind: kind}
	if externalID == "" {
		return res
	}
	if err := g.store.remove(ctx, externalID); err != nil {
		res.Err = err
		metrics.AssetDeleteFailures.WithLabelValues(string(kind)).Inc()
		logger.Log.WithError(err).
			WithField("backend", g.name).
			WithField("external_id", externalID).
			WithField("kind", kind).
			Error("删除远端文件失败")
	}
	return res
}

func sniff(h *staging.Handle) (*mimetype.MIME, error) {
	rc, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return mimetype.DetectReader(rc)
}
