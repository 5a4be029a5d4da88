// Package staging 管理上传文件在本地的临时副本：先落盘，再上传到对象存储，最后一定删除
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"Orion_Tube/pkg/logger"

	"github.com/spf13/afero"
)

// Upload 客户端提交的一个文件
type Upload struct {
	Filename string
	Reader   io.Reader
}

// Handle 一个已落盘的临时文件
type Handle struct {
	fs       afero.Fs
	path     string
	filename string
	size     int64

	once sync.Once
}

func (h *Handle) Path() string     { return h.path }
func (h *Handle) Filename() string { return h.filename }
func (h *Handle) Size() int64      { return h.size }

// Open 每次调用都返回新的读句柄，上传重试时可以重复读取
func (h *Handle) Open() (io.ReadCloser, error) {
	return h.fs.Open(h.path)
}

type Manager struct {
	fs  afero.Fs
	dir string
}

func NewManager(fs afero.Fs, dir string) *Manager {
	return &Manager{fs: fs, dir: dir}
}

// Stage 把上传内容写入临时文件：1、确保目录存在 2、创建临时文件 3、拷贝内容，失败时自己清理
func (m *Manager) Stage(ctx context.Context, up Upload) (*Handle, error) {
	if up.Reader == nil {
		return nil, errors.New("staging: empty upload")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create dir: %w", err)
	}

	f, err := afero.TempFile(m.fs, m.dir, "upload-*"+filepath.Ext(up.Filename))
	if err != nil {
		return nil, fmt.Errorf("staging: create temp file: %w", err)
	}
	h := &Handle{fs: m.fs, path: f.Name(), filename: up.Filename}

	n, copyErr := io.Copy(f, up.Reader)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		m.Release(h)
		return nil, fmt.Errorf("staging: write temp file: %w", errors.Join(copyErr, closeErr))
	}
	h.size = n

	logger.Log.WithField("path", h.path).WithField("size", n).Debug("上传文件已暂存")
	return h, nil
}

// Release 删除临时文件，幂等：nil、已删除、从未创建的句柄都直接返回
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	h.once.Do(func() {
		err := h.fs.Remove(h.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Log.WithError(err).WithField("path", h.path).Warn("临时文件删除失败")
		}
	})
}

// Exists 测试和巡检用
func (m *Manager) Exists(h *Handle) bool {
	if h == nil {
		return false
	}
	ok, _ := afero.Exists(m.fs, h.path)
	return ok
}
