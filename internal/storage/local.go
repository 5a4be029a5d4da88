package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// localStore 把对象写到本地目录，开发环境和测试用，由 /assets 静态路由对外提供
type localStore struct {
	fs      afero.Fs
	root    string
	baseURL string
}

func NewLocalGateway(fs afero.Fs, root, baseURL string, opts ...Option) *Gateway {
	store := &localStore{fs: fs, root: root, baseURL: strings.TrimRight(baseURL, "/")}
	return newGateway("local", store, opts...)
}

func (s *localStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *localStore) put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := s.path(key)
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := afero.WriteReader(s.fs, p, body); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

func (s *localStore) remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *localStore) url(key string) string {
	return s.baseURL + "/" + key
}
