package storage

import (
	"context"
	"fmt"

	"Orion_Tube/internal/config"
	"Orion_Tube/internal/mediainfo"

	"github.com/spf13/afero"
)

// NewFromConfig 按 storage.driver 选择 s3 或 local，server 和 consumer 共用
func NewFromConfig(ctx context.Context, fs afero.Fs, cfg config.StorageConfig) (*Gateway, error) {
	opts := []Option{WithAttempts(cfg.UploadAttempts)}
	if cfg.FFprobePath != "" {
		opts = append(opts, WithDurationReader(mediainfo.NewFFprobe(cfg.FFprobePath)))
	}

	switch cfg.Driver {
	case "s3":
		return NewS3Gateway(ctx, S3Options{
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			PublicBaseURL: cfg.PublicBaseURL,
		}, opts...)
	case "local", "":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("storage.local_dir must be set for the local driver")
		}
		return NewLocalGateway(fs, cfg.LocalDir, cfg.PublicBaseURL, opts...), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func (g *Gateway) Name() string { return g.name }
