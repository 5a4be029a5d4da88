// Package mediainfo 用 ffprobe 读取视频时长
package mediainfo

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// DurationReader 返回视频时长（秒）
type DurationReader interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Runner 执行外部命令，测试时替换
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type FFprobe struct {
	path string
	run  Runner
}

func NewFFprobe(path string) *FFprobe {
	return &FFprobe{path: path, run: execRunner}
}

func NewFFprobeWithRunner(path string, run Runner) *FFprobe {
	return &FFprobe{path: path, run: run}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration 优先取 format.duration，没有的话退回到第一个视频流的 duration
func (p *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	out, err := p.run(ctx, p.path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var data ffprobeOutput
	if err := json.Unmarshal(out, &data); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}

	if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil && d > 0 {
		return d, nil
	}
	for _, s := range data.Streams {
		if s.CodecType != "video" {
			continue
		}
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > 0 {
			return d, nil
		}
	}
	return 0, fmt.Errorf("ffprobe: no duration in output")
}
