package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log 是全局的 logrus 实例，未调用 Init 前也可以直接使用（输出到 stdout）
var Log = logrus.New()

// Init 按配置初始化全局 Logger：1、JSON格式，方便ELK/Loki聚合 2、file为空只输出到控制台，否则同时写文件 3、设置日志级别
func Init(level, file string) error {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var out io.Writer = os.Stdout
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("无法打开日志文件: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
	}
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		// 非法级别退回到 info
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	Log = l
	return nil
}
