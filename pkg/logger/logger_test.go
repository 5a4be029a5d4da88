package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel logrus.Level
	}{
		{name: "debug", level: "debug", wantLevel: logrus.DebugLevel},
		{name: "warn", level: "warn", wantLevel: logrus.WarnLevel},
		{name: "invalid level falls back to info", level: "loud", wantLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Init(tt.level, ""))
			assert.Equal(t, tt.wantLevel, Log.GetLevel())
		})
	}
}

func TestInitWithLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "orion.log")

	require.NoError(t, Init("info", logFile))
	Log.WithField("video_id", 1).Info("hello")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"video_id":1`)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestInitWithUnwritableFile(t *testing.T) {
	err := Init("info", filepath.Join(t.TempDir(), "missing", "dir", "orion.log"))
	assert.Error(t, err)
}
