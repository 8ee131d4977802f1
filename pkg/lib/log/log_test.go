package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"unknown", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestLazyLogger_FollowsDefault(t *testing.T) {
	var buf bytes.Buffer
	SetOutputWithLevel(&buf, LevelDebug)
	defer SetOutputWithLevel(os.Stderr, LevelInfo)

	// logger 在切换输出之前创建，仍写入新的输出
	logger := Logger("test/component")
	logger.Debug("调试信息", "k", "v")
	logger.Security("身份伪造", "peer", "Qm1")

	out := buf.String()
	assert.Contains(t, out, "component=test/component")
	assert.Contains(t, out, "调试信息")
	assert.Contains(t, out, "event=security")
	assert.Contains(t, out, "level=WARN")
}

func TestSetup_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "didpeer.log")
	t.Setenv(EnvLogLevel, "error")

	Setup(Options{Level: "debug", Format: "json", File: path, MaxSizeMB: 1})
	defer Setup(Options{Level: "info"})

	logger := Logger("test/file")
	logger.Info("不应输出")
	logger.Error("应输出")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "不应输出")
	assert.Contains(t, string(data), `"msg":"应输出"`)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", TruncateID("abc", 8))
	assert.Equal(t, "abcdefgh", TruncateID("abcdefghijk", 8))
}
