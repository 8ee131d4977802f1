package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 默认配置有效且与约定一致
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 60*time.Second, cfg.Announce.IdentEvery.Duration())
	assert.Equal(t, 32*1024, cfg.PubSub.MaxMessageSize)
	assert.Equal(t, time.Second, cfg.PubSub.MinInterval.Duration())
	assert.Equal(t, 10*time.Second, cfg.PubSub.ResubscribeDelay.Duration())
	assert.Equal(t, 10*time.Second, cfg.Registry.AuthBackoff.Duration())
	assert.Equal(t, 3, cfg.Registry.ResolveAttempts)
	assert.Equal(t, 2*time.Second, cfg.Registry.ResolveRetrySleep.Duration())
	assert.Equal(t, 40*time.Second, cfg.DIDAuth.AuthTimeout.Duration())
	assert.Equal(t, 30*time.Second, cfg.Liveness.Interval.Duration())
	assert.Equal(t, 60*time.Second, cfg.Liveness.PingInterval.Duration())
}

// TestConfig_ValidateRejects 非法子配置
func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"公告周期为零", func(c *Config) { c.Announce.IdentEvery = 0 }},
		{"主题为空", func(c *Config) { c.PubSub.Topic = "" }},
		{"消息上限为零", func(c *Config) { c.PubSub.MaxMessageSize = 0 }},
		{"解析次数为零", func(c *Config) { c.Registry.ResolveAttempts = 0 }},
		{"认证超时为零", func(c *Config) { c.DIDAuth.AuthTimeout = 0 }},
		{"探测并发为零", func(c *Config) { c.Liveness.Concurrency = 0 }},
		{"数据目录为空", func(c *Config) { c.Storage.DataDir = "" }},
		{"未知日志级别", func(c *Config) { c.Log.Level = "trace" }},
		{"指标命名空间为空", func(c *Config) { c.Metrics.Namespace = "" }},
		{"诊断地址无端口", func(c *Config) {
			c.Introspect.Enable = true
			c.Introspect.Addr = "localhost"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestStorageConfig_InMemory 内存模式不需要数据目录
func TestStorageConfig_InMemory(t *testing.T) {
	cfg := DefaultStorageConfig()
	cfg.DataDir = ""
	cfg.InMemory = true
	assert.NoError(t, cfg.Validate())
}

// TestFromJSON 部分 JSON 覆盖默认值
func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"announce":{"enable":true,"ident_every":"15s"},"registry":{"resolve_attempts":5}}`))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Announce.IdentEvery.Duration())
	assert.Equal(t, 5, cfg.Registry.ResolveAttempts)
	// 未出现的字段保留默认值
	assert.Equal(t, 2*time.Second, cfg.Registry.ResolveRetrySleep.Duration())

	_, err = FromJSON([]byte(`{"announce":{"ident_every":"soon"}}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"log":{"level":"loud"}}`))
	assert.Error(t, err)
}

// TestSaveLoadFile 配置文件往返
func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "didpeer.json")

	cfg := NewConfig()
	cfg.Liveness.Interval = Duration(45 * time.Second)
	require.NoError(t, cfg.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// TestDuration_JSON 字符串与纳秒两种写法
func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, d.UnmarshalJSON([]byte(`1000`)))
	assert.Equal(t, time.Microsecond, d.Duration())

	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))

	out, err := Duration(2 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(out))
}
