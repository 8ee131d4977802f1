// Package config 提供 didpeer 统一配置
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 提供 DefaultXxxConfig() 和 Validate()。支持从 JSON 加载和保存。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Announce.IdentEvery = config.Duration(30 * time.Second)
//
//	// 从文件加载
//	cfg, err := config.LoadFile("didpeer.json")
package config

// Config didpeer 完整配置
type Config struct {
	// Announce 身份公告
	Announce AnnounceConfig `json:"announce"`

	// PubSub 主题传输过滤与限速
	PubSub PubSubConfig `json:"pubsub"`

	// Registry 节点注册表
	Registry RegistryConfig `json:"registry"`

	// DIDAuth 直连挑战应答
	DIDAuth DIDAuthConfig `json:"didauth"`

	// Liveness 存活检测
	Liveness LivenessConfig `json:"liveness"`

	// Storage 持久化存储
	Storage StorageConfig `json:"storage"`

	// Log 日志
	Log LogConfig `json:"log"`

	// Metrics 指标
	Metrics MetricsConfig `json:"metrics"`

	// Introspect 本地诊断 HTTP 服务
	Introspect IntrospectConfig `json:"introspect"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Announce: DefaultAnnounceConfig(),
		PubSub:   DefaultPubSubConfig(),
		Registry: DefaultRegistryConfig(),
		DIDAuth:  DefaultDIDAuthConfig(),
		Liveness: DefaultLivenessConfig(),
		Storage:  DefaultStorageConfig(),
		Log:      DefaultLogConfig(),
		Metrics:  DefaultMetricsConfig(),

		Introspect: DefaultIntrospectConfig(),
	}
}

// Validate 验证配置
//
// 按子配置顺序检查，返回第一个错误。
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.Announce,
		&c.PubSub,
		&c.Registry,
		&c.DIDAuth,
		&c.Liveness,
		&c.Storage,
		&c.Log,
		&c.Metrics,
		&c.Introspect,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
