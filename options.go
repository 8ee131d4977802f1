package didpeer

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
)

// Collaborators 节点依赖的外部能力
//
// 本库不实现网络、内容存储和 DID 文档存储，由调用方提供。
type Collaborators struct {
	// Host 按节点 ID + 协议拨号
	Host interfaces.Host

	// PubSub gossip 主题
	PubSub interfaces.PubSub

	// Content 内容寻址存储
	Content interfaces.ContentStore

	// DIDs DID 文档解析
	DIDs interfaces.DIDResolver

	// QR 二维码解码
	QR interfaces.QRDecoder

	// Keys 本地 RSA 私钥
	Keys interfaces.Keystore

	// Profile 本地身份资料
	Profile interfaces.ProfileSource
}

func (c *Collaborators) validate() error {
	missing := func(name string) error {
		return fmt.Errorf("%w: %s", ErrMissingCollaborator, name)
	}
	switch {
	case c.Host == nil:
		return missing("host")
	case c.PubSub == nil:
		return missing("pubsub")
	case c.Content == nil:
		return missing("content store")
	case c.DIDs == nil:
		return missing("did resolver")
	case c.QR == nil:
		return missing("qr decoder")
	case c.Keys == nil:
		return missing("keystore")
	case c.Profile == nil:
		return missing("profile")
	}
	return nil
}

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config  *config.Config
	collab  Collaborators
	clock   clock.Clock
	version string

	// 应用在 config 之上的覆盖项
	inMemory *bool
	logFile  string

	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{
		clock:   clock.New(),
		version: Version,
	}
}

// finalConfig 合并默认配置与覆盖项
func (o *options) finalConfig() *config.Config {
	cfg := o.config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if o.inMemory != nil {
		cfg.Storage.InMemory = *o.inMemory
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	return cfg
}

// WithCollaborators 设置外部协作者（必需）
func WithCollaborators(c Collaborators) Option {
	return func(o *options) error {
		if err := c.validate(); err != nil {
			return err
		}
		o.collab = c
		return nil
	}
}

// WithConfig 使用给定配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("didpeer: nil config")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithInMemoryStorage 信任缓存只保存在内存中
func WithInMemoryStorage() Option {
	return func(o *options) error {
		v := true
		o.inMemory = &v
		return nil
	}
}

// WithLogFile 日志输出到文件（按大小轮转）
func WithLogFile(path string) Option {
	return func(o *options) error {
		o.logFile = path
		return nil
	}
}

// WithClock 使用指定时钟，主要用于测试
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		if c == nil {
			return fmt.Errorf("didpeer: nil clock")
		}
		o.clock = c
		return nil
	}
}

// WithSoftwareVersion 公告和 pong 中携带的软件版本
func WithSoftwareVersion(v string) Option {
	return func(o *options) error {
		o.version = v
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
