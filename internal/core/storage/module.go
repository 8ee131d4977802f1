package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/storage/engine"
	"github.com/dep2p/go-didpeer/internal/core/storage/engine/badger"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
)

var logger = log.Logger("core/storage")

// Params 模块依赖
type Params struct {
	fx.In

	Config *config.Config
}

// Module 返回存储 Fx 模块
//
// 提供 engine.Engine；OnStart 启动 GC，OnStop 关闭数据库。
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideEngine),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideEngine 按统一配置打开存储引擎
func ProvideEngine(p Params) (engine.Engine, error) {
	return NewEngine(p.Config.Storage)
}

// NewEngine 按存储配置创建引擎
func NewEngine(cfg config.StorageConfig) (engine.Engine, error) {
	ecfg := engine.InMemoryConfig()
	if !cfg.InMemory {
		ecfg = engine.DefaultConfig(cfg.DBPath())
	}
	logger.Debug("打开存储引擎", "path", ecfg.Path, "inMemory", ecfg.InMemory)

	eng, err := badger.New(ecfg)
	if err != nil {
		logger.Error("打开存储引擎失败", "error", err)
		return nil, err
	}
	return eng, nil
}

func registerLifecycle(lc fx.Lifecycle, eng engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return eng.Start()
		},
		OnStop: func(_ context.Context) error {
			logger.Info("正在关闭存储引擎")
			return eng.Close()
		},
	})
}
