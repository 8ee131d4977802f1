package keybook

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
)

// Module 返回公钥簿 Fx 模块
func Module() fx.Option {
	return fx.Module("keybook",
		fx.Provide(func(cfg *config.Config, content interfaces.ContentStore) (*KeyBook, error) {
			return New(content, cfg.Registry.KeyCacheSize)
		}),
	)
}
