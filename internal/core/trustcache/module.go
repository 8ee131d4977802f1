package trustcache

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/internal/core/storage/engine"
)

// Module 返回信任缓存 Fx 模块
func Module() fx.Option {
	return fx.Module("trustcache",
		fx.Provide(func(eng engine.Engine, clk clock.Clock) *Cache {
			return New(eng, clk)
		}),
	)
}
