package qrproof

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
)

// Module 返回 QR 证明校验 Fx 模块
func Module() fx.Option {
	return fx.Module("qrproof",
		fx.Provide(func(cfg *config.Config, content interfaces.ContentStore, decoder interfaces.QRDecoder) *Validator {
			return New(content, decoder, cfg.Registry.MaxQRImageSize)
		}),
	)
}
