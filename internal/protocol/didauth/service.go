package didauth

import (
	"context"
	"sync"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
)

// Service 挑战应答服务：请求方与应答方
type Service struct {
	*Requester
	*Responder

	mu      sync.Mutex
	started bool
}

var _ interfaces.DIDAuthenticator = (*Service)(nil)

// New 创建服务
//
// profile 可为 nil，此时 pong 中不带用户状态。
func New(
	cfg config.DIDAuthConfig,
	host interfaces.Host,
	keys interfaces.Keystore,
	dids interfaces.DIDResolver,
	tokens interfaces.IdentTokenSource,
	profile interfaces.ProfileSource,
	opts ...Option,
) (*Service, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Service{
		Requester: &Requester{
			cfg:     cfg,
			host:    host,
			clock:   o.clock,
			metrics: o.metrics,
		},
		Responder: &Responder{
			cfg:     cfg,
			host:    host,
			keys:    keys,
			dids:    dids,
			tokens:  tokens,
			profile: profile,
			clock:   o.clock,
			version: o.version,
		},
	}, nil
}

// Start 注册协议处理器
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.Responder.Register()
	s.started = true
	logger.Debug("DID 挑战应答服务已启动")
	return nil
}

// Stop 移除协议处理器
func (s *Service) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.Responder.Unregister()
	s.started = false
	return nil
}
