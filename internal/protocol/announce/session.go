package announce

import (
	"crypto/rand"
	"io"

	"github.com/mr-tron/base58"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
)

// tokenSize 会话令牌随机字节数
const tokenSize = 64

// Session 本次运行的公告会话
//
// 令牌在进程生命周期内不变，绑定直连请求与公告会话。
type Session struct {
	token string
}

var _ interfaces.IdentTokenSource = (*Session)(nil)

// NewSession 生成新的会话令牌，r 为 nil 时使用 crypto/rand
func NewSession(r io.Reader) (*Session, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, tokenSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return &Session{token: base58.Encode(buf)}, nil
}

// IdentToken 返回会话令牌
func (s *Session) IdentToken() string {
	return s.token
}
