package registry

import (
	"time"

	"github.com/ipfs/go-cid"

	"github.com/dep2p/go-didpeer/pkg/types"
)

// AvatarPlaceholder 尚未获取头像时的引用
const AvatarPlaceholder = "avatar:placeholder"

// record 节点记录，所有字段由 Registry.mu 保护
type record struct {
	handle string
	peerID types.PeerID
	did    string

	ident     *types.IdentityMessage
	identLast time.Time

	validated     bool
	authenticated bool
	local         bool

	lastPingAt time.Time
	pings      types.PingHistory

	authFailureCount  int
	authFailureLastAt time.Time
	lastAuthFailure   string

	userStatus string
	avatarRef  string
}

func newRecord(handle string, peer types.PeerID, did string) *record {
	return &record{
		handle:    handle,
		peerID:    peer,
		did:       did,
		avatarRef: AvatarPlaceholder,
	}
}

// setValidated 更新验证状态；撤销验证时同时撤销认证
func (r *record) setValidated(v bool) {
	r.validated = v
	if !v {
		r.authenticated = false
		r.local = false
	}
}

// resetAuth 身份变化时撤销认证并清空失败记录
func (r *record) resetAuth() {
	r.authenticated = false
	r.local = false
	r.authFailureCount = 0
	r.authFailureLastAt = time.Time{}
	r.lastAuthFailure = ""
}

// promote 标记为已认证，未验证的记录不能被提升
func (r *record) promote(local bool) bool {
	if !r.validated {
		return false
	}
	r.authenticated = true
	r.local = local
	return true
}

func (r *record) avatarCID() cid.Cid {
	if r.ident == nil {
		return cid.Undef
	}
	return r.ident.Identity.Avatar
}

// owns 记录仍属于 ref 描述的节点和 DID
func (r *record) owns(ref types.PeerRef) bool {
	return r.peerID == ref.PeerID && r.did == ref.DID
}

func (r *record) ref() types.PeerRef {
	return types.PeerRef{Handle: r.handle, PeerID: r.peerID, DID: r.did}
}

func (r *record) snapshot() types.PeerSnapshot {
	s := types.PeerSnapshot{
		Handle:            r.handle,
		PeerID:            r.peerID,
		DID:               r.did,
		Validated:         r.validated,
		Authenticated:     r.authenticated,
		Local:             r.local,
		IdentLast:         r.identLast,
		LastPingAt:        r.lastPingAt,
		Pings:             r.pings.Samples(),
		AuthFailureCount:  r.authFailureCount,
		AuthFailureLastAt: r.authFailureLastAt,
		LastAuthFailure:   r.lastAuthFailure,
		UserStatus:        r.userStatus,
		AvatarRef:         r.avatarRef,
	}
	if r.ident != nil {
		s.Version = r.ident.Version
		s.IdentToken = r.ident.IdentToken
	}
	return s
}
