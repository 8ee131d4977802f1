package interfaces

import (
	"context"

	"github.com/ipfs/go-cid"

	"github.com/dep2p/go-didpeer/pkg/types"
)

// ProfileSource 本地身份资料
type ProfileSource interface {
	// Profile 返回当前身份资料
	Profile(ctx context.Context) (*Profile, error)
}

// Profile 本地身份资料
type Profile struct {
	Handle        types.SpaceHandle
	VirtualPlanet string

	// QRProof 本地 QR 证明图片的 CID
	QRProof cid.Cid

	OrgDIDs []string

	// Avatar 头像 CID，可选
	Avatar cid.Cid

	// NetworkGraphRoot 本地节点图根 CID，可选
	NetworkGraphRoot cid.Cid

	UserStatus        string
	UserStatusMessage string
}
