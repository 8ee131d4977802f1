package memnet

import (
	"context"
	"encoding/json"

	"github.com/ipfs/go-cid"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// symbolSheetType 符号表图片的类型标记
const symbolSheetType = "memnet.qr"

type symbolSheet struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// EncodeSymbolSheet 生成一张"二维码图片"：符号列表的 JSON 表示
func EncodeSymbolSheet(symbols ...string) []byte {
	data, _ := json.Marshal(symbolSheet{Type: symbolSheetType, Symbols: symbols})
	return data
}

// QRDecoder 解码 EncodeSymbolSheet 生成的图片
type QRDecoder struct{}

var _ interfaces.QRDecoder = QRDecoder{}

// DecodeSymbols 返回图片中的全部符号
func (QRDecoder) DecodeSymbols(ctx context.Context, image []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sheet symbolSheet
	if err := json.Unmarshal(image, &sheet); err != nil || sheet.Type != symbolSheetType {
		return nil, ErrNotSymbolSheet
	}
	return sheet.Symbols, nil
}

// StoreQRProof 为节点生成标准的三符号证明图片并存储
//
// 符号依次为 /ipns/<peerId>、/ipfs/<handle 哈希>、DID。
func (n *Network) StoreQRProof(ctx context.Context, id types.PeerID, handle, did string) (cid.Cid, error) {
	handleCID, err := types.HandleContentID(handle)
	if err != nil {
		return cid.Undef, err
	}
	image := EncodeSymbolSheet(types.IPNSPath(id), types.IPFSPath(handleCID), did)
	return n.content.StoreBlob(ctx, image)
}
