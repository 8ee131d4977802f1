package qrproof

import (
	"context"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/types"
)

var logger = log.Logger("protocol/qrproof")

// 校验阈值
const (
	// MinSymbols 图片中最少符号数
	MinSymbols = 2
	// MaxSymbols 图片中最多符号数
	MaxSymbols = 3
	// MinMatches 有效证明所需的最少匹配数
	MinMatches = 2
)

// Claim 待证明的身份声明
type Claim struct {
	PeerID types.PeerID
	Handle string
	DID    string
}

// Result 校验结果
type Result struct {
	Valid      bool
	MatchCount int

	// SymbolCount 解码出的符号数，用于区分 2/2 与 2/3
	SymbolCount int
}

// Validator 二维码证明校验器
type Validator struct {
	content      interfaces.ContentStore
	decoder      interfaces.QRDecoder
	maxImageSize int
}

// New 创建校验器，maxImageSize <= 0 表示不限制
func New(content interfaces.ContentStore, decoder interfaces.QRDecoder, maxImageSize int) *Validator {
	return &Validator{content: content, decoder: decoder, maxImageSize: maxImageSize}
}

// Validate 获取证明图片、解码并与声明比对
func (v *Validator) Validate(ctx context.Context, image cid.Cid, claim Claim) Result {
	if !image.Defined() {
		return Result{}
	}

	data, err := v.content.FetchBlob(ctx, image)
	if err != nil {
		logger.Debug("获取证明图片失败", "cid", image.String(), "error", err)
		return Result{}
	}
	if v.maxImageSize > 0 && len(data) > v.maxImageSize {
		logger.Debug("证明图片过大", "cid", image.String(), "size", len(data))
		return Result{}
	}

	symbols, err := v.decoder.DecodeSymbols(ctx, data)
	if err != nil {
		logger.Debug("证明图片解码失败", "cid", image.String(), "error", err)
		return Result{}
	}
	return Evaluate(symbols, claim)
}

// Evaluate 对已解码的符号集合计算匹配结果
func Evaluate(symbols []string, claim Claim) Result {
	res := Result{SymbolCount: len(symbols)}
	if len(symbols) < MinSymbols || len(symbols) > MaxSymbols {
		return res
	}

	var peerOK, handleOK, didOK bool
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		switch {
		case !peerOK && matchPeer(sym, claim.PeerID):
			peerOK = true
		case !handleOK && matchHandle(sym, claim.Handle):
			handleOK = true
		case !didOK && matchDID(sym, claim.DID):
			didOK = true
		}
	}

	for _, ok := range []bool{peerOK, handleOK, didOK} {
		if ok {
			res.MatchCount++
		}
	}
	res.Valid = res.MatchCount >= MinMatches
	return res
}

func matchPeer(sym string, id types.PeerID) bool {
	return !id.IsEmpty() && sym == types.IPNSPath(id)
}

func matchHandle(sym, handle string) bool {
	if handle == "" || !strings.HasPrefix(sym, types.IPFSPathPrefix) {
		return false
	}
	got, err := types.ParseIPFSPath(sym)
	if err != nil {
		return false
	}
	want, err := types.HandleContentID(handle)
	if err != nil {
		return false
	}
	return types.SameContent(got, want)
}

func matchDID(sym, did string) bool {
	return types.IsValidDID(sym) && sym == did
}
