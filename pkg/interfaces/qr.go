package interfaces

import "context"

// QRDecoder 二维码符号解码
type QRDecoder interface {
	// DecodeSymbols 返回图片中解码出的全部符号文本
	DecodeSymbols(ctx context.Context, image []byte) ([]string, error)
}
