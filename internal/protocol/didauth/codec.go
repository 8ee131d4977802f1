package didauth

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"
)

// 响应状态码
const (
	StatusOK           = 200
	StatusBadRequest   = 400
	StatusUnauthorized = 401
	StatusNotFound     = 404
	StatusServerError  = 500
)

// MethodPost 唯一支持的请求方法
const MethodPost = "POST"

// Request 请求帧
type Request struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Response 响应帧
type Response struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// WriteFrame 写入 varint 长度前缀和 JSON 文档
func WriteFrame(w io.Writer, v interface{}, maxSize int) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(data), maxSize)
	}

	buf := make([]byte, 0, varint.UvarintSize(uint64(len(data)))+len(data))
	buf = append(buf, varint.ToUvarint(uint64(len(data)))...)
	buf = append(buf, data...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame 读取一帧并解码到 v
func ReadFrame(r io.Reader, v interface{}, maxSize int) error {
	length, err := varint.ReadUvarint(byteReader{r})
	if err != nil {
		return fmt.Errorf("read frame length: %w", err)
	}
	if length > uint64(maxSize) {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, maxSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read frame body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return nil
}

// byteReader 逐字节读取，避免越过帧边界
type byteReader struct {
	r io.Reader
}

func (b byteReader) ReadByte() (byte, error) {
	var one [1]byte
	if _, err := io.ReadFull(b.r, one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

// okResponse 构造 200 响应
func okResponse(body interface{}) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &Response{Status: StatusOK, Body: data}, nil
}

func errorResponse(status int, msg string) *Response {
	return &Response{Status: status, Error: msg}
}
