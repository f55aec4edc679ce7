package generation

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest 提示词为空或长度非正，未发起任何调用
var ErrInvalidRequest = errors.New("generation: invalid request")

// StatusError 后端返回非 2xx 状态
type StatusError struct {
	StatusCode int
	// Message 后端 {"error": "..."} 中的信息，或截断的响应体
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("generation: backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("generation: backend returned status %d: %s", e.StatusCode, e.Message)
}

// TransportError 网络层失败：DNS、连接拒绝、超时、取消
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("generation: request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout 是否由超时引起
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ParseError 响应体不是 JSON 或缺少 text 字段
type ParseError struct {
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("generation: invalid response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// errMissingText 响应中没有 text 字段
var errMissingText = errors.New(`missing "text" field`)
