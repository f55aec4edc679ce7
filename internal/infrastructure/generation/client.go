// Package generation 提供文本生成后端客户端
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/config"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
)

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 8 << 20
	maxSnippet      = 256
)

// Client 生成后端 HTTP 客户端，无可变状态，可并发使用
type Client struct {
	endpoint   string
	httpClient *http.Client
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

type generateResponse struct {
	Text  *string `json:"text"`
	Error string  `json:"error,omitempty"`
}

// NewClient 根据配置创建客户端，出站请求带链路追踪
func NewClient(cfg *config.GenerationConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return New(cfg.Endpoint, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// New 使用指定 http.Client 创建客户端
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: httpClient,
	}
}

// Endpoint 返回后端地址
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Generate 发起一次生成调用，返回响应 text 字段原文
// 失败时返回 *StatusError、*TransportError 或 *ParseError，不重试
func (c *Client) Generate(ctx context.Context, prompt string, length int) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is blank", ErrInvalidRequest)
	}
	if length <= 0 {
		return "", fmt.Errorf("%w: length must be positive, got %d", ErrInvalidRequest, length)
	}

	reqBody, err := json.Marshal(&generateRequest{Prompt: prompt, Length: length})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", &TransportError{Endpoint: c.endpoint, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if rid := logger.StringFromContext(ctx, logger.RequestIDKey); rid != "" {
		httpReq.Header.Set("X-Request-ID", rid)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Endpoint: c.endpoint, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return "", &TransportError{Endpoint: c.endpoint, Err: fmt.Errorf("read response body: %w", err)}
	}

	logger.Debug(ctx, "generation backend responded",
		"status", httpResp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: httpResp.StatusCode, Message: errorMessage(body)}
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ParseError{Body: snippet(body), Err: err}
	}
	if resp.Text == nil {
		return "", &ParseError{Body: snippet(body), Err: errMissingText}
	}
	return *resp.Text, nil
}

// Ping 检查后端是否可达，收到任何 HTTP 响应即视为可达
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint, nil)
	if err != nil {
		return &TransportError{Endpoint: c.endpoint, Err: err}
	}
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Endpoint: c.endpoint, Err: err}
	}
	_, _ = io.Copy(io.Discard, httpResp.Body)
	return httpResp.Body.Close()
}

// errorMessage 提取后端错误信息
func errorMessage(body []byte) string {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return snippet(body)
}

// snippet 截取至多 maxSnippet 字节，不拆分多字节字符
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxSnippet {
		return s
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
