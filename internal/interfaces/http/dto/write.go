package dto

import (
	"time"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
)

// WriteRequest 生成请求，与生成后端的请求体一致
type WriteRequest struct {
	Prompt string `json:"prompt"`
	// Length 为 0 时使用默认长度
	Length int `json:"length"`
}

// WriteResponse 生成结果
type WriteResponse struct {
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
}

// UpdateSettingsRequest 设置更新请求，缺省字段不修改
type UpdateSettingsRequest struct {
	Length *int    `json:"length,omitempty"`
	Theme  *string `json:"theme,omitempty"`
}

// SessionResponse 会话状态
type SessionResponse struct {
	Prompt    string              `json:"prompt"`
	Length    int                 `json:"length"`
	Theme     string              `json:"theme"`
	Text      string              `json:"text"`
	Error     string              `json:"error,omitempty"`
	Status    string              `json:"status"`
	WordCount int                 `json:"word_count"`
	CharCount int                 `json:"char_count"`
	Limits    entity.LengthLimits `json:"limits"`
	UpdatedAt string              `json:"updated_at"`
}

// ToWriteResponse 转换生成结果
func ToWriteResponse(text string) WriteResponse {
	s := entity.Session{Text: text}
	return WriteResponse{
		Text:      text,
		WordCount: s.WordCount(),
		CharCount: s.CharCount(),
	}
}

// ToSessionResponse 转换会话
func ToSessionResponse(s *entity.Session, limits entity.LengthLimits) SessionResponse {
	return SessionResponse{
		Prompt:    s.Prompt,
		Length:    s.Length,
		Theme:     string(s.Theme),
		Text:      s.Text,
		Error:     s.Error,
		Status:    string(s.Status),
		WordCount: s.WordCount(),
		CharCount: s.CharCount(),
		Limits:    limits,
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}
