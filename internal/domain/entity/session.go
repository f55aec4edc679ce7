package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Theme 页面主题
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme 解析主题名称
func ParseTheme(s string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeDark:
		return ThemeDark, true
	case ThemeLight:
		return ThemeLight, true
	default:
		return "", false
	}
}

// SessionStatus 会话状态
type SessionStatus string

const (
	SessionStatusIdle       SessionStatus = "idle"
	SessionStatusGenerating SessionStatus = "generating"
)

// Session 页面会话的瞬时状态，仅保存在带过期时间的存储中
type Session struct {
	ID        string        `json:"id"`
	Prompt    string        `json:"prompt"`
	Length    int           `json:"length"`
	Theme     Theme         `json:"theme"`
	Text      string        `json:"text,omitempty"`
	Error     string        `json:"error,omitempty"`
	Status    SessionStatus `json:"status"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
	// Version 存储版本号，每次保存成功后递增
	Version   int64         `json:"version"`
}

// NewSession 创建空闲会话
func NewSession(id string, length int, theme Theme) *Session {
	return &Session{
		ID:        id,
		Length:    length,
		Theme:     theme,
		Status:    SessionStatusIdle,
		UpdatedAt: time.Now(),
	}
}

// Begin 开始生成，清空上一次结果
func (s *Session) Begin(prompt string, length int) {
	now := time.Now()
	s.Prompt = prompt
	s.Length = length
	s.Text = ""
	s.Error = ""
	s.Status = SessionStatusGenerating
	s.StartedAt = &now
	s.UpdatedAt = now
}

// Succeed 生成成功
func (s *Session) Succeed(text string) {
	s.Text = text
	s.Error = ""
	s.finish()
}

// Fail 生成失败，不保留任何部分结果
func (s *Session) Fail(message string) {
	s.Text = ""
	s.Error = message
	s.finish()
}

func (s *Session) finish() {
	s.Status = SessionStatusIdle
	s.StartedAt = nil
	s.UpdatedAt = time.Now()
}

// Clear 清空提示词与结果，保留长度和主题设置
func (s *Session) Clear() {
	s.Prompt = ""
	s.Text = ""
	s.Error = ""
	s.UpdatedAt = time.Now()
}

// IsGenerating 是否有生成在进行
func (s *Session) IsGenerating() bool {
	return s.Status == SessionStatusGenerating
}

// HasText 是否有可下载的结果
func (s *Session) HasText() bool {
	return s.Text != ""
}

// WordCount 结果单词数
func (s *Session) WordCount() int {
	return len(strings.Fields(s.Text))
}

// CharCount 结果字符数
func (s *Session) CharCount() int {
	return utf8.RuneCountInString(s.Text)
}
