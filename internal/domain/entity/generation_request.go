// Package entity 定义领域实体
package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyPrompt 提示词为空或仅含空白
	ErrEmptyPrompt = errors.New("prompt must not be blank")
	// ErrLengthOutOfRange 长度超出允许范围
	ErrLengthOutOfRange = errors.New("length out of range")
)

// LengthLimits 生成长度范围
type LengthLimits struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// DefaultLengthLimits 页面滑块的默认范围
var DefaultLengthLimits = LengthLimits{Min: 50, Max: 1000, Default: 300}

// Contains 判断长度是否在范围内
func (l LengthLimits) Contains(length int) bool {
	return length >= l.Min && length <= l.Max
}

// Resolve 0 取默认值，其余原样返回
func (l LengthLimits) Resolve(length int) int {
	if length == 0 {
		return l.Default
	}
	return length
}

// GenerationRequest 单次生成请求，即后端请求体
type GenerationRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

// NewGenerationRequest 校验并构建生成请求
// 提示词仅用于判空时去除空白，发送内容保持用户原文
func NewGenerationRequest(prompt string, length int, limits LengthLimits) (GenerationRequest, error) {
	if strings.TrimSpace(prompt) == "" {
		return GenerationRequest{}, ErrEmptyPrompt
	}

	length = limits.Resolve(length)
	if !limits.Contains(length) {
		return GenerationRequest{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrLengthOutOfRange, length, limits.Min, limits.Max)
	}

	return GenerationRequest{Prompt: prompt, Length: length}, nil
}
