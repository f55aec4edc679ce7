// Package service 定义领域服务端口
package service

import "context"

// Generator 文本生成后端
type Generator interface {
	// Generate 单次调用生成后端并返回文本
	Generate(ctx context.Context, prompt string, length int) (string, error)

	// Endpoint 后端地址，用于面向用户的错误提示
	Endpoint() string
}
