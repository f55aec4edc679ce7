package write

import (
	"errors"
	"fmt"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/generation"
	apperrors "github.com/SumaiyaTarannumNoor/Lets-Write/pkg/errors"
)

// failure 生成失败的归类结果
type failure struct {
	appErr *apperrors.AppError
	// message 展示给页面的提示
	message string
	// label 指标标签
	label string
}

// classify 将生成客户端错误映射为应用错误与用户提示
func classify(err error, endpoint string) failure {
	var (
		transportErr *generation.TransportError
		statusErr    *generation.StatusError
		parseErr     *generation.ParseError
	)

	switch {
	case errors.As(err, &transportErr):
		msg := fmt.Sprintf("Failed to generate text. Please make sure the generation backend is running at %s.", endpoint)
		if transportErr.Timeout() {
			msg = fmt.Sprintf("The generation backend at %s did not respond in time. Please try again.", endpoint)
		}
		return failure{
			appErr:  apperrors.ErrBackendUnreachable.WithDetail(msg).WithError(err),
			message: msg,
			label:   "transport",
		}

	case errors.As(err, &statusErr):
		msg := fmt.Sprintf("The generation backend returned HTTP %d.", statusErr.StatusCode)
		if statusErr.Message != "" {
			msg = fmt.Sprintf("The generation backend returned HTTP %d: %s", statusErr.StatusCode, statusErr.Message)
		}
		return failure{
			appErr:  apperrors.ErrBackendStatus.WithDetail(msg).WithError(err),
			message: msg,
			label:   "status",
		}

	case errors.As(err, &parseErr):
		msg := "Failed to generate text. The backend returned an unexpected response."
		return failure{
			appErr:  apperrors.ErrGenerationFailed.WithDetail(msg).WithError(err),
			message: msg,
			label:   "parse",
		}

	case errors.Is(err, generation.ErrInvalidRequest):
		return failure{
			appErr:  apperrors.ErrInvalidParam.WithDetail(err.Error()).WithError(err),
			message: err.Error(),
			label:   "invalid",
		}

	default:
		msg := "Failed to generate text."
		return failure{
			appErr:  apperrors.ErrGenerationFailed.WithDetail(msg).WithError(err),
			message: msg,
			label:   "error",
		}
	}
}
