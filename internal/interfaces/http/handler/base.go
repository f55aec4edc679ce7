// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/dto"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/middleware"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/errors"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
)

// sessionID 读取会话中间件写入的会话 ID
func sessionID(c *gin.Context) string {
	return c.GetString(middleware.SessionIDKey)
}

// respondError 按 AppError 输出错误，服务端错误记录日志
func respondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), appErr.Message, err,
			"code", string(appErr.Code),
			"path", c.Request.URL.Path,
		)
	}
	_ = c.Error(err)
	dto.AppError(c, appErr)
}
