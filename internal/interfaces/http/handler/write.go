package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/application/write"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/dto"
)

// WriteHandler 生成与会话处理器
type WriteHandler struct {
	svc *write.Service
}

// NewWriteHandler 创建生成处理器
func NewWriteHandler(svc *write.Service) *WriteHandler {
	return &WriteHandler{svc: svc}
}

// Write 提交提示词并返回生成文本
// @Summary 生成文本
// @Tags Write
// @Accept json
// @Produce json
// @Param body body dto.WriteRequest true "提示词与长度"
// @Success 200 {object} dto.Response[dto.WriteResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "已有生成在进行"
// @Failure 502 {object} dto.ErrorResponse "生成后端失败"
// @Router /api/write [post]
func (h *WriteHandler) Write(c *gin.Context) {
	var req dto.WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}

	text, err := h.svc.Generate(c.Request.Context(), sessionID(c), req.Prompt, req.Length)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToWriteResponse(text))
}

// GetSession 获取当前会话状态
// @Router /api/session [get]
func (h *WriteHandler) GetSession(c *gin.Context) {
	sess, err := h.svc.Session(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(sess, h.svc.Limits()))
}

// UpdateSettings 更新长度与主题
// @Router /api/session/settings [put]
func (h *WriteHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body")
		return
	}

	sess, err := h.svc.UpdateSettings(c.Request.Context(), sessionID(c), req.Length, req.Theme)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(sess, h.svc.Limits()))
}

// ClearSession 清空提示词与结果
// @Router /api/session [delete]
func (h *WriteHandler) ClearSession(c *gin.Context) {
	sess, err := h.svc.Clear(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(sess, h.svc.Limits()))
}

// Download 以纯文本附件下载生成结果
// @Produce plain
// @Router /api/session/download [get]
func (h *WriteHandler) Download(c *gin.Context) {
	filename, content, err := h.svc.Download(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}
