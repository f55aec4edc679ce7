package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/application/write"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/config"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/errors"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
)

// PageTemplate 页面模板名
const PageTemplate = "index.html"

// PageHandler 页面处理器
type PageHandler struct {
	svc *write.Service
	ui  config.UIConfig
}

// NewPageHandler 创建页面处理器
func NewPageHandler(svc *write.Service, ui config.UIConfig) *PageHandler {
	return &PageHandler{svc: svc, ui: ui}
}

// PageData 页面渲染数据
type PageData struct {
	Title      string
	Subtitle   string
	Theme      string
	Prompt     string
	Length     int
	Limits     entity.LengthLimits
	Text       string
	Error      string
	Generating bool
	WordCount  int
	CharCount  int
	Endpoint   string
}

// Index 渲染主页面，主题由会话设置决定
func (h *PageHandler) Index(c *gin.Context) {
	limits := h.svc.Limits()
	data := PageData{
		Title:    h.ui.Title,
		Subtitle: h.ui.Subtitle,
		Theme:    h.ui.DefaultTheme,
		Length:   limits.Default,
		Limits:   limits,
		Endpoint: h.svc.Endpoint(),
	}

	sess, err := h.svc.Session(c.Request.Context(), sessionID(c))
	if err != nil {
		// 会话存储不可用时仍渲染空白页面
		logger.Error(c.Request.Context(), "failed to load session for page", err)
		data.Error = errors.AsAppError(err).Message
	} else {
		data.Theme = string(sess.Theme)
		data.Prompt = sess.Prompt
		data.Length = sess.Length
		data.Text = sess.Text
		data.Error = sess.Error
		data.Generating = sess.IsGenerating()
		data.WordCount = sess.WordCount()
		data.CharCount = sess.CharCount()
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, PageTemplate, data)
}
