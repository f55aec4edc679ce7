package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
)

const (
	// SessionIDKey 会话 ID 在 gin.Context 中的键
	SessionIDKey = "session_id"

	sessionValueID = "id"
)

// SessionConfig 会话中间件配置
type SessionConfig struct {
	CookieName string
	Secret     string
	MaxAge     time.Duration
	Secure     bool
}

// Session 为每个浏览器分配签名 Cookie 中的会话 ID，每次请求刷新过期时间
func Session(cfg SessionConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = "letswrite_session"
	}
	// 未配置密钥时使用进程级随机密钥，重启后会话失效
	if cfg.Secret == "" {
		cfg.Secret = uuid.NewString() + uuid.NewString()
	}

	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return func(c *gin.Context) {
		// 签名校验失败时返回新会话，按新访客处理
		sess, _ := store.Get(c.Request, cfg.CookieName)

		id, _ := sess.Values[sessionValueID].(string)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			sess.Values[sessionValueID] = id
		}

		if err := sess.Save(c.Request, c.Writer); err != nil {
			logger.Warn(c.Request.Context(), "failed to write session cookie", "error", err.Error())
		}

		c.Set(SessionIDKey, id)
		ctx := logger.WithContext(c.Request.Context(), logger.SessionIDKey, id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
