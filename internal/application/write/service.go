// Package write 提供提示词到文本的生成流程与页面会话管理
package write

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/repository"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/service"
	apperrors "github.com/SumaiyaTarannumNoor/Lets-Write/pkg/errors"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/metrics"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/tracer"
)

// DownloadFilename 下载文件名
const DownloadFilename = "generated-text.txt"

const interruptedMessage = "The previous generation was interrupted. Please try again."

const maxSaveAttempts = 5

// Options 服务配置
type Options struct {
	Limits       entity.LengthLimits
	DefaultTheme entity.Theme
	// StaleAfter 超过该时长仍处于 generating 的会话视为中断
	StaleAfter time.Duration
}

// Service 生成服务
type Service struct {
	generator service.Generator
	sessions  repository.SessionRepository
	guard     repository.InFlightGuard

	limits       entity.LengthLimits
	defaultTheme entity.Theme
	staleAfter   time.Duration
	now          func() time.Time
}

// NewService 创建生成服务
func NewService(generator service.Generator, sessions repository.SessionRepository, guard repository.InFlightGuard, opts Options) *Service {
	if opts.Limits == (entity.LengthLimits{}) {
		opts.Limits = entity.DefaultLengthLimits
	}
	if opts.DefaultTheme == "" {
		opts.DefaultTheme = entity.ThemeDark
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 2 * time.Minute
	}
	return &Service{
		generator:    generator,
		sessions:     sessions,
		guard:        guard,
		limits:       opts.Limits,
		defaultTheme: opts.DefaultTheme,
		staleAfter:   opts.StaleAfter,
		now:          time.Now,
	}
}

// Limits 返回长度范围
func (s *Service) Limits() entity.LengthLimits {
	return s.limits
}

// Endpoint 返回生成后端地址
func (s *Service) Endpoint() string {
	return s.generator.Endpoint()
}

// Generate 校验输入，占用会话后调用一次生成后端
// 同一会话已有请求在进行时直接拒绝，不排队
func (s *Service) Generate(ctx context.Context, sessionID, prompt string, length int) (string, error) {
	ctx, span := tracer.Start(ctx, "write.Generate")
	defer span.End()

	if sessionID == "" {
		return "", apperrors.ErrInvalidParam.WithDetail("session is required")
	}

	req, err := entity.NewGenerationRequest(prompt, length, s.limits)
	if err != nil {
		reason := "invalid_length"
		if errors.Is(err, entity.ErrEmptyPrompt) {
			reason = "invalid_prompt"
		}
		metrics.GenerationRejected.WithLabelValues(reason).Inc()
		return "", apperrors.ErrInvalidParam.WithDetail(err.Error()).WithError(err)
	}
	span.SetAttributes(
		attribute.Int("generation.length", req.Length),
		attribute.Int("generation.prompt_chars", utf8.RuneCountInString(req.Prompt)),
	)

	release, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrGenerationInFlight) {
			metrics.GenerationRejected.WithLabelValues("in_progress").Inc()
			return "", apperrors.ErrGenerationInProgress
		}
		span.RecordError(err)
		return "", apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire generation lock")
	}
	defer release()

	if _, err := s.update(ctx, sessionID, func(sess *entity.Session) error {
		sess.Begin(req.Prompt, req.Length)
		return nil
	}); err != nil {
		return "", err
	}

	metrics.GenerationInFlight.Inc()
	start := s.now()
	text, genErr := s.generator.Generate(ctx, req.Prompt, req.Length)
	elapsed := s.now().Sub(start)
	metrics.GenerationInFlight.Dec()
	metrics.GenerationDuration.Observe(elapsed.Seconds())

	// 请求可能已断开，结果仍需落到会话
	storeCtx := context.WithoutCancel(ctx)

	if genErr != nil {
		f := classify(genErr, s.generator.Endpoint())
		s.finish(storeCtx, sessionID, func(sess *entity.Session) { sess.Fail(f.message) })

		metrics.GenerationTotal.WithLabelValues(f.label).Inc()
		span.RecordError(genErr)
		logger.Warn(ctx, "generation failed",
			"kind", f.label,
			"length", req.Length,
			"duration_ms", elapsed.Milliseconds(),
			"error", genErr.Error(),
		)
		return "", f.appErr
	}

	s.finish(storeCtx, sessionID, func(sess *entity.Session) { sess.Succeed(text) })

	metrics.GenerationTotal.WithLabelValues("success").Inc()
	metrics.GenerationOutputChars.Observe(float64(utf8.RuneCountInString(text)))
	logger.Info(ctx, "generation completed",
		"length", req.Length,
		"output_chars", utf8.RuneCountInString(text),
		"duration_ms", elapsed.Milliseconds(),
	)
	return text, nil
}

// Session 获取会话，不存在时返回默认设置的新会话
func (s *Service) Session(ctx context.Context, sessionID string) (*entity.Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("session is required")
	}
	return s.load(ctx, sessionID)
}

// UpdateSettings 更新长度与主题，nil 表示不修改
func (s *Service) UpdateSettings(ctx context.Context, sessionID string, length *int, theme *string) (*entity.Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("session is required")
	}
	if length != nil && !s.limits.Contains(*length) {
		return nil, apperrors.ErrInvalidParam.WithDetail(
			fmt.Sprintf("length must be between %d and %d", s.limits.Min, s.limits.Max))
	}
	var newTheme entity.Theme
	if theme != nil {
		t, ok := entity.ParseTheme(*theme)
		if !ok {
			return nil, apperrors.ErrInvalidParam.WithDetail(
				fmt.Sprintf("theme must be %q or %q", entity.ThemeDark, entity.ThemeLight))
		}
		newTheme = t
	}

	return s.update(ctx, sessionID, func(sess *entity.Session) error {
		if length != nil {
			sess.Length = *length
		}
		if theme != nil {
			sess.Theme = newTheme
		}
		sess.UpdatedAt = s.now()
		return nil
	})
}

// Clear 清空提示词、结果与错误，保留设置
func (s *Service) Clear(ctx context.Context, sessionID string) (*entity.Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("session is required")
	}
	return s.update(ctx, sessionID, func(sess *entity.Session) error {
		if sess.IsGenerating() {
			return apperrors.ErrGenerationInProgress
		}
		sess.Clear()
		return nil
	})
}

// Download 返回可下载的生成结果
func (s *Service) Download(ctx context.Context, sessionID string) (filename string, content string, err error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return "", "", err
	}
	if !sess.HasText() {
		return "", "", apperrors.ErrNotFound.WithDetail("there is no generated text to download")
	}
	return DownloadFilename, sess.Text, nil
}

// load 读取会话，处理不存在与中断的情况
func (s *Service) load(ctx context.Context, sessionID string) (*entity.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return entity.NewSession(sessionID, s.limits.Default, s.defaultTheme), nil
	}
	if err != nil {
		metrics.SessionStoreErrors.WithLabelValues("get").Inc()
		logger.Error(ctx, "failed to load session", err, "session_id", sessionID)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "session store unavailable")
	}

	if sess.IsGenerating() && sess.StartedAt != nil && s.now().Sub(*sess.StartedAt) > s.staleAfter {
		sess.Fail(interruptedMessage)
	}
	return sess, nil
}

// update 读取最新会话并修改后保存，版本冲突时基于最新状态重试
func (s *Service) update(ctx context.Context, sessionID string, mutate func(*entity.Session) error) (*entity.Session, error) {
	for attempt := 1; ; attempt++ {
		sess, err := s.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if err := mutate(sess); err != nil {
			return nil, err
		}

		err = s.sessions.Save(ctx, sess)
		if err == nil {
			return sess, nil
		}
		if errors.Is(err, repository.ErrSessionConflict) {
			metrics.SessionStoreErrors.WithLabelValues("conflict").Inc()
			if attempt < maxSaveAttempts {
				continue
			}
			logger.Warn(ctx, "session kept changing, giving up", "session_id", sessionID, "attempts", attempt)
			return nil, apperrors.Wrap(err, apperrors.CodeConflict, "session was modified concurrently, please retry")
		}

		metrics.SessionStoreErrors.WithLabelValues("save").Inc()
		logger.Error(ctx, "failed to save session", err, "session_id", sessionID)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "session store unavailable")
	}
}

// finish 写入生成结果，失败不影响本次结果返回
func (s *Service) finish(ctx context.Context, sessionID string, apply func(*entity.Session)) {
	_, _ = s.update(ctx, sessionID, func(sess *entity.Session) error {
		apply(sess)
		return nil
	})
}
