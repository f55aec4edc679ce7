package write

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/repository"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/generation"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/persistence/memory"
	apperrors "github.com/SumaiyaTarannumNoor/Lets-Write/pkg/errors"
)

const testEndpoint = "http://localhost:5000/api/generate"

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, length int) (string, error) {
	args := m.Called(ctx, prompt, length)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Endpoint() string {
	return testEndpoint
}

type fixture struct {
	svc      *Service
	gen      *mockGenerator
	sessions *memory.SessionStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gen := &mockGenerator{}
	t.Cleanup(func() { gen.AssertExpectations(t) })

	sessions := memory.NewSessionStore(time.Hour)
	svc := NewService(gen, sessions, memory.NewInFlightGuard(), Options{
		Limits:       entity.DefaultLengthLimits,
		DefaultTheme: entity.ThemeDark,
		StaleAfter:   time.Minute,
	})
	return &fixture{svc: svc, gen: gen, sessions: sessions}
}

func appCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestGenerateSuccessStoresText(t *testing.T) {
	f := newFixture(t)
	f.gen.On("Generate", mock.Anything, "Once upon a time", 300).
		Return("Once upon a time, there was...", nil).Once()

	text, err := f.svc.Generate(context.Background(), "s1", "Once upon a time", 300)
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time, there was...", text)

	sess, err := f.svc.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time", sess.Prompt)
	assert.Equal(t, "Once upon a time, there was...", sess.Text)
	assert.Empty(t, sess.Error)
	assert.Equal(t, entity.SessionStatusIdle, sess.Status)
}

func TestGenerateDefaultsZeroLength(t *testing.T) {
	f := newFixture(t)
	f.gen.On("Generate", mock.Anything, "hi", 300).Return("ok", nil).Once()

	_, err := f.svc.Generate(context.Background(), "s1", "hi", 0)
	require.NoError(t, err)
}

func TestGenerateRejectsInvalidInputWithoutCalling(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Generate(context.Background(), "s1", "   \n", 300)
	assert.Equal(t, apperrors.CodeInvalidParam, appCode(t, err))

	_, err = f.svc.Generate(context.Background(), "s1", "hi", 49)
	assert.Equal(t, apperrors.CodeInvalidParam, appCode(t, err))

	_, err = f.svc.Generate(context.Background(), "s1", "hi", 1001)
	assert.Equal(t, apperrors.CodeInvalidParam, appCode(t, err))

	_, err = f.svc.Generate(context.Background(), "", "hi", 300)
	assert.Equal(t, apperrors.CodeInvalidParam, appCode(t, err))

	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateFailureMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   apperrors.ErrorCode
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "transport",
			err:        &generation.TransportError{Endpoint: testEndpoint, Err: errors.New("connection refused")},
			wantCode:   apperrors.CodeBackendUnreachable,
			wantStatus: http.StatusBadGateway,
			wantMsg:    testEndpoint,
		},
		{
			name:       "status",
			err:        &generation.StatusError{StatusCode: 500, Message: "model not loaded"},
			wantCode:   apperrors.CodeBackendStatus,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "HTTP 500: model not loaded",
		},
		{
			name:       "parse",
			err:        &generation.ParseError{Err: errors.New(`missing "text" field`)},
			wantCode:   apperrors.CodeGenerationFailed,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "unexpected response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gen.On("Generate", mock.Anything, "Once upon a time", 300).Return("", tt.err).Once()

			text, err := f.svc.Generate(context.Background(), "s1", "Once upon a time", 300)
			assert.Empty(t, text)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
			assert.ErrorIs(t, err, tt.err)

			sess, err := f.svc.Session(context.Background(), "s1")
			require.NoError(t, err)
			assert.Empty(t, sess.Text)
			assert.Contains(t, sess.Error, tt.wantMsg)
			assert.Equal(t, entity.SessionStatusIdle, sess.Status)
		})
	}
}

func TestGenerateFailureDiscardsPreviousText(t *testing.T) {
	f := newFixture(t)
	f.gen.On("Generate", mock.Anything, "first", 300).Return("first result", nil).Once()
	f.gen.On("Generate", mock.Anything, "second", 300).
		Return("", &generation.StatusError{StatusCode: 500}).Once()

	_, err := f.svc.Generate(context.Background(), "s1", "first", 300)
	require.NoError(t, err)
	_, err = f.svc.Generate(context.Background(), "s1", "second", 300)
	require.Error(t, err)

	sess, err := f.svc.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, sess.Text)
	assert.Equal(t, "second", sess.Prompt)
}

func TestGenerateRejectsConcurrentSubmission(t *testing.T) {
	f := newFixture(t)

	entered := make(chan struct{})
	unblock := make(chan struct{})
	f.gen.On("Generate", mock.Anything, "slow", 300).
		Run(func(mock.Arguments) {
			close(entered)
			<-unblock
		}).
		Return("done", nil).Once()
	f.gen.On("Generate", mock.Anything, "after", 300).Return("next", nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Generate(context.Background(), "s1", "slow", 300)
		done <- err
	}()
	<-entered

	// 进行中：拒绝第二次提交，且状态可见
	_, err := f.svc.Generate(context.Background(), "s1", "second", 300)
	assert.Equal(t, apperrors.CodeGenerationInProgress, appCode(t, err))

	sess, err := f.svc.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, sess.IsGenerating())

	_, err = f.svc.Clear(context.Background(), "s1")
	assert.Equal(t, apperrors.CodeGenerationInProgress, appCode(t, err))

	// 其他会话不受影响
	f.gen.On("Generate", mock.Anything, "other", 300).Return("other text", nil).Once()
	_, err = f.svc.Generate(context.Background(), "s2", "other", 300)
	require.NoError(t, err)

	close(unblock)
	require.NoError(t, <-done)

	// 完成后可再次提交
	text, err := f.svc.Generate(context.Background(), "s1", "after", 300)
	require.NoError(t, err)
	assert.Equal(t, "next", text)
}

func TestGenerateKeepsSettingsChangedDuringGeneration(t *testing.T) {
	f := newFixture(t)

	entered := make(chan struct{})
	unblock := make(chan struct{})
	f.gen.On("Generate", mock.Anything, "p", 300).
		Run(func(mock.Arguments) {
			close(entered)
			<-unblock
		}).
		Return("text", nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Generate(context.Background(), "s1", "p", 300)
		done <- err
	}()
	<-entered

	theme := "light"
	_, err := f.svc.UpdateSettings(context.Background(), "s1", nil, &theme)
	require.NoError(t, err)

	close(unblock)
	require.NoError(t, <-done)

	sess, err := f.svc.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, entity.ThemeLight, sess.Theme)
	assert.Equal(t, "text", sess.Text)
}

// gatedStore 让第一次满足条件的 Save 停住，直到测试放行
type gatedStore struct {
	*memory.SessionStore
	match   func(*entity.Session) bool
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore(match func(*entity.Session) bool) *gatedStore {
	return &gatedStore{
		SessionStore: memory.NewSessionStore(time.Hour),
		match:        match,
		reached:      make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (g *gatedStore) Save(ctx context.Context, sess *entity.Session) error {
	if g.match(sess) {
		held := false
		g.once.Do(func() { held = true })
		if held {
			close(g.reached)
			<-g.release
		}
	}
	return g.SessionStore.Save(ctx, sess)
}

func TestLateSettingsSaveDoesNotOverwriteGenerationResult(t *testing.T) {
	gen := &mockGenerator{}
	t.Cleanup(func() { gen.AssertExpectations(t) })
	store := newGatedStore(func(sess *entity.Session) bool { return sess.Length == 777 })
	svc := NewService(gen, store, memory.NewInFlightGuard(), Options{StaleAfter: time.Minute})
	ctx := context.Background()

	entered := make(chan struct{})
	unblock := make(chan struct{})
	gen.On("Generate", mock.Anything, "p", 300).
		Run(func(mock.Arguments) {
			close(entered)
			<-unblock
		}).
		Return("text", nil).Once()

	generated := make(chan error, 1)
	go func() {
		_, err := svc.Generate(ctx, "s1", "p", 300)
		generated <- err
	}()
	<-entered

	// 设置修改读到 generating 状态后，保存被挂起
	length := 777
	updated := make(chan error, 1)
	go func() {
		_, err := svc.UpdateSettings(ctx, "s1", &length, nil)
		updated <- err
	}()
	<-store.reached

	close(unblock)
	require.NoError(t, <-generated)

	close(store.release)
	require.NoError(t, <-updated)

	sess, err := svc.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusIdle, sess.Status)
	assert.Equal(t, "text", sess.Text)
	assert.Equal(t, 777, sess.Length)

	cleared, err := svc.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cleared.Text)
	assert.Equal(t, 777, cleared.Length)
}

// conflictStore 每次保存都报告版本冲突
type conflictStore struct {
	*memory.SessionStore
	saves int
}

func (c *conflictStore) Save(context.Context, *entity.Session) error {
	c.saves++
	return repository.ErrSessionConflict
}

func TestUpdateGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := &conflictStore{SessionStore: memory.NewSessionStore(time.Hour)}
	svc := NewService(&mockGenerator{}, store, memory.NewInFlightGuard(), Options{})

	theme := "light"
	_, err := svc.UpdateSettings(context.Background(), "s1", nil, &theme)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	assert.ErrorIs(t, err, repository.ErrSessionConflict)
	assert.Equal(t, maxSaveAttempts, store.saves)
}

func TestSessionDefaultsForNewSession(t *testing.T) {
	f := newFixture(t)

	sess, err := f.svc.Session(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, 300, sess.Length)
	assert.Equal(t, entity.ThemeDark, sess.Theme)
	assert.Equal(t, entity.SessionStatusIdle, sess.Status)
}

func TestSessionRecoversInterruptedGeneration(t *testing.T) {
	f := newFixture(t)

	sess := entity.NewSession("s1", 300, entity.ThemeDark)
	sess.Begin("p", 300)
	started := time.Now().Add(-time.Hour)
	sess.StartedAt = &started
	require.NoError(t, f.sessions.Save(context.Background(), sess))

	got, err := f.svc.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, got.IsGenerating())
	assert.Equal(t, interruptedMessage, got.Error)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	length := 750
	theme := "LIGHT"
	sess, err := f.svc.UpdateSettings(ctx, "s1", &length, &theme)
	require.NoError(t, err)
	assert.Equal(t, 750, sess.Length)
	assert.Equal(t, entity.ThemeLight, sess.Theme)

	stored, err := f.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 750, stored.Length)

	bad := 20
	_, err = f.svc.UpdateSettings(ctx, "s1", &bad, nil)
	assert.Equal(t, apperrors.CodeInvalidParam, appCode(t, err))

	sepia := "sepia"
	_, err = f.svc.UpdateSettings(ctx, "s1", nil, &sepia)
	assert.Equal(t, apperrors.CodeInvalidParam, appCode(t, err))
}

func TestClearKeepsSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.On("Generate", mock.Anything, "p", 500).Return("text", nil).Once()

	_, err := f.svc.Generate(ctx, "s1", "p", 500)
	require.NoError(t, err)

	sess, err := f.svc.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, sess.Prompt)
	assert.Empty(t, sess.Text)
	assert.Equal(t, 500, sess.Length)
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Download(ctx, "s1")
	assert.Equal(t, apperrors.CodeNotFound, appCode(t, err))

	f.gen.On("Generate", mock.Anything, "p", 300).Return("the story", nil).Once()
	_, err = f.svc.Generate(ctx, "s1", "p", 300)
	require.NoError(t, err)

	name, content, err := f.svc.Download(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "generated-text.txt", name)
	assert.Equal(t, "the story", content)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*entity.Session, error) {
	return nil, errors.New("redis down")
}

func (failingStore) Save(context.Context, *entity.Session) error {
	return errors.New("redis down")
}

var _ repository.SessionRepository = failingStore{}

func TestSessionStoreFailure(t *testing.T) {
	gen := &mockGenerator{}
	svc := NewService(gen, failingStore{}, memory.NewInFlightGuard(), Options{})

	_, err := svc.Session(context.Background(), "s1")
	assert.Equal(t, apperrors.CodeCacheError, appCode(t, err))

	_, err = svc.Generate(context.Background(), "s1", "p", 300)
	assert.Equal(t, apperrors.CodeCacheError, appCode(t, err))
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}
