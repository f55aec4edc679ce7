package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerationRequest(t *testing.T) {
	limits := DefaultLengthLimits

	tests := []struct {
		name    string
		prompt  string
		length  int
		want    GenerationRequest
		wantErr error
	}{
		{name: "valid", prompt: "Once upon a time", length: 300, want: GenerationRequest{Prompt: "Once upon a time", Length: 300}},
		{name: "zero length uses default", prompt: "hi", length: 0, want: GenerationRequest{Prompt: "hi", Length: 300}},
		{name: "keeps surrounding whitespace", prompt: "  hi  ", length: 50, want: GenerationRequest{Prompt: "  hi  ", Length: 50}},
		{name: "upper bound", prompt: "hi", length: 1000, want: GenerationRequest{Prompt: "hi", Length: 1000}},
		{name: "blank prompt", prompt: " \t\n", length: 300, wantErr: ErrEmptyPrompt},
		{name: "empty prompt", prompt: "", length: 300, wantErr: ErrEmptyPrompt},
		{name: "below range", prompt: "hi", length: 49, wantErr: ErrLengthOutOfRange},
		{name: "above range", prompt: "hi", length: 1001, wantErr: ErrLengthOutOfRange},
		{name: "negative", prompt: "hi", length: -5, wantErr: ErrLengthOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewGenerationRequest(tt.prompt, tt.length, limits)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTheme(t *testing.T) {
	th, ok := ParseTheme(" Light ")
	assert.True(t, ok)
	assert.Equal(t, ThemeLight, th)

	th, ok = ParseTheme("dark")
	assert.True(t, ok)
	assert.Equal(t, ThemeDark, th)

	_, ok = ParseTheme("sepia")
	assert.False(t, ok)
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession("sess-1", 300, ThemeDark)
	assert.Equal(t, SessionStatusIdle, s.Status)

	s.Fail("previous failure")
	s.Begin("Once upon a time", 500)
	assert.True(t, s.IsGenerating())
	assert.Empty(t, s.Error)
	assert.NotNil(t, s.StartedAt)
	assert.Equal(t, 500, s.Length)

	s.Succeed("Once upon a time, there was a fox.")
	assert.False(t, s.IsGenerating())
	assert.Nil(t, s.StartedAt)
	assert.True(t, s.HasText())
	assert.Equal(t, 8, s.WordCount())
	assert.Equal(t, 34, s.CharCount())

	s.Begin("again", 300)
	s.Fail("backend returned 500")
	assert.False(t, s.HasText())
	assert.Equal(t, "backend returned 500", s.Error)
	assert.Equal(t, SessionStatusIdle, s.Status)
}

func TestSessionClearKeepsSettings(t *testing.T) {
	s := NewSession("sess-1", 750, ThemeLight)
	s.Begin("prompt", 750)
	s.Succeed("text")

	s.Clear()

	assert.Empty(t, s.Prompt)
	assert.Empty(t, s.Text)
	assert.Empty(t, s.Error)
	assert.Equal(t, 750, s.Length)
	assert.Equal(t, ThemeLight, s.Theme)
}

func TestCharCountCountsRunes(t *testing.T) {
	s := NewSession("s", 300, ThemeDark)
	s.Succeed("héllo 世界")
	assert.Equal(t, 8, s.CharCount())
	assert.Equal(t, 2, s.WordCount())
}
