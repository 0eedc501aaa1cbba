package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTask(t *testing.T) {
	tests := []struct {
		name, in, url, text string
	}{
		{"url first", "https://example.com のタイトルを取得して", "https://example.com", "のタイトルを取得して"},
		{"url in middle", "open http://a.test/x?q=1 and click login", "http://a.test/x?q=1", "open  and click login"},
		{"ideographic space after url", "https://example.com\u3000のタイトルを取得して", "https://example.com", "のタイトルを取得して"},
		{"no-break space after url", "see https://example.com/a\u00a0now", "https://example.com/a", "see \u00a0now"},
		{"no url", "  take a screenshot ", "", "take a screenshot"},
		{"first url wins", "go https://a.test then https://b.test", "https://a.test", "go  then https://b.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := ParseTask(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.url, task.URL)
			assert.Equal(t, tt.text, task.Text)
		})
	}
}

func TestParseTask_Empty(t *testing.T) {
	_, err := ParseTask(" \t\n")
	assert.ErrorIs(t, err, ErrEmptyInstruction)
}
