package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpilot/internal/config"
)

func TestCleaner_DefaultPatterns(t *testing.T) {
	cleaner, err := NewCleaner(config.DefaultStripPatterns)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain report untouched",
			in:   "Apple rose 1.5% on strong iPhone demand.",
			want: "Apple rose 1.5% on strong iPhone demand.",
		},
		{
			name: "leading filler stripped",
			in:   "Sure! Apple rose 1.5% today.",
			want: "Apple rose 1.5% today.",
		},
		{
			name: "leading narration stripped",
			in:   "I'll now search for recent news about the movers.\n\nTesla dropped sharply.",
			want: "Tesla dropped sharply.",
		},
		{
			name: "trailing offer stripped",
			in:   "Tesla dropped sharply.\n\nLet me know if you want more detail.",
			want: "Tesla dropped sharply.",
		},
		{
			name: "blank runs collapsed",
			in:   "First paragraph.\n\n\n\nSecond paragraph.",
			want: "First paragraph.\n\nSecond paragraph.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleaner.Clean(tt.in))
		})
	}
}

func TestCleaner_NormalizesUnicode(t *testing.T) {
	cleaner, err := NewCleaner(nil)
	require.NoError(t, err)

	// "é" as a combining sequence normalizes to its precomposed form.
	assert.Equal(t, "Société Générale", cleaner.Clean("Société Générale"))
}

func TestCleaner_RejectsBadPattern(t *testing.T) {
	_, err := NewCleaner([]string{`([unclosed`})
	require.Error(t, err)
}
