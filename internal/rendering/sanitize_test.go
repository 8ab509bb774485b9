package rendering

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeDisplayText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "bad audio", "bad audio"},
		{"trim and collapse", "  bad \n\t audio  ", "bad audio"},
		{"control chars", "bad\x00\x1b[31m audio", "bad[31m audio"},
		{"format chars", "bad\u200baudio", "badaudio"},
		{"empty", "", ""},
		{"only spaces", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeDisplayText(tt.input))
		})
	}
}

func TestSanitizeDisplayText_Length(t *testing.T) {
	exact := strings.Repeat("é", MaxDisplayTextLength)
	assert.Equal(t, exact, SanitizeDisplayText(exact))

	out := SanitizeDisplayText(exact + "more")
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, MaxDisplayTextLength+3, utf8.RuneCountInString(out))
}
