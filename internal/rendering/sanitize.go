package rendering

import (
	"strings"
	"unicode"
)

// MaxDisplayTextLength caps untrusted text shown to users, in runes
const MaxDisplayTextLength = 300

// SanitizeDisplayText prepares untrusted upstream text for display.
// Control and format characters are dropped, whitespace runs collapse to one
// space and the result is capped at MaxDisplayTextLength runes plus an ellipsis.
// HTML escaping is left to html/template.
func SanitizeDisplayText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := 0
	pendingSpace := false
	truncated := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) || r == unicode.ReplacementChar {
			continue
		}
		need := 1
		if pendingSpace {
			need = 2
		}
		if runes+need > MaxDisplayTextLength {
			truncated = true
			break
		}
		if pendingSpace {
			b.WriteByte(' ')
			runes++
			pendingSpace = false
		}
		b.WriteRune(r)
		runes++
	}

	if truncated {
		return b.String() + "..."
	}
	return b.String()
}
