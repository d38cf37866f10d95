package report

import (
	"fmt"
	"strings"

	"github.com/wasilibs/go-re2"
	"golang.org/x/text/unicode/norm"
)

// Cleaner strips model meta-commentary from a synthesized report. Models like
// to open with "Here is your report:" or close with an offer to help further;
// neither belongs in a dispatched email body.
type Cleaner struct {
	patterns []*re2.Regexp
	blanks   *re2.Regexp
}

// NewCleaner compiles the given strip patterns into a Cleaner.
func NewCleaner(patterns []string) (*Cleaner, error) {
	compiled := make([]*re2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := re2.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid strip pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	return &Cleaner{
		patterns: compiled,
		blanks:   re2.MustCompile(`\n{3,}`),
	}, nil
}

// Clean normalizes the text to NFC, removes the configured meta-commentary
// patterns and collapses the blank runs stripping leaves behind.
func (c *Cleaner) Clean(text string) string {
	out := norm.NFC.String(text)
	for _, re := range c.patterns {
		out = re.ReplaceAllString(out, "")
	}
	out = c.blanks.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
