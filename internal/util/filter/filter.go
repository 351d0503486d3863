// Package filter provides glob-based entry filtering shared by the CLI
// listing and recursive transfers.
package filter

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/objectdesk/objectdesk/internal/models"
)

// Config holds filter configuration.
type Config struct {
	// Include patterns matched against the entry name. Empty means include all.
	// Example: []string{"*.csv", "report-*"}
	Include []string

	// Exclude patterns matched against the entry name. Takes precedence over Include.
	Exclude []string

	// PathInclude patterns matched against the key relative to the listed
	// prefix. "**" spans any number of segments: "logs/**/*.gz".
	PathInclude []string

	// Search terms (case-insensitive substring match). All must match.
	Search []string
}

// IsZero reports whether the config filters nothing.
func (c Config) IsZero() bool {
	return len(c.Include) == 0 && len(c.Exclude) == 0 && len(c.PathInclude) == 0 && len(c.Search) == 0
}

// Validate checks every pattern for syntax errors.
func (c Config) Validate() error {
	for _, group := range [][]string{c.Include, c.Exclude, c.PathInclude} {
		for _, p := range group {
			if !doublestar.ValidatePattern(p) {
				return &PatternError{Pattern: p}
			}
		}
	}
	return nil
}

// PatternError reports a malformed glob.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid glob pattern: " + e.Pattern
}

// Apply returns the entries under prefix that pass the filter. Folders are
// matched by name like files.
func Apply(entries []models.Entry, prefix string, config Config) []models.Entry {
	if config.IsZero() {
		return entries
	}

	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if Matches(e, prefix, config) {
			out = append(out, e)
		}
	}
	return out
}

// Matches reports whether a single entry passes the filter.
func Matches(e models.Entry, prefix string, config Config) bool {
	name := e.Name()

	if len(config.PathInclude) > 0 {
		rel := e.NameIn(prefix)
		if !anyMatch(config.PathInclude, rel) {
			return false
		}
	}

	if anyMatch(config.Exclude, name) {
		return false
	}

	if len(config.Include) > 0 && !anyMatch(config.Include, name) {
		return false
	}

	if len(config.Search) > 0 {
		lower := strings.ToLower(name)
		for _, term := range config.Search {
			if !strings.Contains(lower, strings.ToLower(term)) {
				return false
			}
		}
	}

	return true
}

func anyMatch(patterns []string, s string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, s); ok {
			return true
		}
	}
	return false
}

// ParsePatternList parses a comma-separated list of patterns into a slice.
// Example: "*.dat,*.txt" -> []string{"*.dat", "*.txt"}
func ParsePatternList(patternStr string) []string {
	if patternStr == "" {
		return nil
	}
	parts := strings.Split(patternStr, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
