// Package pattern compiles shell-style exclusion patterns into regexp matchers.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Compile translates a glob-like pattern into a regular expression matcher.
// '.' matches a literal dot, '*' one or more characters, '?' a single
// character. The translation is an ordered textual substitution applied to
// every occurrence of each special character, and matching is unanchored.
func Compile(pattern string) (*regexp.Regexp, error) {
	expr := strings.ReplaceAll(pattern, ".", `\.`)
	expr = strings.ReplaceAll(expr, "*", ".+")
	expr = strings.ReplaceAll(expr, "?", ".")

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
	}
	return re, nil
}

// CompileAll compiles a list of patterns, failing on the first invalid one.
func CompileAll(patterns []string) ([]*regexp.Regexp, error) {
	matchers := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := Compile(p)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, re)
	}
	return matchers, nil
}

// MatchAny reports whether any matcher matches s.
func MatchAny(matchers []*regexp.Regexp, s string) bool {
	for _, re := range matchers {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
