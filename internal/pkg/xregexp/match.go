// Package xregexp matches whole strings against user supplied patterns. Patterns
// without regex metacharacters compare literally; others are compiled once with
// regexp2 (lookarounds allowed) and anchored at both ends.
package xregexp

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2/v2"

	"github.com/looplj/shellstate/internal/pkg/xmap"
)

// Matcher is a compiled pattern.
type Matcher struct {
	pattern string
	exact   bool
	regex   *regexp2.Regexp
}

type cached struct {
	matcher *Matcher
	err     error
}

var globalCache = xmap.New[string, cached]()

// Compile returns the matcher for pattern, reusing earlier compilations.
func Compile(pattern string) (*Matcher, error) {
	if c, ok := globalCache.Load(pattern); ok {
		return c.matcher, c.err
	}

	c := compile(pattern)
	globalCache.Store(pattern, c)

	return c.matcher, c.err
}

func compile(pattern string) cached {
	if !containsRegexChars(pattern) {
		return cached{matcher: &Matcher{pattern: pattern, exact: true}}
	}

	re, err := regexp2.Compile(ensureAnchored(pattern), regexp2.None)
	if err != nil {
		return cached{err: fmt.Errorf("compile pattern %q: %w", pattern, err)}
	}

	return cached{matcher: &Matcher{pattern: pattern, regex: re}}
}

// Match reports whether s matches the whole pattern.
func (m *Matcher) Match(s string) bool {
	if m.exact {
		return m.pattern == s
	}

	ok, _ := m.regex.MatchString(s)

	return ok
}

func (m *Matcher) String() string {
	return m.pattern
}

// MatchString reports whether s matches pattern. Invalid patterns match nothing.
func MatchString(pattern string, s string) bool {
	m, err := Compile(pattern)
	if err != nil {
		return false
	}

	return m.Match(s)
}

// FilterFunc keeps the items whose text matches pattern. An empty or invalid pattern
// keeps nothing.
func FilterFunc[E any](items []E, pattern string, text func(E) string) []E {
	matched := make([]E, 0)

	if pattern == "" {
		return matched
	}

	m, err := Compile(pattern)
	if err != nil {
		return matched
	}

	for _, item := range items {
		if m.Match(text(item)) {
			matched = append(matched, item)
		}
	}

	return matched
}

// Filter keeps the strings that match pattern.
func Filter(items []string, pattern string) []string {
	return FilterFunc(items, pattern, func(s string) string { return s })
}

// ensureAnchored wraps pattern in ^...$ unless it already carries the anchors. Leading
// inline flag groups such as (?i) stay in front.
func ensureAnchored(pattern string) string {
	flags, body := splitFlags(pattern)

	if !strings.HasPrefix(body, "^") {
		body = "^" + body
	}

	if !strings.HasSuffix(body, "$") {
		body += "$"
	}

	return flags + body
}

func splitFlags(pattern string) (string, string) {
	if !strings.HasPrefix(pattern, "(?") {
		return "", pattern
	}

	end := strings.IndexByte(pattern, ')')
	if end < 0 {
		return "", pattern
	}

	for _, r := range pattern[2:end] {
		if !strings.ContainsRune("imsxn", r) {
			return "", pattern
		}
	}

	if end == 2 {
		return "", pattern
	}

	return pattern[:end+1], pattern[end+1:]
}

func containsRegexChars(pattern string) bool {
	return strings.ContainsAny(pattern, "*?+[]{}()^$.|\\")
}
