// Package wildcard provides glob-style pattern matching for entity searches.
//
// Patterns support `*` (any run of characters) and `?` (exactly one
// character); all other characters match literally and case-insensitively.
// Patterns without wildcards degrade to a case-insensitive equality check,
// which is the common path for exact name lookups.
package wildcard

import (
	"regexp"
	"strings"
	"sync"
)

var (
	cacheMu sync.RWMutex
	cache   = map[string]*regexp.Regexp{}
)

// maxCacheSize bounds the compiled-pattern cache. Search patterns come from
// callers, so an unbounded cache would be a memory leak waiting for a chatty
// client.
const maxCacheSize = 256

// HasWildcards reports whether the pattern contains any glob metacharacters.
func HasWildcards(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// Match reports whether s matches the glob pattern, case-insensitively.
// An empty pattern matches anything.
func Match(pattern, s string) bool {
	if pattern == "" {
		return true
	}
	if !HasWildcards(pattern) {
		return strings.EqualFold(pattern, s)
	}

	re, err := compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// compile translates a glob pattern into an anchored case-insensitive regexp,
// caching the result.
func compile(pattern string) (*regexp.Regexp, error) {
	cacheMu.RLock()
	re, ok := cache[pattern]
	cacheMu.RUnlock()
	if ok {
		return re, nil
	}

	var sb strings.Builder
	sb.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	if len(cache) >= maxCacheSize {
		cache = map[string]*regexp.Regexp{}
	}
	cache[pattern] = re
	cacheMu.Unlock()

	return re, nil
}
