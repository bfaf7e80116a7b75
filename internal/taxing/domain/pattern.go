package domain

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchPattern matches value against a comma separated pattern list.
//
// Each item is one of:
//   - an exact code, compared case-insensitively
//   - a glob using * and ?
//   - an inclusive range "lo-hi" where lo, hi and the value have the same length
//
// An empty pattern matches anything, a non-empty pattern never matches an
// empty value.
func MatchPattern(pattern, value string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return true
	}
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	for _, item := range strings.Split(pattern, ",") {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if matchItem(item, value) {
			return true
		}
	}
	return false
}

func matchItem(item, value string) bool {
	if strings.ContainsAny(item, "*?") {
		ok, err := doublestar.Match(item, value)
		return err == nil && ok
	}
	if item == value {
		return true
	}
	// "US-CA" is a code, not a range, when the value is that long.
	if lo, hi, ok := strings.Cut(item, "-"); ok && lo != "" && len(lo) == len(hi) && len(value) == len(lo) {
		return lo <= value && value <= hi
	}
	return false
}
