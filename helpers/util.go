package helpers

import (
	"errors"
	"strings"
)

func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// ContainsAny reports whether s contains any of the given substrings,
// case-insensitively.
func ContainsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// CollapseWhitespace replaces runs of whitespace with single spaces and trims
// the result.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
