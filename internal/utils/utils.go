package utils

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var subredditNameRegex = regexp.MustCompile(`^[a-z0-9_]{1,50}$`)

// NormalizeSubredditName lowercases and trims a subreddit name. All database
// writes go through this so the unique key stays canonical.
func NormalizeSubredditName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "r/")
	name = strings.TrimPrefix(name, "/r/")
	return strings.ToLower(name)
}

// IsValidSubredditName reports whether a normalized name matches the allowed
// pattern (lowercase letters, digits, underscore, 1-50 chars).
func IsValidSubredditName(name string) bool {
	return subredditNameRegex.MatchString(name)
}

// SanitizeUsername strips the u/ prefix and surrounding whitespace.
func SanitizeUsername(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "u/")
}

// IsValidAuthor filters deleted and system accounts out of discovery.
func IsValidAuthor(author string) bool {
	if author == "" || author == "[deleted]" || author == "[removed]" {
		return false
	}
	switch strings.ToLower(author) {
	case "automoderator", "reddit":
		return false
	}
	return len(author) <= 20
}

func ContainsString(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}

func UniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, val := range input {
		if !seen[val] {
			result = append(result, val)
			seen[val] = true
		}
	}
	return result
}

// TruncateString cuts s to at most max bytes without splitting a UTF-8 rune.
func TruncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8RuneStart(cut[len(cut)-1]) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LowerQuartile returns the 25th-percentile value of vals (nearest-rank).
// Returns 0 for an empty slice.
func LowerQuartile(vals []int64) int64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]int64, len(vals))
	copy(sorted, vals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rank := int(math.Ceil(0.25*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	return sorted[rank]
}

// Round2 rounds to two decimal places, the precision stored for scores.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
