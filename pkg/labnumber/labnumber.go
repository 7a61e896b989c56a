// Package labnumber handles the human-assigned lab numbers that tie patient
// records together across departments.
//
// A lab number is a series identifier such as "GM/2024/0153". Phlebotomy
// records carry an "-F" suffix and records that were processed automatically
// carry "-S". Records from different departments belong to the same patient
// visit when their base numbers match.
package labnumber

import (
	"regexp"
	"strings"
)

const (
	SuffixPhlebotomy    = "F"
	SuffixAutoProcessed = "S"
)

var validBase = regexp.MustCompile(`^[A-Z0-9][A-Z0-9/-]*$`)

// Normalize trims surrounding whitespace and upper-cases s.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Base returns the normalized lab number without a recognised suffix.
func Base(s string) string {
	n := Normalize(s)
	if Suffix(n) != "" {
		return n[:len(n)-2]
	}
	return n
}

// Suffix returns "F", "S" or "" for s.
func Suffix(s string) string {
	n := Normalize(s)
	if len(n) < 3 || n[len(n)-2] != '-' {
		return ""
	}
	switch sfx := n[len(n)-1:]; sfx {
	case SuffixPhlebotomy, SuffixAutoProcessed:
		return sfx
	}
	return ""
}

func IsPhlebotomy(s string) bool {
	return Suffix(s) == SuffixPhlebotomy
}

func IsAutoProcessed(s string) bool {
	return Suffix(s) == SuffixAutoProcessed
}

// Match reports whether a and b refer to the same test series.
func Match(a, b string) bool {
	ba := Base(a)
	return ba != "" && ba == Base(b)
}

// Valid reports whether s is a usable lab number.
func Valid(s string) bool {
	return validBase.MatchString(Base(s))
}
