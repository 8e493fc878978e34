package reference

import (
	"regexp"
	"strconv"
	"strings"
)

var casFormatRe = regexp.MustCompile(`^\d{2,7}-\d{2}-\d$`)

// ValidateCAS rebuilds a CAS number with the check digit computed from its
// first two parts.  Only the first whitespace separated token is considered.
// It returns "" when the input holds no digits to check or has a non-digit
// in them.
//
//	digits = part1 + part2
//	check  = Σ digit[len-1-i] * (i+1)  mod 10
func ValidateCAS(cas string) string {
	fields := strings.Fields(cas)
	if len(fields) == 0 {
		return ""
	}
	parts := strings.Split(fields[0], "-")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	digits := strings.Join(parts, "")
	if digits == "" {
		return ""
	}
	sum := 0
	n := len(digits)
	for i := 0; i < n; i++ {
		c := digits[n-1-i]
		if c < '0' || c > '9' {
			return ""
		}
		sum += int(c-'0') * (i + 1)
	}
	return strings.Join(parts, "-") + "-" + strconv.Itoa(sum%10)
}

// IsValidCAS reports whether cas is well formed and carries the right check
// digit.
func IsValidCAS(cas string) bool {
	return casFormatRe.MatchString(cas) && ValidateCAS(cas) == cas
}

//Personal.AI order the ending
