package service

import (
	"math/rand/v2"
	"strings"

	"github.com/gosimple/slug"
)

const (
	maxDerivedCodeLen  = 12
	minExplicitCodeLen = 3
	maxExplicitCodeLen = 32
	codeSuffixLen      = 4
	maxCodeAttempts    = 10
	fallbackCodePrefix = "AFF"
	codeAlphabet       = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// deriveReferralCode builds the base code from an affiliate name:
// transliterated, upper-cased, alphanumerics only, at most 12 characters.
func deriveReferralCode(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(slug.Make(name)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == maxDerivedCodeLen {
			break
		}
	}
	if b.Len() == 0 {
		return fallbackCodePrefix
	}
	return b.String()
}

func withRandomSuffix(base string) string {
	suffix := make([]byte, codeSuffixLen)
	for i := range suffix {
		suffix[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return base + "-" + string(suffix)
}

// normalizeReferralCode validates an explicitly supplied code.
func normalizeReferralCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < minExplicitCodeLen || len(code) > maxExplicitCodeLen {
		return "", false
	}
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", false
		}
	}
	return code, true
}
