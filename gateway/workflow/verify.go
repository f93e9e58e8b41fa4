package workflow

import (
	"strings"
	"time"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
)

// NormalizeDigits strips formatting from a phone value, keeping digits only.
func NormalizeDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// lastFour returns the trailing four digits of a normalized number, or the
// whole thing when fewer than four remain. A short on-file number compares
// against whatever is available rather than failing outright.
func lastFour(digits string) string {
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// VerifyLastFour compares a client-supplied fragment against the trailing
// digits of the phone number on file. Pure function: no side effects, no
// external calls. A mismatch is a business outcome that forces the email
// fallback, not an error.
func VerifyLastFour(onFilePhone, fragment string, now time.Time) contractx.VerificationResult {
	onFile := lastFour(NormalizeDigits(onFilePhone))
	supplied := NormalizeDigits(fragment)

	match := onFile != "" && supplied == onFile
	return contractx.VerificationResult{
		Match:      match,
		LastFour:   onFile,
		VerifiedAt: now.UTC(),
	}
}
