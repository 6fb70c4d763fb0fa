package utils

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// NormalizePhone formats raw as E.164 using region for numbers without a
// country code. Numbers libphonenumber rejects are reduced to their digits.
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	num, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err == nil && libphonenumber.IsValidNumber(num) {
		return libphonenumber.Format(num, libphonenumber.E164)
	}

	var b strings.Builder
	for i, r := range raw {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
