package notify

import (
	"regexp"
	"strings"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// NormalizePhone coerces a stored phone number into E.164 form. Numbers
// without a leading + get the default country code prefixed; numbers already
// starting with the bare country digits just gain the +. Returns "" when the
// result still fails E.164 validation.
func NormalizePhone(raw, defaultCountryCode string) string {
	number := strings.TrimSpace(raw)
	if number == "" {
		return ""
	}

	cc := strings.TrimPrefix(defaultCountryCode, "+")
	if !strings.HasPrefix(number, "+") {
		if cc != "" && strings.HasPrefix(number, cc) {
			number = "+" + number
		} else {
			number = "+" + cc + strings.TrimLeft(number, "0")
		}
	}

	if !e164Pattern.MatchString(number) {
		return ""
	}
	return number
}
