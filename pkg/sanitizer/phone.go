package sanitizer

import (
	"strings"

	"autosnap/pkg/locale"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone returns phone in E.164, or "" when no supported region
// can parse it.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range locale.SupportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}
