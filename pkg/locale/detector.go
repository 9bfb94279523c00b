// Package locale maps service center phone numbers to the country and
// wall clock their calendar days are counted in.
package locale

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// CountryFromPhone returns the supported country whose prefix phone starts
// with, or nil.
func CountryFromPhone(phone string) *Country {
	normalized := strings.TrimSpace(phone)
	if normalized == "" {
		return nil
	}

	for _, code := range SupportedRegions {
		country := Countries[code]
		for _, prefix := range country.PhonePrefixes {
			if strings.HasPrefix(normalized, prefix) {
				return &country
			}
		}
	}
	return nil
}

func TimezoneFromPhone(phone string) string {
	if country := CountryFromPhone(phone); country != nil {
		return country.DefaultTimezone
	}
	return DefaultTimezone
}

// Location never fails; unknown zones fall back to UTC.
func Location(phone string) *time.Location {
	loc, err := time.LoadLocation(TimezoneFromPhone(phone))
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today is the calendar day of now on the wall clock of phone's country.
func Today(now time.Time, phone string) time.Time {
	local := now.In(Location(phone))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
