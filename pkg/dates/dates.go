// Package dates converts between the two appointment date encodings found in
// stored records, DD.MM.YYYY and YYYY-MM-DD, and orders date+time pairs.
package dates

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"autosnap/pkg/logger"
)

const (
	LayoutISO     = "2006-01-02"
	LayoutDisplay = "02.01.2006"
	LayoutTime    = "15:04"
)

var (
	ErrUnparseableDate = errors.New("unparseable date")

	reDisplay = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	reISO     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	sortLayouts = []string{
		LayoutISO + " " + LayoutTime,
		LayoutDisplay + " " + LayoutTime,
	}
)

// Normalizer rewrites stored dates to YYYY-MM-DD. In lenient mode an
// unrecognised date becomes today's date and a warning is logged; in strict
// mode it is an error.
type Normalizer struct {
	Strict bool
	Now    func() time.Time
	Log    *logger.Logger
}

func NewNormalizer(strict bool, log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Discard()
	}
	return &Normalizer{Strict: strict, Now: time.Now, Log: log}
}

func (n *Normalizer) Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case reDisplay.MatchString(s):
		parts := strings.Split(s, ".")
		return parts[2] + "-" + parts[1] + "-" + parts[0], nil
	case reISO.MatchString(s):
		return s, nil
	}

	if n.Strict {
		return "", errors.Join(ErrUnparseableDate, errors.New(s))
	}
	today := n.now().Format(LayoutISO)
	if n.Log != nil {
		n.Log.Warn("Unparseable date replaced with today", "date", s, "today", today)
	}
	return today, nil
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// ToDisplay is the inverse of Normalize for YYYY-MM-DD input. Any other input
// is returned unchanged.
func ToDisplay(s string) string {
	s = strings.TrimSpace(s)
	if !reISO.MatchString(s) {
		return s
	}
	parts := strings.Split(s, "-")
	return parts[2] + "." + parts[1] + "." + parts[0]
}

// Formats holds both encodings of one calendar day.
type Formats struct {
	DDMMYYYY string
	YYYYMMDD string
}

func DualFormats(day time.Time) Formats {
	return Formats{
		DDMMYYYY: day.Format(LayoutDisplay),
		YYYYMMDD: day.Format(LayoutISO),
	}
}

func (f Formats) Matches(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && (s == f.DDMMYYYY || s == f.YYYYMMDD)
}

// ParseDay reads a query date in either encoding.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{LayoutISO, LayoutDisplay} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Join(ErrUnparseableDate, errors.New(s))
}

// Key is a sortable date+time. OK is false when the pair could not be parsed.
type Key struct {
	At time.Time
	OK bool
}

func SortKey(date, clock string) Key {
	combined := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	for _, layout := range sortLayouts {
		if t, err := time.Parse(layout, combined); err == nil {
			return Key{At: t, OK: true}
		}
	}
	return Key{}
}

// Less orders parsed keys chronologically and places unparsed keys after
// every parsed one. Unparsed keys compare equal, so a stable sort keeps
// their input order.
func Less(a, b Key) bool {
	if a.OK != b.OK {
		return a.OK
	}
	if !a.OK {
		return false
	}
	return a.At.Before(b.At)
}
