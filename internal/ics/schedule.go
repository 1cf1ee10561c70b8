package ics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Zone is the single fixed output timezone. It has no daylight-saving rules,
// so wall-clock times stay stable across the whole semester.
type Zone struct {
	// Name is the TZID emitted on every timestamp, e.g. "Asia/Tokyo".
	Name string
	// Abbreviation is the TZNAME of the standard-time definition, e.g. "JST".
	Abbreviation string
	// OffsetSeconds is the fixed offset east of UTC.
	OffsetSeconds int
}

// DefaultZone is Japan Standard Time.
func DefaultZone() Zone {
	return Zone{Name: "Asia/Tokyo", Abbreviation: "JST", OffsetSeconds: 9 * 60 * 60}
}

// Location returns a fixed-offset location for the zone.
func (z Zone) Location() *time.Location {
	return time.FixedZone(z.Abbreviation, z.OffsetSeconds)
}

// ICalOffset formats the offset as used by TZOFFSETFROM/TZOFFSETTO ("+0900").
func (z Zone) ICalOffset() string {
	sign := '+'
	off := z.OffsetSeconds
	if off < 0 {
		sign = '-'
		off = -off
	}
	return fmt.Sprintf("%c%02d%02d", sign, off/3600, (off%3600)/60)
}

// ParseOffset parses "+09:00", "+0900", "-05:30" or "Z" into seconds east of UTC.
func ParseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "Z" || s == "" {
		return 0, nil
	}
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	digits := strings.ReplaceAll(s[1:], ":", "")
	if len(digits) != 4 {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	h, err := strconv.Atoi(digits[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	m, err := strconv.Atoi(digits[2:])
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	if h > 14 || m > 59 {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	return sign * (h*3600 + m*60), nil
}

// Date is a calendar date without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for constants; it panics on malformed input.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// At returns the wall-clock time h:m:s on d in loc.
func (d Date) At(h, m, s int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, h, m, s, 0, loc)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.At(0, 0, 0, time.UTC).Weekday()
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.At(0, 0, 0, time.UTC).AddDate(0, 0, n))
}

func (d Date) String() string {
	return d.At(0, 0, 0, time.UTC).Format(dateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Schedule holds the scheduling parameters of one calendar. All fields are
// expected to be defaulted by the caller.
type Schedule struct {
	Title    string
	Start    Date
	End      Date
	Duration time.Duration
	Periods  PeriodTimes
}
