package ics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	appLog "ttcal/internal/log"
)

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// PeriodTimes maps period identifiers ("1", "2", ...) to their start time.
type PeriodTimes map[string]ClockTime

// DefaultPeriodTimes returns a fresh copy of the built-in period table.
func DefaultPeriodTimes() PeriodTimes {
	return PeriodTimes{
		"1": {Hour: 9, Minute: 0},
		"2": {Hour: 10, Minute: 40},
		"3": {Hour: 13, Minute: 0},
		"4": {Hour: 14, Minute: 40},
		"5": {Hour: 16, Minute: 20},
	}
}

var ErrInvalidClock = errors.New("invalid clock time")

// ParseClock parses "HH:MM" (single-digit hours are accepted).
func ParseClock(s string) (ClockTime, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("%w %q: missing ':'", ErrInvalidClock, s)
	}
	if !isDigits(hs) || !isDigits(ms) {
		return ClockTime{}, fmt.Errorf("%w %q: expected digits", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w %q: %v", ErrInvalidClock, s, err)
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w %q: %v", ErrInvalidClock, s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || len(ms) != 2 {
		return ClockTime{}, fmt.Errorf("%w %q: out of range", ErrInvalidClock, s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParsePeriodTimes parses raw "HH:MM" overrides. Malformed entries are
// reported individually and left out; the rest are returned.
func ParsePeriodTimes(raw map[string]string, r appLog.Reporter) PeriodTimes {
	out := make(PeriodTimes, len(raw))
	for period, v := range raw {
		c, err := ParseClock(v)
		if err != nil {
			if r != nil {
				r.Error("dropping malformed period time", err, "period", period, "value", v)
			}
			continue
		}
		out[period] = c
	}
	return out
}

// MergePeriodTimes returns a new map holding base overlaid with overrides.
// Neither argument is modified.
func MergePeriodTimes(base, overrides PeriodTimes) PeriodTimes {
	out := make(PeriodTimes, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
