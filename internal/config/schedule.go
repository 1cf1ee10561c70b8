package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ttcal/internal/ics"
	appLog "ttcal/internal/log"
)

// Request carries the raw, caller-supplied scheduling parameters. Empty
// fields take the configured defaults.
type Request struct {
	Title string
	Start string
	End   string
	// Times is a JSON object of period overrides, e.g. {"1":"08:50"}.
	Times    string
	Duration string
}

// ResolveSchedule applies per-field defaults to req. Malformed values are
// reported to r and replaced by their default; malformed period overrides are
// dropped one by one.
func (c *Config) ResolveSchedule(req Request, r appLog.Reporter) ics.Schedule {
	if r == nil {
		r = appLog.Default()
	}

	s := ics.Schedule{
		Title:    c.Defaults.Title,
		Start:    resolveDate(req.Start, c.Defaults.Start, defaultStart, "start", r),
		End:      resolveDate(req.End, c.Defaults.End, defaultEnd, "end", r),
		Duration: time.Duration(c.Defaults.Duration) * time.Minute,
	}
	if req.Title != "" {
		s.Title = req.Title
	}

	if req.Duration != "" {
		n, err := strconv.Atoi(strings.TrimSpace(req.Duration))
		switch {
		case err != nil:
			r.Error("ignoring malformed duration", err, "value", req.Duration)
		case n <= 0:
			r.Error("ignoring non-positive duration", fmt.Errorf("duration %d", n), "value", req.Duration)
		default:
			s.Duration = time.Duration(n) * time.Minute
		}
	}

	// Configured periods were validated by Normalize.
	base := ics.ParsePeriodTimes(c.Defaults.Periods, nil)
	if len(base) == 0 {
		base = ics.DefaultPeriodTimes()
	}
	s.Periods = ics.MergePeriodTimes(base, ics.ParsePeriodTimes(parseTimes(req.Times, r), r))

	return s
}

func resolveDate(v, configured, builtin, field string, r appLog.Reporter) ics.Date {
	if v != "" {
		d, err := ics.ParseDate(v)
		if err == nil {
			return d
		}
		r.Error("ignoring malformed date", err, "field", field, "value", v)
	}
	if d, err := ics.ParseDate(configured); err == nil {
		return d
	}
	return ics.MustDate(builtin)
}

// parseTimes decodes the JSON override object. A malformed object is dropped
// as a whole; entries whose value is not a string become unparseable clock
// values and are dropped individually later.
func parseTimes(raw string, r appLog.Reporter) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		r.Error("ignoring malformed period times", err, "value", raw)
		return nil
	}
	out := make(map[string]string, len(obj))
	for period, v := range obj {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			s = string(v)
		}
		out[period] = s
	}
	return out
}
