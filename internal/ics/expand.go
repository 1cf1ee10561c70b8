package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "ttcal/internal/log"
	"ttcal/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 500
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps each event's expansion. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandOccurrences expands the weekly rules of generated events into
// concrete occurrences within the configured window, ordered by start.
func ExpandOccurrences(events []Event, cfg ExpandConfig) ([]model.Occurrence, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]model.Occurrence, 0)
	for _, ev := range events {
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.WEEKLY,
			Dtstart: ev.Start,
			Until:   ev.Until,
		})
		if err != nil {
			appLog.Error("expand: failed to build rule", err, "key", ev.Key)
			continue
		}

		starts := r.Between(cfg.RangeStart, cfg.RangeEnd, true)
		if len(starts) > cfg.MaxOccurrencesPerEvent {
			starts = starts[:cfg.MaxOccurrencesPerEvent]
		}

		dur := ev.End.Sub(ev.Start)
		for _, s := range starts {
			out = append(out, model.Occurrence{
				Key:      ev.Key,
				UID:      ev.UID,
				Summary:  ev.Summary,
				Location: ev.Location,
				Start:    s,
				End:      s.Add(dur),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].Key < out[j].Key
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}
