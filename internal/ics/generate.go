package ics

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"ttcal/internal/model"
)

// DefaultProductID is the PRODID of generated calendars.
const DefaultProductID = "-//ttcal//Weekly Timetable//EN"

const localLayout = "20060102T150405"

// Event is one weekly recurring lesson as written to the calendar.
type Event struct {
	Key         string
	UID         string
	Summary     string
	Location    string
	Description string

	// Start / End are the first occurrence, in the output zone.
	Start time.Time
	End   time.Time

	// Until is the absolute recurrence bound (UTC).
	Until time.Time
	RRule string
}

// Document is a generated calendar.
type Document struct {
	Calendar *ical.Calendar
	Events   []Event
}

// String serialises the calendar with CRLF line endings on every platform.
func (d *Document) String() string {
	return d.Calendar.Serialize(ical.WithNewLineWindows)
}

// Lines returns the physical lines of the serialised calendar.
func (d *Document) Lines() []string {
	return strings.Split(strings.TrimSuffix(d.String(), "\r\n"), "\r\n")
}

// WriteTo writes the serialised calendar to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.String())
	return int64(n), err
}

// Generator builds calendars in a fixed output zone.
type Generator struct {
	Zone      Zone
	ProductID string
}

// NewGenerator returns a Generator for zone.
func NewGenerator(zone Zone) *Generator {
	return &Generator{Zone: zone, ProductID: DefaultProductID}
}

// Generate emits one weekly event per named lesson whose slot resolves to a
// weekday and a known period. Other entries are skipped silently.
func (g *Generator) Generate(t model.Timetable, s Schedule) *Document {
	loc := g.Zone.Location()

	cal := ical.NewCalendar()
	productID := g.ProductID
	if productID == "" {
		productID = DefaultProductID
	}
	cal.SetProductId(productID)
	cal.SetXWRCalName(s.Title)
	cal.SetXWRTimezone(g.Zone.Name)

	tz := cal.AddTimezone(g.Zone.Name)
	std := tz.AddStandard()
	std.SetProperty(ical.ComponentPropertyDtStart, "19700101T000000")
	std.SetProperty(ical.ComponentProperty("TZOFFSETFROM"), g.Zone.ICalOffset())
	std.SetProperty(ical.ComponentProperty("TZOFFSETTO"), g.Zone.ICalOffset())
	std.SetProperty(ical.ComponentProperty("TZNAME"), g.Zone.Abbreviation)

	// The bound is 23:59:59 local on the last day, written in UTC.
	until := s.End.At(23, 59, 59, loc).UTC()
	rule := (&rrule.ROption{Freq: rrule.WEEKLY, Until: until}).RRuleString()

	tzid := &ical.KeyValues{Key: "TZID", Value: []string{g.Zone.Name}}

	doc := &Document{Calendar: cal}
	for _, key := range t.Keys() {
		lesson := t[key]
		if lesson.Name == "" {
			continue
		}
		slot, ok := model.ParseSlotKey(key)
		if !ok {
			continue
		}
		day, ok := model.Weekday(slot.Day)
		if !ok {
			continue
		}
		clock, ok := s.Periods[slot.Period]
		if !ok {
			continue
		}

		first := FirstOccurrence(s.Start, day)
		start := first.At(clock.Hour, clock.Minute, 0, loc)
		end := start.Add(s.Duration)

		ev := Event{
			Key:         key,
			UID:         key + "-" + first.String() + "@ttcal",
			Summary:     lesson.Name,
			Location:    lesson.Room,
			Description: "Room: " + lesson.Room + " / Teacher: " + lesson.Teacher,
			Start:       start,
			End:         end,
			Until:       until,
			RRule:       rule,
		}

		ve := cal.AddEvent(ev.UID)
		ve.SetSummary(ev.Summary)
		ve.SetLocation(ev.Location)
		ve.SetDescription(ev.Description)
		ve.SetProperty(ical.ComponentPropertyDtStart, start.Format(localLayout), tzid)
		ve.SetProperty(ical.ComponentPropertyDtEnd, end.Format(localLayout), tzid)
		ve.SetProperty(ical.ComponentPropertyRrule, rule)

		doc.Events = append(doc.Events, ev)
	}
	return doc
}

// FirstOccurrence returns the first date on or after start that falls on the
// given Monday=0 weekday ordinal.
func FirstOccurrence(start Date, weekday int) Date {
	// time.Weekday counts Sunday=0, so Monday=0 ordinals shift by one.
	target := weekday + 1
	days := ((target-int(start.Weekday()))%7 + 7) % 7
	return start.AddDays(days)
}
