package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"ttcal/internal/model"
)

func testSchedule(start, end string) Schedule {
	return Schedule{
		Title:    "weekly timetable",
		Start:    MustDate(start),
		End:      MustDate(end),
		Duration: 90 * time.Minute,
		Periods:  DefaultPeriodTimes(),
	}
}

func hasLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func countLines(lines []string, want string) int {
	n := 0
	for _, l := range lines {
		if l == want {
			n++
		}
	}
	return n
}

func TestGenerateEndToEnd(t *testing.T) {
	tt := model.Timetable{
		"Mon_1": {Name: "Algorithms", Room: "B204", Teacher: "Dr. A"},
	}
	doc := NewGenerator(DefaultZone()).Generate(tt, testSchedule("2025-04-07", "2025-07-31"))

	if len(doc.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(doc.Events))
	}

	lines := doc.Lines()
	if lines[0] != "BEGIN:VCALENDAR" {
		t.Errorf("first line = %q, want BEGIN:VCALENDAR", lines[0])
	}
	if last := lines[len(lines)-1]; last != "END:VCALENDAR" {
		t.Errorf("last line = %q, want END:VCALENDAR", last)
	}

	for _, want := range []string{
		"VERSION:2.0",
		"PRODID:" + DefaultProductID,
		"X-WR-CALNAME:weekly timetable",
		"X-WR-TIMEZONE:Asia/Tokyo",
		"BEGIN:VTIMEZONE",
		"TZID:Asia/Tokyo",
		"BEGIN:STANDARD",
		"DTSTART:19700101T000000",
		"TZOFFSETFROM:+0900",
		"TZOFFSETTO:+0900",
		"TZNAME:JST",
		"END:STANDARD",
		"END:VTIMEZONE",
		"BEGIN:VEVENT",
		"SUMMARY:Algorithms",
		"LOCATION:B204",
		"DESCRIPTION:Room: B204 / Teacher: Dr. A",
		"DTSTART;TZID=Asia/Tokyo:20250407T090000",
		"DTEND;TZID=Asia/Tokyo:20250407T103000",
		"RRULE:FREQ=WEEKLY;UNTIL=20250731T145959Z",
		"END:VEVENT",
	} {
		if !hasLine(lines, want) {
			t.Errorf("missing line %q in:\n%s", want, doc.String())
		}
	}
	if n := countLines(lines, "END:VCALENDAR"); n != 1 {
		t.Errorf("expected a single VCALENDAR footer, got %d", n)
	}
	if !strings.Contains(doc.String(), "\r\n") {
		t.Errorf("expected CRLF line endings")
	}
	if bare := strings.Count(doc.String(), "\n") - strings.Count(doc.String(), "\r\n"); bare != 0 {
		t.Errorf("found %d bare LF line endings", bare)
	}
	if len(lines) < 20 {
		t.Errorf("expected one element per line, got %d", len(lines))
	}
}

func TestGenerateWeeklyAlignment(t *testing.T) {
	tests := []struct {
		name  string
		start string
		key   string
		want  string
	}{
		{"wednesday start, monday lesson", "2025-04-09", "Mon_1", "2025-04-14"},
		{"monday start, monday lesson", "2025-04-07", "Mon_1", "2025-04-07"},
		{"monday start, friday lesson", "2025-04-07", "Fri_2", "2025-04-11"},
		{"sunday start, monday lesson", "2025-04-06", "Mon_1", "2025-04-07"},
		{"saturday start, friday lesson", "2025-04-05", "Fri_1", "2025-04-11"},
		{"friday start, thursday lesson", "2025-04-11", "Thu_3", "2025-04-17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewGenerator(DefaultZone()).Generate(
				model.Timetable{tt.key: {Name: "X"}},
				testSchedule(tt.start, "2025-07-31"),
			)
			if len(doc.Events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(doc.Events))
			}
			if got := DateOf(doc.Events[0].Start).String(); got != tt.want {
				t.Errorf("first occurrence = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFirstOccurrenceNeverGoesBackward(t *testing.T) {
	start := MustDate("2025-04-01")
	for i := 0; i < 14; i++ {
		s := start.AddDays(i)
		for wd := model.Monday; wd <= model.Friday; wd++ {
			got := FirstOccurrence(s, wd)
			diff := got.At(0, 0, 0, time.UTC).Sub(s.At(0, 0, 0, time.UTC))
			if diff < 0 || diff >= 7*24*time.Hour {
				t.Errorf("FirstOccurrence(%s, %d) = %s, outside [0,6] days", s, wd, got)
			}
			if got.Weekday() != time.Weekday(wd+1) {
				t.Errorf("FirstOccurrence(%s, %d) = %s falls on %s", s, wd, got, got.Weekday())
			}
		}
	}
}

func TestGenerateUntilIsEndOfDayUTC(t *testing.T) {
	tests := []struct {
		zone Zone
		want string
	}{
		{DefaultZone(), "20250731T145959Z"},
		{Zone{Name: "Etc/UTC", Abbreviation: "UTC"}, "20250731T235959Z"},
		{Zone{Name: "America/Bogota", Abbreviation: "COT", OffsetSeconds: -5 * 3600}, "20250801T045959Z"},
	}
	for _, tt := range tests {
		doc := NewGenerator(tt.zone).Generate(
			model.Timetable{"Mon_1": {Name: "X"}},
			testSchedule("2025-04-07", "2025-07-31"),
		)
		ev := doc.Events[0]
		if got := ev.Until.Format("20060102T150405Z"); got != tt.want {
			t.Errorf("%s: until = %s, want %s", tt.zone.Name, got, tt.want)
		}
		local := ev.Until.In(tt.zone.Location())
		if local.Hour() != 23 || local.Minute() != 59 || local.Second() != 59 || DateOf(local).String() != "2025-07-31" {
			t.Errorf("%s: until in zone = %s, want 2025-07-31 23:59:59", tt.zone.Name, local)
		}
		if !hasLine(doc.Lines(), "RRULE:FREQ=WEEKLY;UNTIL="+tt.want) {
			t.Errorf("%s: RRULE line missing in:\n%s", tt.zone.Name, doc.String())
		}
	}
}

func TestGenerateDropsUnusableEntries(t *testing.T) {
	tt := model.Timetable{
		"Mon_1":    {Name: "Algorithms", Room: "B204"},
		"Sunday_1": {Name: "Weekend"},
		"Sat_2":    {Name: "Weekend"},
		"Tue_9":    {Name: "Unknown period"},
		"Wed_2":    {Room: "No name"},
		"Thu":      {Name: "No period"},
		"Fri_5":    {Name: "Statistics"},
	}
	doc := NewGenerator(DefaultZone()).Generate(tt, testSchedule("2025-04-07", "2025-07-31"))

	if len(doc.Events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(doc.Events), doc.Events)
	}
	if doc.Events[0].Key != "Fri_5" || doc.Events[1].Key != "Mon_1" {
		t.Errorf("unexpected event order: %s, %s", doc.Events[0].Key, doc.Events[1].Key)
	}
	if n := countLines(doc.Lines(), "BEGIN:VEVENT"); n != 2 {
		t.Errorf("expected 2 VEVENT blocks, got %d", n)
	}
}

func TestGenerateEmptyTimetable(t *testing.T) {
	doc := NewGenerator(DefaultZone()).Generate(nil, testSchedule("2025-04-07", "2025-07-31"))
	if len(doc.Events) != 0 {
		t.Errorf("expected no events, got %d", len(doc.Events))
	}
	lines := doc.Lines()
	if hasLine(lines, "BEGIN:VEVENT") {
		t.Errorf("unexpected VEVENT in empty calendar")
	}
	if !hasLine(lines, "BEGIN:VTIMEZONE") || lines[len(lines)-1] != "END:VCALENDAR" {
		t.Errorf("empty calendar must still carry header and footer:\n%s", doc.String())
	}
}

func TestGenerateCustomPeriodsAndDuration(t *testing.T) {
	s := testSchedule("2025-04-07", "2025-07-31")
	s.Periods = MergePeriodTimes(DefaultPeriodTimes(), PeriodTimes{"6": {Hour: 18, Minute: 5}})
	s.Duration = 100 * time.Minute

	doc := NewGenerator(DefaultZone()).Generate(model.Timetable{"Tue_6": {Name: "Evening"}}, s)
	lines := doc.Lines()
	if !hasLine(lines, "DTSTART;TZID=Asia/Tokyo:20250408T180500") {
		t.Errorf("missing custom start in:\n%s", doc.String())
	}
	if !hasLine(lines, "DTEND;TZID=Asia/Tokyo:20250408T194500") {
		t.Errorf("missing custom end in:\n%s", doc.String())
	}
}

func TestGenerateEndCrossesMidnight(t *testing.T) {
	s := testSchedule("2025-04-07", "2025-07-31")
	s.Periods = PeriodTimes{"1": {Hour: 23, Minute: 0}}

	doc := NewGenerator(DefaultZone()).Generate(model.Timetable{"Mon_1": {Name: "Late"}}, s)
	if !hasLine(doc.Lines(), "DTEND;TZID=Asia/Tokyo:20250408T003000") {
		t.Errorf("expected end on next day in:\n%s", doc.String())
	}
}

func TestGenerateParsesBack(t *testing.T) {
	tt := model.Timetable{
		"Mon_1": {Name: "Algorithms", Room: "B204", Teacher: "Dr. A"},
		"Wed_3": {Name: "Databases, Part 1", Room: "C1", Teacher: "Prof. B"},
	}
	doc := NewGenerator(DefaultZone()).Generate(tt, testSchedule("2025-04-07", "2025-07-31"))

	cal, err := ical.ParseCalendar(strings.NewReader(doc.String()))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 parsed events, got %d", len(events))
	}
	summaries := map[string]bool{}
	for _, ev := range events {
		if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil {
			summaries[p.Value] = true
		}
		if ev.GetProperty(ical.ComponentPropertyRrule) == nil {
			t.Errorf("event without RRULE")
		}
	}
	if !summaries["Algorithms"] {
		t.Errorf("summary Algorithms not found: %v", summaries)
	}
}
