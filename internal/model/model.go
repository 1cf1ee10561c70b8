package model

import (
	"sort"
	"strings"
	"time"
)

// Lesson is one populated timetable cell.
type Lesson struct {
	Name    string `json:"name" yaml:"name"`
	Room    string `json:"room" yaml:"room"`
	Teacher string `json:"teacher" yaml:"teacher"`
}

// IsEmpty reports whether every field has zero length. Whitespace counts as
// content.
func (l Lesson) IsEmpty() bool {
	return l.Name == "" && l.Room == "" && l.Teacher == ""
}

// Timetable maps slot keys ("Mon_1") to lessons. Keys are unique and carry
// no order; Keys gives a deterministic iteration order.
type Timetable map[string]Lesson

// Keys returns the slot keys in sorted order.
func (t Timetable) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Compact returns a copy of t without empty lessons. The result is never nil.
func (t Timetable) Compact() Timetable {
	out := make(Timetable, len(t))
	for k, l := range t {
		if l.IsEmpty() {
			continue
		}
		out[k] = l
	}
	return out
}

// SlotKey is the parsed form of a "<day>_<period>" key.
type SlotKey struct {
	Day    string
	Period string
}

func (k SlotKey) String() string {
	return k.Day + "_" + k.Period
}

// ParseSlotKey splits key on its first underscore. ok is false when either
// half is missing.
func ParseSlotKey(key string) (SlotKey, bool) {
	day, period, found := strings.Cut(key, "_")
	if !found || day == "" || period == "" {
		return SlotKey{}, false
	}
	return SlotKey{Day: day, Period: period}, true
}

// Weekday ordinals, Monday first.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

// dayOffset accepts the short English symbols used by the editor, full names,
// and the single-character Japanese symbols of older tokens.
var dayOffset = map[string]int{
	"Mon": Monday, "Monday": Monday, "月": Monday,
	"Tue": Tuesday, "Tuesday": Tuesday, "火": Tuesday,
	"Wed": Wednesday, "Wednesday": Wednesday, "水": Wednesday,
	"Thu": Thursday, "Thursday": Thursday, "木": Thursday,
	"Fri": Friday, "Friday": Friday, "金": Friday,
}

// Weekday resolves a day symbol to its Monday=0 ordinal. Weekend and unknown
// symbols are not recognised.
func Weekday(day string) (int, bool) {
	n, ok := dayOffset[day]
	return n, ok
}

// Occurrence is a single concrete instance of a weekly lesson.
type Occurrence struct {
	Key string // slot key
	UID string // iCalendar UID of the recurring event

	Summary  string
	Location string

	// Start / End are in the output timezone.
	Start time.Time
	End   time.Time
}
