package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"ttcal/internal/model"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("ttcal %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestEncodeDecodeCommands(t *testing.T) {
	input := `
Mon_1:
  name: Algorithms
  room: B204
  teacher: Dr. A
Tue_2:
  name: ""
  room: ""
  teacher: ""
`
	token := strings.TrimSpace(run(t, input, "encode"))
	if token == "" {
		t.Fatal("expected a token")
	}

	out := run(t, "", "decode", "--json", token)
	var got model.Timetable
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output is not JSON: %v\n%s", err, out)
	}
	want := model.Timetable{"Mon_1": {Name: "Algorithms", Room: "B204", Teacher: "Dr. A"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decode = %+v, want %+v", got, want)
	}
}

func TestGenerateCommand(t *testing.T) {
	token := strings.TrimSpace(run(t, `{"Mon_1": {"name": "Algorithms", "room": "B204", "teacher": "Dr. A"}}`, "encode"))

	out := run(t, "", "generate", "--data", token, "--title", "Spring")
	for _, want := range []string{
		"X-WR-CALNAME:Spring",
		"DTSTART;TZID=Asia/Tokyo:20250407T090000",
		"RRULE:FREQ=WEEKLY;UNTIL=20250731T145959Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generate output missing %q:\n%s", want, out)
		}
	}

	out = run(t, "", "generate", "--data", token, "--title", "", "--preview", "1")
	if !strings.Contains(out, "Mon 2025-04-07  09:00-10:30") {
		t.Errorf("preview output unexpected:\n%s", out)
	}
}

func TestReadTimetableRejectsGarbage(t *testing.T) {
	if _, err := readTimetable(strings.NewReader("- just\n- a list\n")); err == nil {
		t.Errorf("expected error for non-mapping input")
	}
}

type failingWriterTo struct{}

func (failingWriterTo) WriteTo(io.Writer) (int64, error) {
	return 0, errors.New("disk full")
}

func TestWriteCalendarFile(t *testing.T) {
	dir := t.TempDir()
	token := strings.TrimSpace(run(t, `{"Mon_1": {"name": "Algorithms"}}`, "encode"))

	path := filepath.Join(dir, "out.ics")
	run(t, "", "generate", "--data", token, "--title", "", "--preview", "0", "--output", path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "BEGIN:VCALENDAR\r\n") {
		t.Errorf("unexpected file content:\n%s", data)
	}

	if err := writeCalendarFile(filepath.Join(dir, "x.ics"), failingWriterTo{}); err == nil {
		t.Errorf("expected write error to be returned")
	}
	if err := writeCalendarFile(filepath.Join(dir, "missing", "x.ics"), failingWriterTo{}); err == nil {
		t.Errorf("expected create error to be returned")
	}
}
