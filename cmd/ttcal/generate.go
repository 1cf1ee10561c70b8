package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ttcal/internal/codec"
	"ttcal/internal/config"
	"ttcal/internal/ics"
	appLog "ttcal/internal/log"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the calendar file for a token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		token, _ := cmd.Flags().GetString("data")
		t, err := codec.Parse(token)
		if err != nil {
			return fmt.Errorf("invalid token: %w", err)
		}

		f := cmd.Flags()
		req := config.Request{}
		req.Title, _ = f.GetString("title")
		req.Start, _ = f.GetString("start")
		req.End, _ = f.GetString("end")
		req.Times, _ = f.GetString("times")
		req.Duration, _ = f.GetString("duration")

		sched := conf.ResolveSchedule(req, appLog.Default())
		gen := conf.Generator()
		doc := gen.Generate(t, sched)

		if weeks, _ := f.GetInt("preview"); weeks > 0 {
			return printPreview(cmd.OutOrStdout(), gen.Zone, sched, doc, weeks)
		}

		if path, _ := f.GetString("output"); path != "" && path != "-" {
			if err := writeCalendarFile(path, doc); err != nil {
				return err
			}
		} else if _, err := doc.WriteTo(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("failed to write calendar: %w", err)
		}
		appLog.Info("calendar generated", "entries", len(t), "events", len(doc.Events))
		return nil
	},
}

// writeCalendarFile writes doc to path. A failed Close is reported, since it
// can mean the file was truncated.
func writeCalendarFile(path string, doc io.WriterTo) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := doc.WriteTo(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

func printPreview(w io.Writer, zone ics.Zone, sched ics.Schedule, doc *ics.Document, weeks int) error {
	loc := zone.Location()
	from := sched.Start.At(0, 0, 0, loc)
	occ, err := ics.ExpandOccurrences(doc.Events, ics.ExpandConfig{
		RangeStart: from,
		RangeEnd:   from.AddDate(0, 0, 7*weeks),
	})
	if err != nil {
		return err
	}
	for _, o := range occ {
		fmt.Fprintf(w, "%s  %s-%s  %-8s %s (%s)\n",
			o.Start.In(loc).Format("Mon 2006-01-02"),
			o.Start.In(loc).Format("15:04"),
			o.End.In(loc).Format("15:04"),
			o.Key, o.Summary, o.Location)
	}
	return nil
}

func init() {
	f := generateCmd.Flags()
	f.StringP("data", "d", "", "Timetable token")
	f.String("title", "", "Calendar title")
	f.String("start", "", "Semester start date (YYYY-MM-DD)")
	f.String("end", "", "Semester end date (YYYY-MM-DD)")
	f.String("times", "", `Period start overrides as JSON, e.g. {"1":"08:50"}`)
	f.String("duration", "", "Lesson duration in minutes")
	f.StringP("output", "o", "", "Output file path (default stdout)")
	f.Int("preview", 0, "Print the concrete lessons of the first N weeks instead of the calendar")
	generateCmd.MarkFlagRequired("data")

	rootCmd.AddCommand(generateCmd)
}
