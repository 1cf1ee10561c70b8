package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ttcal/internal/codec"
	appLog "ttcal/internal/log"
	"ttcal/internal/model"
)

var encodeCmd = &cobra.Command{
	Use:   "encode [file]",
	Short: "Encode a YAML or JSON timetable into a token",
	Long: `Read a timetable mapping slot keys ("Mon_1") to lessons
({name, room, teacher}) from a file, or stdin when no file is given, and
print its URL-safe token.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open timetable: %w", err)
			}
			defer f.Close()
			in = f
		}

		t, err := readTimetable(in)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), codec.New(appLog.Default()).Encode(t))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <token>",
	Short: "Print the timetable carried by a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := codec.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid token: %w", err)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		}
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(t)
	},
}

// readTimetable parses YAML, which also accepts JSON documents.
func readTimetable(r io.Reader) (model.Timetable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read timetable: %w", err)
	}
	var t model.Timetable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse timetable: %w", err)
	}
	return t, nil
}

func init() {
	decodeCmd.Flags().Bool("json", false, "Print JSON instead of YAML")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
}
