package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ttcal/internal/config"
	appLog "ttcal/internal/log"
	"ttcal/internal/web"
)

var rootCmd = &cobra.Command{
	Use:   "ttcal",
	Short: "Weekly timetable tokens and calendar feeds",
	Long: `ttcal turns a weekly class timetable into a short URL-safe token and
serves recurring-event calendar files generated from such tokens.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			appLog.SetLevel(appLog.LevelDebug)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calendar download endpoint over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = "/etc/ttcal/config.yaml"
		}
		conf, err := config.Load(path)
		if err != nil {
			appLog.Error("failed to load config", err, "config_path", path)
			return err
		}

		// CLI --listen overrides config file listen if provided.
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			conf.Listen = listen
		}
		if v, _ := cmd.Flags().GetBool("verbose"); !v {
			appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
		}

		zone := conf.OutputZone()
		appLog.Info("effective config",
			"listen", conf.Listen,
			"zone", zone.Name,
			"offset", zone.ICalOffset(),
			"default_start", conf.Defaults.Start,
			"default_end", conf.Defaults.End,
			"default_duration", conf.Defaults.Duration,
			"periods", len(conf.Defaults.Periods),
		)

		// Root context with cancellation on SIGINT/SIGTERM.
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := web.StartServer(ctx, conf, appLog.Default()); err != nil {
			appLog.Error("http server failed", err)
			return err
		}
		appLog.Info("ttcal exiting")
		return nil
	},
}

// loadConfig returns the config named by --config, or the built-in defaults
// when the flag is unset. Unlike serve, it never creates a file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config.Load(path)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	serveCmd.Flags().String("listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	appLog.Default().Sync()
	if err != nil {
		os.Exit(1)
	}
}
