package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/petems/mask-tray/internal/config"
	"github.com/petems/mask-tray/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	log      zerolog.Logger
	cfgFile  string
	simulate bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "mask-tray",
	Short: "Identify the song playing nearby and cue its video",
	Long: `mask-tray listens through the microphone, identifies the song that is
playing and reports the matching video together with the position to start
it from.

Without a subcommand it runs as a system tray application. Use 'listen' for
a terminal interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("simulate") {
			cfg.Simulate = simulate
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		// The terminal UI owns the screen, so it only logs to the file
		if cmd.Name() == "listen" {
			log = logging.NewFileOnly(cfg.LogLevel)
		} else {
			log = logging.NewWithLevel(cfg.LogLevel)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTray(cmd.Context())
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "use a simulated engine instead of the audio hardware")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mask-tray %s (%s)\n", Version, Commit)
	},
}
