package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"AutoBlog/internal/app"
	"AutoBlog/internal/config"
	"AutoBlog/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "autoblog",
	Short: "AI-powered blog automation",
	Long:  "AutoBlog collects trending ideas, researches them, generates posts\nand publishes them into a Jekyll site repository.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "path to the YAML config (overrides AUTOBLOG_CONFIG)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = version
}

// loadConfig applies the persistent flags on top of config.Load.
func loadConfig() (config.Config, error) {
	if rootFlags.configPath != "" {
		if err := os.Setenv("AUTOBLOG_CONFIG", rootFlags.configPath); err != nil {
			return config.Config{}, fmt.Errorf("set config path: %w", err)
		}
	}
	cfg := config.Load()
	if rootFlags.logLevel != "" {
		cfg.Logging.Level = rootFlags.logLevel
	}
	return cfg, nil
}

// session is a configured application plus its logger resources.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	app    *app.Application
	closer io.Closer
}

func (s *session) Close(ctx context.Context) {
	if s.app != nil {
		if err := s.app.Close(ctx); err != nil {
			s.logger.Warn("shutdown", "error", err)
		}
	}
	_ = s.closer.Close()
}

// openSession loads the configuration, lets adjust override it and wires the
// application.
func openSession(ctx context.Context, opts app.Options, adjust ...func(*config.Config)) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, fn := range adjust {
		fn(&cfg)
	}
	logger, closer := logging.NewWithOptions(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Stdout:     os.Stderr,
	})

	application, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, app: application, closer: closer}, nil
}
