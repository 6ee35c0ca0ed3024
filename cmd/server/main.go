package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/NicolasHaas/gomoku/pkg/datastore"
	"github.com/NicolasHaas/gomoku/pkg/logging"
	"github.com/NicolasHaas/gomoku/pkg/server"
	"github.com/NicolasHaas/gomoku/pkg/version"
	"github.com/NicolasHaas/gomoku/pkg/wordbank"
)

func main() {
	cfg := server.DefaultConfig()

	configFile := flag.String("config", "", "YAML config file (flags override its values)")
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "TCP bind address for clients")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "HTTP bind address for Prometheus /metrics (empty to disable)")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "User store backend: sqlite, postgres, file or memory")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite path, users file path or PostgreSQL DSN")
	flag.StringVar(&cfg.ColorsFile, "colors", "", "Newline-delimited color words for anonymous names")
	flag.StringVar(&cfg.AnimalsFile, "animals", "", "Newline-delimited animal words for anonymous names")
	flag.DurationVar(&cfg.PresenceDelay, "presence-delay", cfg.PresenceDelay, "Pause between a login reply and the online list")
	flag.Float64Var(&cfg.RateLimit, "rate", cfg.RateLimit, "Inbound lines per second per session (0 = unlimited)")
	flag.BoolVar(&cfg.ExportUsers, "export-users", false, "Export all users as YAML and exit")

	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	logFile := flag.String("log-file", "", "Also write logs to this size-rotated file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	if *configFile != "" {
		if err := server.LoadConfigFile(*configFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		// Parse again so explicit flags win over the file.
		flag.Parse()
	}

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
		File:   *logFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	st, err := datastore.Open(cfg.Store, cfg.DBPath)
	if err != nil {
		slog.Error("open user store", "store", cfg.Store, "err", err)
		os.Exit(1)
	}

	// Handle export commands (run and exit)
	if cfg.ExportUsers {
		data, err := server.ExportUsersYAML(st)
		_ = st.Close()
		if err != nil {
			slog.Error("export users", "err", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
		return
	}

	bank, err := wordbank.Load(cfg.ColorsFile, cfg.AnimalsFile)
	if err != nil {
		_ = st.Close()
		slog.Error("load word lists", "err", err)
		os.Exit(1)
	}

	slog.Info("starting gomoku directory", "version", version.String(), "store", cfg.Store)
	srv, err := server.New(cfg, server.Dependencies{Store: st, Names: bank.Name})
	if err != nil {
		_ = st.Close()
		slog.Error("init server", "err", err)
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
