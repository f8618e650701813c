package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nickyhof/TupleDB"
	"github.com/nickyhof/TupleDB/config"
	"github.com/nickyhof/TupleDB/ps"
	"github.com/spf13/pflag"
)

// Version is set at build time via -ldflags
var Version = "dev"

type serverOptions struct {
	configPath  string
	addr        string
	dataDir     string
	tlsCert     string
	tlsKey      string
	logLevel    string
	showVersion bool
}

func parseFlags(args []string) (*serverOptions, *pflag.FlagSet, error) {
	opts := &serverOptions{}

	flags := pflag.NewFlagSet("tupledb-server", pflag.ContinueOnError)
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringVarP(&opts.addr, "addr", "a", "", "TCP address to listen on (default from config, 127.0.0.1:3306)")
	flags.StringVarP(&opts.dataDir, "data-dir", "d", "", "Data directory (memory persistence when empty)")
	flags.StringVar(&opts.tlsCert, "tls-cert", "", "TLS certificate file")
	flags.StringVar(&opts.tlsKey, "tls-key", "", "TLS key file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVarP(&opts.showVersion, "version", "v", false, "Show version and exit")

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, flags, nil
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(opts *serverOptions, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("addr") {
		cfg.Server.Addr = opts.addr
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if flags.Changed("tls-cert") {
		cfg.Server.TLSCert = opts.tlsCert
	}
	if flags.Changed("tls-key") {
		cfg.Server.TLSKey = opts.tlsKey
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func main() {
	opts, flags, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("TupleDB Server v%s\n", Version)
		return
	}

	cfg, err := loadConfig(opts, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	persistence, err := cfg.Persistence(ps.WithLogger(logger), ps.WithIdentity(cfg.CoreIdentity()))
	if err != nil {
		logger.Error("failed to initialize persistence", "data_dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	instance, err := TupleDB.Open(persistence)
	if err != nil {
		logger.Error("failed to load tables", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded tables", "tables", instance.Store().Len(), "memory", persistence.IsMemoryMode())

	server := NewServer(instance, cfg.CoreIdentity(),
		WithAuth(authConfigFrom(cfg.Server.Auth)),
		WithLogger(logger))

	if cfg.Server.TLSCert != "" {
		err = server.StartTLS(cfg.Server.Addr, cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		err = server.Start(cfg.Server.Addr)
	}
	if err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	fmt.Printf("TupleDB Server v%s listening on %s\n", Version, server.Addr())
	fmt.Println("Send queries (one per line), 'quit' to disconnect")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	server.Stop()
	logger.Info("server stopped")
}
