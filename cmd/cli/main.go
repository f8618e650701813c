package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nickyhof/TupleDB"
	"github.com/nickyhof/TupleDB/config"
	"github.com/nickyhof/TupleDB/ps"
	"github.com/spf13/cobra"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdin, stdout, stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "%sError: %v%s\n", ErrorColor, err, ResetColor)
		return 1
	}
	return 0
}

// globalOptions are the persistent flags shared by every subcommand. Flags
// that were set on the command line win over the config file.
type globalOptions struct {
	configPath string
	dataDir    string
	schemaFile string
	name       string
	email      string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "tupledb",
		Short:         "Git-backed relational store",
		Long:          "Query and change TupleDB tables with SELECT, INSERT and DELETE. Every change is a Git commit.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd, stderr)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, opts, stdin, stdout)
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringVarP(&opts.dataDir, "data-dir", "d", "", "Data directory (memory persistence when empty)")
	flags.StringVar(&opts.schemaFile, "schema-file", ps.DefaultSchemaFile, "Schema file name inside the data directory")
	flags.StringVar(&opts.name, "name", "", "User name for commits")
	flags.StringVar(&opts.email, "email", "", "User email for commits")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newShellCmd(opts, stdin, stdout))
	rootCmd.AddCommand(newExecCmd(opts, stdout))
	rootCmd.AddCommand(newImportCmd(opts, stdout))
	rootCmd.AddCommand(newExportCmd(opts, stdout))
	rootCmd.AddCommand(newLogCmd(opts, stdout))
	rootCmd.AddCommand(newSnapshotCmd(opts, stdout))
	rootCmd.AddCommand(newRestoreCmd(opts, stdout))
	rootCmd.AddCommand(newVersionCmd(stdout))

	return rootCmd
}

func (opts *globalOptions) resolve(cmd *cobra.Command, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if flags.Changed("schema-file") {
		cfg.SchemaFile = opts.schemaFile
	}
	if flags.Changed("name") {
		cfg.Identity.Name = opts.name
	}
	if flags.Changed("email") {
		cfg.Identity.Email = opts.email
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts.cfg = cfg
	opts.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (opts *globalOptions) open() (*TupleDB.Instance, error) {
	persistence, err := opts.cfg.Persistence(ps.WithLogger(opts.logger), ps.WithIdentity(opts.cfg.CoreIdentity()))
	if err != nil {
		return nil, err
	}

	instance, err := TupleDB.Open(persistence)
	if err != nil {
		return nil, err
	}

	mode := "file"
	if persistence.IsMemoryMode() {
		mode = "memory"
	}
	opts.logger.Debug("opened instance", "persistence", mode, "data_dir", opts.cfg.DataDir,
		"tables", instance.Store().Len())
	return instance, nil
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the TupleDB version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(stdout, "TupleDB version %s\n", Version)
			return err
		},
	}
}
