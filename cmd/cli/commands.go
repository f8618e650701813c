package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nickyhof/TupleDB/db"
	"github.com/nickyhof/TupleDB/ps"
	"github.com/nickyhof/TupleDB/sql"
	"github.com/spf13/cobra"
)

func newExecCmd(opts *globalOptions, stdout io.Writer) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "exec [query...]",
		Short: "Run queries given as arguments or read from a file",
		Example: `  tupledb exec -d data "SELECT name FROM Students WHERE gpa > 3.0"
  tupledb exec -d data -f seed.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && len(args) == 0 {
				return fmt.Errorf("nothing to run: pass a query or --file")
			}

			instance, err := opts.open()
			if err != nil {
				return err
			}
			engine := instance.Engine(opts.cfg.CoreIdentity())

			if file != "" {
				summary, err := runScript(engine, file, stdout)
				if err != nil {
					return err
				}
				if summary.failed > 0 {
					return fmt.Errorf("%d statement(s) failed", summary.failed)
				}
			}

			for _, query := range args {
				if strings.TrimSpace(query) == "" {
					continue
				}
				result, err := engine.Execute(query)
				if err != nil {
					return err
				}
				result.Render(stdout)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File of statements separated by semicolons")
	return cmd
}

func newImportCmd(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "import <source>",
		Short: "Replace the tables with a schema file and CSV files from a directory or URL",
		Long: `Import reads <source>/schema.txt and <source>/<Table>.csv for every declared
table. The source can be a local directory, a file://, http(s):// or s3:// prefix.
All rows are checked before anything is committed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := opts.open()
			if err != nil {
				return err
			}

			txn, err := instance.Import(cmd.Context(), args[0], opts.cfg.RemoteConfig(), opts.cfg.CoreIdentity())
			if err != nil {
				return err
			}

			fmt.Fprintf(stdout, "%s✓ Imported %d table(s) from %s as %s%s\n",
				SuccessColor, instance.Store().Len(), args[0], txn.ShortId(), ResetColor)
			return nil
		},
	}
}

func newExportCmd(opts *globalOptions, stdout io.Writer) *cobra.Command {
	var header bool

	cmd := &cobra.Command{
		Use:   "export <select-query> <destination>",
		Short: "Write the result of a SELECT as CSV to a file or s3:// URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement, err := sql.NewParser(args[0]).Parse()
			if err != nil {
				return err
			}
			if statement.Type() != sql.SelectStatementType {
				return fmt.Errorf("export needs a SELECT query, got %s", statement.Type())
			}

			instance, err := opts.open()
			if err != nil {
				return err
			}

			result, err := instance.Engine(opts.cfg.CoreIdentity()).Execute(args[0])
			if err != nil {
				return err
			}
			qr := result.(db.QueryResult)

			if err := exportResult(cmd.Context(), qr, args[1], opts.cfg.RemoteConfig(), header); err != nil {
				return err
			}

			opts.logger.Info("exported result", "destination", args[1], "rows", qr.RecordsRead)
			fmt.Fprintf(stdout, "%s✓ Exported %d row(s) to %s%s\n", SuccessColor, qr.RecordsRead, args[1], ResetColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&header, "header", false, "Write the column names as the first line")
	return cmd
}

func exportResult(ctx context.Context, qr db.QueryResult, destination string, cfg *ps.RemoteConfig, header bool) error {
	rows := qr.Data()
	if header {
		rows = append([][]string{qr.Columns()}, rows...)
	}

	data, err := ps.EncodeRows(rows)
	if err != nil {
		return err
	}

	writer, err := ps.OpenWriter(ctx, destination, cfg)
	if err != nil {
		return err
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func newLogCmd(opts *globalOptions, stdout io.Writer) *cobra.Command {
	var (
		limit  int
		since  time.Duration
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List transactions, newest first",
		Example: `  tupledb log -d data -n 5
  tupledb log -d data --since 24h --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instance, err := opts.open()
			if err != nil {
				return err
			}

			var transactions []ps.Transaction
			if cmd.Flags().Changed("since") {
				transactions, err = instance.Persistence.TransactionsSince(time.Now().Add(-since))
				if err == nil && limit > 0 && len(transactions) > limit {
					transactions = transactions[:limit]
				}
			} else {
				transactions, err = instance.Persistence.Log(limit)
			}
			if err != nil {
				return err
			}

			if !asJSON {
				printLog(transactions, stdout)
				return nil
			}

			if transactions == nil {
				transactions = []ps.Transaction{}
			}
			encoder := json.NewEncoder(stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(transactions)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of transactions to show (0 for all)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show transactions newer than this, e.g. 2h")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printLog(transactions []ps.Transaction, out io.Writer) {
	if len(transactions) == 0 {
		fmt.Fprintln(out, "No transactions")
		return
	}

	grid := db.NewGrid(out)
	grid.Header([]string{"Transaction", "When", "Author", "Message"})
	for _, txn := range transactions {
		grid.Row([]string{txn.ShortId(), txn.When.Format(time.DateTime), txn.Author, strings.TrimSpace(txn.Message)})
	}
	grid.Render()
}

func newSnapshotCmd(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [name]",
		Short: "Name the current state, or list snapshots when no name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := opts.open()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				names, err := instance.Persistence.Snapshots()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(stdout, name)
				}
				return nil
			}

			if err := instance.Persistence.Snapshot(args[0], nil); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s✓ Snapshot %s created%s\n", SuccessColor, args[0], ResetColor)
			return nil
		},
	}
}

func newRestoreCmd(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot|transaction>",
		Short: "Commit the tables as they were at a snapshot or transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := opts.open()
			if err != nil {
				return err
			}

			txn, err := instance.Restore(args[0], opts.cfg.CoreIdentity())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s✓ Restored %s as %s%s\n", SuccessColor, args[0], txn.ShortId(), ResetColor)
			return nil
		},
	}
}
