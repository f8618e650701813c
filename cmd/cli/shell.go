package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nickyhof/TupleDB"
	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/db"
	"github.com/nickyhof/TupleDB/op"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const maxHistory = 1000

// CLI holds the interactive shell state
type CLI struct {
	instance    *TupleDB.Instance
	identity    core.Identity
	engine      *db.Engine
	out         io.Writer
	history     []string
	historyFile string
}

func newCLI(instance *TupleDB.Instance, identity core.Identity, out io.Writer) *CLI {
	return &CLI{
		instance: instance,
		identity: identity,
		engine:   instance.Engine(identity),
		out:      out,
		history:  make([]string, 0),
	}
}

func newShellCmd(opts *globalOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, opts, stdin, stdout)
		},
	}
}

func runShell(_ *cobra.Command, opts *globalOptions, _ io.Reader, stdout io.Writer) error {
	instance, err := opts.open()
	if err != nil {
		return err
	}

	cli := newCLI(instance, opts.cfg.CoreIdentity(), stdout)
	cli.historyFile = getHistoryPath()
	cli.printBanner()
	return cli.run()
}

func (cli *CLI) printBanner() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sTupleDB v%s%s\n", BoldColor, PromptColor, Version, ResetColor)
	if cli.instance.Persistence.IsMemoryMode() {
		fmt.Fprintf(cli.out, "%sUsing memory persistence%s\n", SuccessColor, ResetColor)
	}
	fmt.Fprintln(cli.out, "Type .help for commands, exit to quit")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) run() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(cli.complete)
	cli.loadHistory(line)
	defer cli.saveHistory(line)

	for {
		input, err := line.Prompt(cli.getPrompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return nil
		}
		if err != nil {
			return err
		}

		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if !cli.handleLine(input) {
			return nil
		}
	}
}

// handleLine runs one line of input and reports whether the shell should
// keep reading.
func (cli *CLI) handleLine(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}

	cli.addToHistory(input)

	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
		return false
	}
	if strings.HasPrefix(input, ".") {
		return cli.handleCommand(input)
	}

	cli.execute(input)
	return true
}

func (cli *CLI) execute(sql string) {
	result, err := cli.engine.Execute(sql)
	if err != nil {
		cli.printError(err)
		return
	}
	result.Render(cli.out)
}

func (cli *CLI) printError(err error) {
	fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
}

func (cli *CLI) getPrompt() string {
	return "tupledb> "
}

// complete offers keywords and table names for the word being typed
func (cli *CLI) complete(line string) []string {
	start := strings.LastIndexAny(line, " (,") + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}

	candidates := []string{"SELECT", "FROM", "WHERE", "INSERT", "INTO", "VALUES", "DELETE"}
	for _, table := range cli.instance.Store().Tables() {
		candidates = append(candidates, table.Name)
	}

	var completions []string
	for _, candidate := range candidates {
		if strings.HasPrefix(strings.ToLower(candidate), strings.ToLower(word)) {
			completions = append(completions, prefix+candidate)
		}
	}
	return completions
}

// handleCommand runs a dot command and reports whether the shell should keep
// reading.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
		return false

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.showTables()

	case ".schema":
		cli.showSchema(parts[1:])

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "TupleDB version %s\n", Version)

	case ".import":
		if len(parts) < 2 {
			fmt.Fprintf(cli.out, "%s✗ Usage: .import <file.sql>%s\n", ErrorColor, ResetColor)
			break
		}
		if _, err := runScript(cli.engine, parts[1], cli.out); err != nil {
			cli.printError(err)
		}

	case ".log":
		limit := 10
		if len(parts) > 1 {
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Fprintf(cli.out, "%s✗ Usage: .log [n]%s\n", ErrorColor, ResetColor)
				break
			}
			limit = n
		}
		transactions, err := cli.instance.Persistence.Log(limit)
		if err != nil {
			cli.printError(err)
			break
		}
		printLog(transactions, cli.out)

	case ".snapshot":
		if len(parts) < 2 {
			fmt.Fprintf(cli.out, "%s✗ Usage: .snapshot <name>%s\n", ErrorColor, ResetColor)
			break
		}
		if err := cli.instance.Persistence.Snapshot(parts[1], nil); err != nil {
			cli.printError(err)
			break
		}
		fmt.Fprintf(cli.out, "%s✓ Snapshot %s created%s\n", SuccessColor, parts[1], ResetColor)

	case ".restore":
		if len(parts) < 2 {
			fmt.Fprintf(cli.out, "%s✗ Usage: .restore <snapshot|transaction>%s\n", ErrorColor, ResetColor)
			break
		}
		txn, err := cli.instance.Restore(parts[1], cli.identity)
		if err != nil {
			cli.printError(err)
			break
		}
		fmt.Fprintf(cli.out, "%s✓ Restored %s as %s%s\n", SuccessColor, parts[1], txn.ShortId(), ResetColor)

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .help, .h          Show this help message")
	fmt.Fprintln(cli.out, "  .quit, exit        Exit the shell")
	fmt.Fprintln(cli.out, "  .tables            List tables and their columns")
	fmt.Fprintln(cli.out, "  .schema [table]    Show schema file definitions")
	fmt.Fprintln(cli.out, "  .import <file>     Execute statements from a file")
	fmt.Fprintln(cli.out, "  .log [n]           Show the last n transactions")
	fmt.Fprintln(cli.out, "  .snapshot <name>   Name the current state")
	fmt.Fprintln(cli.out, "  .restore <ref>     Restore a snapshot or transaction")
	fmt.Fprintln(cli.out, "  .history           Show command history")
	fmt.Fprintln(cli.out, "  .clear             Clear the screen")
	fmt.Fprintln(cli.out, "  .version           Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sQueries:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  SELECT <cols> | * FROM <table> [WHERE <col> <op> <value>]")
	fmt.Fprintln(cli.out, "  INSERT INTO <table> (<cols>) VALUES (<values>)")
	fmt.Fprintln(cli.out, "  DELETE FROM <table> [WHERE <col> <op> <value>]")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sOperators:%s = != <> < > <= >=\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out)
}

func (cli *CLI) showTables() {
	tables := cli.instance.Store().Tables()
	if len(tables) == 0 {
		fmt.Fprintln(cli.out, "No tables")
		return
	}

	grid := db.NewGrid(cli.out)
	grid.Header([]string{"Table", "Columns", "Rows"})
	for _, table := range tables {
		grid.Row([]string{table.Name, table.Schema().String(), strconv.Itoa(table.Len())})
	}
	grid.Render()
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tupledb_history")
}

func (cli *CLI) loadHistory(line *liner.State) {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	_, _ = line.ReadHistory(file)
}

func (cli *CLI) saveHistory(line *liner.State) {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	_, _ = line.WriteHistory(file)
}

// showSchema prints definitions as stored in the schema file at HEAD.
func (cli *CLI) showSchema(names []string) {
	if len(names) == 0 {
		var err error
		names, err = op.GetDatabase(cli.instance.Persistence).TableNames()
		if err != nil {
			cli.printError(err)
			return
		}
	}

	for _, name := range names {
		tableOp, err := op.GetTable(name, cli.instance.Persistence)
		if err != nil {
			cli.printError(err)
			continue
		}
		fmt.Fprintln(cli.out, tableOp.Def)
	}
}
