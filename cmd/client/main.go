// Command client is the interactive LOAD/SELECT REPL, talking to a
// cmd/server instance over the novasqlwire frame protocol.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"

	"github.com/bptreeidx/engine/internal/ierrors"
	"github.com/bptreeidx/engine/internal/sql/executor"
	"github.com/bptreeidx/engine/sqlclient"
)

const helpText = `meta commands:
  \q | quit | exit        quit
  \tree <table>           dump the table's B+Tree root
  \history [n]            print the last n history lines (default 50)
  \help                   show this help

sql (one statement per line, no trailing ';'):
  LOAD <table> FROM '<file>' [WITH INDEX]
  SELECT {key|value|*|count(*)} FROM <table> [WHERE <conds>]`

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".novasql_history"
	}
	return filepath.Join(home, ".novasql_history")
}

// printHistory echoes the last n non-blank lines of readline's own
// persisted history file; there is no separate history store to maintain
// here since readline.Config.HistoryFile already owns that file.
func printHistory(path string, n int) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			lines = append(lines, s)
		}
	}
	if n <= 0 || n > len(lines) {
		n = len(lines)
	}
	start := len(lines) - n
	for i := start; i < len(lines); i++ {
		fmt.Printf("%5d  %s\n", i+1, lines[i])
	}
}

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

// cellString renders one result cell the way a NULL-aware table formatter
// must: missing/nil cells print as NULL, everything else via its default
// verb.
func cellString(row []any, i int) string {
	if i < len(row) && row[i] != nil {
		return fmt.Sprintf("%v", row[i])
	}
	return "NULL"
}

// printResult renders a Result as an aligned table via text/tabwriter,
// the same column-alignment tool the corpus's other SQL CLI
// (SimonWaldherr-tinySQL's ColumnPrinter) uses for this job.
func printResult(res *executor.Result) {
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	if len(res.Columns) == 0 {
		if res.Message == "" {
			fmt.Printf("OK (%d affected)\n", res.AffectedRows)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, col := range res.Columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprintln(w)
	for i, col := range res.Columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, strings.Repeat("-", len(col)))
	}
	fmt.Fprintln(w)
	for _, row := range res.Rows {
		for i := range res.Columns {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, cellString(row, i))
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
	fmt.Printf("(%d rows)\n", len(res.Rows))
}

// runMeta handles a single "\..." / quit / exit line. ok is false when the
// REPL should exit.
func runMeta(cli *sqlclient.Client, histPath, line string) (ok bool) {
	switch {
	case line == "\\q" || line == "quit" || line == "exit":
		return false
	case line == "\\help":
		fmt.Println(helpText)
	case strings.HasPrefix(line, "\\history"):
		n := 50
		if rest := strings.TrimSpace(strings.TrimPrefix(line, "\\history")); rest != "" {
			fmt.Sscanf(rest, "%d", &n)
		}
		printHistory(histPath, n)
	case strings.HasPrefix(line, "\\tree"):
		res, err := cli.Exec(line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return true
		}
		printResult(res)
	default:
		fmt.Printf("unknown command: %s\n", line)
	}
	return true
}

func runOneShot(cli *sqlclient.Client, sql string) {
	res, err := cli.Exec(sql)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ierrors.ExitCode(err))
	}
	printResult(res)
}

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:6543", "server address")
		timeout    = flag.Duration("timeout", 3*time.Second, "dial timeout")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines readline keeps")
		oneShotSQL = flag.String("c", "", "execute one statement and exit")
	)
	flag.Parse()

	cli, err := sqlclient.Dial(*addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = cli.Close() }()

	if strings.TrimSpace(*oneShotSQL) != "" {
		runOneShot(cli, *oneShotSQL)
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "novasql> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryFile:     *histPath,
		HistoryLimit:    *histMax,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	fmt.Printf("connected to %s\n", *addr)
	fmt.Println("type \\help for help")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isMetaCommand(line) {
			if !runMeta(cli, *histPath, line) {
				return
			}
			continue
		}

		res, err := cli.Exec(line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printResult(res)
	}
}
