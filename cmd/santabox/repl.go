package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/santabox/diagnostic"
	"github.com/caffeineduck/santabox/executor"
	"github.com/caffeineduck/santabox/hostfunc"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive REPL with persistent state",
	Long: `Start an interactive santa-lang REPL session.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	Run: runRepl,
}

func init() {
	addReadFlags(replCmd)
	replCmd.Flags().String("history", "", "History file path (default: ~/.santabox_history)")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) {
	historyFile, _ := cmd.Flags().GetString("history")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".santabox_history")
	}

	theme, err := newTheme(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitSetup)
	}

	lang, err := loadLanguage(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitSetup)
	}

	reader, err := newReader(cmd, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitSetup)
	}

	exec, err := newExecutor(cmd, lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitSetup)
	}
	defer exec.Close()

	session, err := exec.NewSession(lang, hostfunc.NewBridge(os.Stdout, reader),
		executor.WithSessionTimeout(timeout),
		executor.WithSessionStdout(os.Stdout),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting session: %v\n", err)
		os.Exit(exitSetup)
	}
	defer session.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %v\n", err)
		os.Exit(exitSetup)
	}
	defer rl.Close()

	fmt.Fprintln(os.Stderr, "santa-lang REPL (type 'exit' to quit, Ctrl+D to exit)")

	formatter := diagnostic.New("repl", theme)
	lines := &lineBuffer{}

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				lines.reset()
				rl.SetPrompt(">>> ")
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println()
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			break
		}

		source, complete := lines.add(line)
		if !complete {
			rl.SetPrompt("... ")
			continue
		}
		rl.SetPrompt(">>> ")

		if source == "" {
			continue
		}
		if source == "exit" || source == "quit" {
			break
		}

		reply, err := session.Evaluate(context.Background(), source)
		report(os.Stdout, os.Stderr, formatter, reply, err)
		if errors.Is(err, executor.ErrSessionClosed) {
			break
		}
	}
}

// lineBuffer joins lines ending in a backslash into one entry.
type lineBuffer struct {
	b       strings.Builder
	pending bool
}

// add returns the trimmed entry once a line without a trailing backslash
// completes it.
func (l *lineBuffer) add(line string) (string, bool) {
	if strings.HasSuffix(line, "\\") {
		l.b.WriteString(strings.TrimSuffix(line, "\\"))
		l.b.WriteString("\n")
		l.pending = true
		return "", false
	}

	if l.pending {
		l.b.WriteString(line)
		line = l.b.String()
		l.reset()
	}
	return strings.TrimSpace(line), true
}

func (l *lineBuffer) reset() {
	l.b.Reset()
	l.pending = false
}
