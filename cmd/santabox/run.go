package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/caffeineduck/santabox/diagnostic"
	"github.com/caffeineduck/santabox/executor"
	"github.com/caffeineduck/santabox/hostfunc"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a script's solution",
	Long: `Run a santa-lang script and print its result or solution parts.

Code can be provided via:
  - File argument: santabox run aoc2022_day01.santa
  - Inline flag: santabox run -c '1 + 2'
  - Stdin: cat aoc2022_day01.santa | santabox run`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitWith(runScript(cmd, args, executor.KindRun))
	},
}

var testCmd = &cobra.Command{
	Use:   "test [file]",
	Short: "Run a script's test sections",
	Long: `Run the test sections of a santa-lang script against their expectations.

Exits with status 3 when any expectation fails.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitWith(runScript(cmd, args, executor.KindTest))
	},
}

func init() {
	addRunFlags(runCmd)
	addRunFlags(testCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(testCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Code to execute")
	addReadFlags(cmd)
}

// addReadFlags registers the flags that configure the read host function.
func addReadFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 30*time.Second, "Execution timeout")
	cmd.Flags().StringSlice("allow-host", nil, "Allow read from host (repeatable, env "+envAllowHosts+")")
	cmd.Flags().StringSlice("mount", nil, "Mount a directory for local reads virtual:host (repeatable)")
	cmd.Flags().String("input-base", hostfunc.DefaultInputBaseURL, "Base URL for aoc:// inputs (env "+envInputBaseURL+")")
	cmd.Flags().String("input-cache", "", "Directory to persist fetched inputs (env "+envInputCache+")")
}

func runRoot(cmd *cobra.Command, args []string) {
	kind := executor.KindRun
	if test, _ := cmd.Flags().GetBool("test"); test {
		kind = executor.KindTest
	}
	exitWith(runScript(cmd, args, kind))
}

func exitWith(code int) {
	if code != 0 {
		os.Exit(code)
	}
}

// readSource returns the script and the file it came from. ok is false
// when there is nothing to run.
func readSource(cmd *cobra.Command, args []string) (source, filename string, ok bool, err error) {
	code, _ := cmd.Flags().GetString("code")

	switch {
	case code != "":
		return code, "", true, nil
	case len(args) > 0:
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			return "", "", false, err
		}
		return string(data), filename, true, nil
	}

	in := cmd.InOrStdin()
	if f, isFile := in.(*os.File); isFile {
		// Check if stdin has data (not a terminal)
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", "", false, nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", "", false, err
	}
	if len(data) == 0 {
		return "", "", false, nil
	}
	return string(data), "", true, nil
}

func runScript(cmd *cobra.Command, args []string, kind executor.Kind) int {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	source, filename, ok, err := readSource(cmd, args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitSetup
	}
	if !ok {
		cmd.Help()
		return 0
	}

	theme, err := newTheme(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitSetup
	}

	lang, err := loadLanguage(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitSetup
	}

	var scriptDir string
	if filename != "" {
		if abs, err := filepath.Abs(filename); err == nil {
			scriptDir = filepath.Dir(abs)
		}
	}
	reader, err := newReader(cmd, scriptDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitSetup
	}

	exec, err := newExecutor(cmd, lang)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitSetup
	}
	defer exec.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	req := executor.Request{Kind: kind, Source: source}
	reply, err := exec.Execute(ctx, lang, req, hostfunc.NewBridge(stdout, reader),
		executor.WithTimeout(timeout),
		executor.WithStdout(stdout),
	)

	return report(stdout, stderr, diagnostic.New(scriptName(filename), theme), reply, err)
}

// report prints a reply and returns the process exit code.
func report(stdout, stderr io.Writer, f *diagnostic.Formatter, reply executor.Reply, err error) int {
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitSetup
	}

	switch r := reply.(type) {
	case *executor.RunReply:
		fmt.Fprint(stdout, withNewline(f.FormatRunResult(r.Result)))
		return 0
	case *executor.TestReply:
		fmt.Fprint(stdout, f.FormatTestResult(r.Cases))
		if !diagnostic.Passed(r.Cases) {
			return exitTestFailed
		}
		return 0
	case *executor.ErrorReply:
		text, err := f.FormatError(r.Source, r.Err)
		if err != nil {
			// The location does not fit the source; the message still does.
			fmt.Fprintf(stderr, "Error: %s\n", r.Err.Message)
			return exitScriptError
		}
		fmt.Fprint(stderr, text)
		return exitScriptError
	}

	fmt.Fprintf(stderr, "Error: unexpected reply %T\n", reply)
	return exitSetup
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
