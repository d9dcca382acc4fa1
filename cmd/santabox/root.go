package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caffeineduck/santabox/diagnostic"
	"github.com/caffeineduck/santabox/executor"
	"github.com/caffeineduck/santabox/hostfunc"
	"github.com/caffeineduck/santabox/language/santa"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSetup       = 1
	exitScriptError = 2
	exitTestFailed  = 3
)

var rootCmd = &cobra.Command{
	Use:   "santabox [file]",
	Short: "Run santa-lang scripts in a WebAssembly sandbox",
	Long: `santabox - Run santa-lang solutions safely using WebAssembly.

Run or test scripts from files, inline strings, or stdin. Scripts can print
with puts and fetch puzzle inputs with read("aoc://YEAR/DAY"); they have no
other access to the host.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRoot, // Default to run command behavior
}

func Execute() {
	loadEnv()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitSetup)
	}
}

func init() {
	rootCmd.PersistentFlags().String("module", santa.DefaultModulePath, "Path to the santa-lang WASI interpreter (env "+envModule+")")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable compilation cache")
	rootCmd.PersistentFlags().String("memory", "256mb", "Memory limit: 16mb, 64mb, 256mb, 1gb")
	rootCmd.PersistentFlags().String("color", "auto", "Colour output: auto, always, never")

	// Add run-specific flags to root (for default command)
	addRunFlags(rootCmd)
	rootCmd.Flags().BoolP("test", "t", false, "Run the script's tests instead of its solution")
}

func parseMount(spec string) (hostfunc.Mount, error) {
	virtual, host, ok := strings.Cut(spec, ":")
	if !ok {
		return hostfunc.Mount{VirtualPath: "/", HostPath: spec}, nil
	}
	if virtual == "" || host == "" {
		return hostfunc.Mount{}, fmt.Errorf("invalid mount spec %q (expected virtual:host or host)", spec)
	}
	return hostfunc.Mount{VirtualPath: virtual, HostPath: host}, nil
}

func parseMemoryLimit(s string) uint32 {
	switch strings.ToLower(s) {
	case "16mb":
		return executor.MemoryLimit16MB
	case "64mb":
		return executor.MemoryLimit64MB
	case "256mb":
		return executor.MemoryLimit256MB
	case "1gb":
		return executor.MemoryLimit1GB
	default:
		return 0 // use default
	}
}

func loadLanguage(cmd *cobra.Command) (*santa.Santa, error) {
	path := stringSetting(cmd, "module", envModule)
	lang, err := santa.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w (fetch it with: go run ./internal/tools/download <url> %s)", err, path)
	}
	return lang, nil
}

func newExecutor(cmd *cobra.Command, lang executor.Language) (*executor.Executor, error) {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	memoryLimit, _ := cmd.Flags().GetString("memory")

	var execOpts []executor.ExecutorOption
	if !noCache {
		execOpts = append(execOpts, executor.WithDiskCache())
	}
	if pages := parseMemoryLimit(memoryLimit); pages > 0 {
		execOpts = append(execOpts, executor.WithMemoryLimit(pages))
	}
	execOpts = append(execOpts, executor.WithPrecompile(lang))

	return executor.New(execOpts...)
}

// newReader configures the read host function. scriptDir, when set, is
// mounted at / so scripts can read files next to them.
func newReader(cmd *cobra.Command, scriptDir string) (*hostfunc.Reader, error) {
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg := hostfunc.ReaderConfig{
		BaseURL:  stringSetting(cmd, "input-base", envInputBaseURL),
		CacheDir: stringSetting(cmd, "input-cache", envInputCache),
		HTTP: hostfunc.HTTPConfig{
			RequestTimeout: timeout,
		},
	}

	if hosts := listSetting(cmd, "allow-host", envAllowHosts); len(hosts) > 0 {
		base := cfg.BaseURL
		if base == "" {
			base = hostfunc.DefaultInputBaseURL
		}
		// Extra hosts extend the input host rather than replacing it.
		if h := hostOf(base); h != "" {
			hosts = append(hosts, h)
		}
		cfg.HTTP.AllowedHosts = hosts
	}

	if scriptDir != "" {
		cfg.Mounts = append(cfg.Mounts, hostfunc.Mount{VirtualPath: "/", HostPath: scriptDir})
	}
	mounts, _ := cmd.Flags().GetStringSlice("mount")
	for _, spec := range mounts {
		m, err := parseMount(spec)
		if err != nil {
			return nil, err
		}
		cfg.Mounts = append(cfg.Mounts, m)
	}

	return hostfunc.NewReader(cfg)
}

func newTheme(cmd *cobra.Command) (diagnostic.Theme, error) {
	color, _ := cmd.Flags().GetString("color")
	switch color {
	case "auto", "":
		return diagnostic.ANSITheme(), nil
	case "always":
		r := lipgloss.NewRenderer(cmd.OutOrStdout())
		r.SetColorProfile(termenv.ANSI)
		return diagnostic.ANSIThemeFor(r), nil
	case "never":
		return diagnostic.PlainTheme(), nil
	}
	return diagnostic.Theme{}, fmt.Errorf("invalid --color %q (expected auto, always, or never)", color)
}

// scriptName labels error locators: the path as given, or the editor
// default for inline and piped source.
func scriptName(filename string) string {
	if filename == "" {
		return diagnostic.DefaultName
	}
	return filename
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
