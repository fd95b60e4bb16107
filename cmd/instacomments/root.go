package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"instacomments/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// Exit codes
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// exitError carries the process exit code of a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

func fatalError(err error) error {
	return &exitError{code: exitFatal, err: err}
}

// globalOptions holds the persistent flags shared by all commands
type globalOptions struct {
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool
}

// flagMap returns the persistent flags that were set explicitly, keyed for config.MergeCommandLineFlags
func (g *globalOptions) flagMap(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	switch {
	case g.quiet:
		flags["log-level"] = "error"
		flags["progress"] = false
	case g.verbose:
		flags["log-level"] = "debug"
	case cmd.Flags().Changed("log-level"):
		flags["log-level"] = g.logLevel
	}
	if g.noColor {
		flags["no-color"] = true
	}
	return flags
}

// newRootCmd builds the command tree. The root command runs a scrape.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "instacomments",
		Short: "Export the comments of an Instagram reel or post",
		Long: `instacomments collects the comments of one Instagram reel or post through the
web GraphQL endpoint and writes them as JSON, CSV or TXT.

It needs the sessionid, ds_user_id, csrftoken and mid cookies of a logged-in
browser session, given as SESSIONID, DS_USER_ID, CSRFTOKEN and MID (a .env file
works) or saved with 'instacomments auth save'.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || !isTerminal(cmd.OutOrStdout()) {
				ui.SetNoColor(true)
			}
			if opts.verbose && cmd.Name() != "version" {
				ui.PrintLogo()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is .instacomments.yaml or ~/.config/instacomments/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress and all logs except errors")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "show the logo and debug logs")
	rootCmd.MarkFlagsMutuallyExclusive("quiet", "verbose")

	addScrapeFlags(rootCmd, opts)

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.SetVersionTemplate(`instacomments {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI and returns the process exit code
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	restore := ui.SetOutput(stdout)
	defer restore()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(stderr, ui.Red("Error: "+err.Error()))

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra reports unknown flags and bad flag values as plain errors
	return exitUsage
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "instacomments %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", gitCommit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:   %s\n", buildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
