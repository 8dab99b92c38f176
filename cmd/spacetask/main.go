package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bamsammich/spacetask/internal/config"
	"github.com/bamsammich/spacetask/internal/conflict"
	"github.com/bamsammich/spacetask/internal/task"
	"github.com/bamsammich/spacetask/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	logFile     string
	configFile  string
	errorMode   string
	overwrite   string
	bwLimit     string
	trashDir    string
	verbose     bool
	quiet       bool
	tui         bool
	noProgress  bool
	keepVisible bool
	verify      bool
	noQueue     bool
}

// app carries state from the root's pre-run hook to a subcommand.
type app struct {
	stdin    io.Reader
	settings config.Settings
	logClose func() error
	flags    globalFlags
}

func run(args []string) int {
	a := &app{stdin: os.Stdin}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.Execute()
	if a.logClose != nil {
		_ = a.logClose() //nolint:errcheck // best effort on exit
	}
	if err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	var showVersion bool
	rootCmd := &cobra.Command{
		Use:   "spacetask",
		Short: "Run file operations as background tasks with pause, queueing and conflict prompts",
		Long: `spacetask runs copy, move, link, delete, trash, chmod/chown and shell
commands as tasks. Each task runs on its own worker and can be paused,
resumed, requeued or cancelled. New data tasks wait in a queue behind the
running one, and destination conflicts are asked interactively or resolved
by the configured overwrite mode.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "spacetask %s\n", version)
				return nil
			}
			return cmd.Help()
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&a.flags.quiet, "quiet", "q", false, "suppress all output except errors")
	pf.StringVar(&a.flags.logFile, "log", "", "write structured JSON log to FILE")
	pf.StringVar(&a.flags.configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/spacetask/config.toml)")
	pf.BoolVar(&a.flags.tui, "tui", false, "full-screen task list (Bubble Tea)")
	pf.BoolVar(&a.flags.noProgress, "no-progress", false, "plain line output even on a terminal")
	pf.StringVar(&a.flags.errorMode, "error-mode", "", "on error: stop-on-first, stop-on-any or continue")
	pf.StringVar(&a.flags.overwrite, "overwrite", "", "conflict policy: ask, overwrite, overwrite_all, skip, skip_all, auto_rename, auto_rename_all")
	pf.BoolVar(&a.flags.keepVisible, "keep-visible", false, "keep finished tasks until dismissed")
	pf.BoolVar(&a.flags.verify, "verify", false, "verify copies with BLAKE3")
	pf.StringVar(&a.flags.bwLimit, "bwlimit", "", "per-task bandwidth limit (e.g. 100M, 1G)")
	pf.BoolVar(&a.flags.noQueue, "no-queue", false, "start every task at once instead of queueing")
	pf.StringVar(&a.flags.trashDir, "trash-dir", "", "trash directory (default: $XDG_DATA_HOME/Trash)")

	rootCmd.AddCommand(
		newTransferCmd(a, "copy", "Copy files and directories", transferCopy),
		newTransferCmd(a, "move", "Move files and directories", transferMove),
		newTransferCmd(a, "link", "Create symbolic links to the sources", transferLink),
		newRemoveCmd(a, "delete", "Delete files and directories permanently", removeDelete),
		newRemoveCmd(a, "trash", "Move files and directories to the trash", removeTrash),
		newChmodCmd(a),
		newChownCmd(a),
		newExecCmd(a),
		newBatchCmd(a),
		newDocsCmd(),
	)
	return rootCmd
}

// setup loads the config file, applies explicit flags over it and
// configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	var (
		cfg config.Config
		err error
	)
	if a.flags.configFile != "" {
		cfg, err = config.LoadFile(a.flags.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s, err := cfg.Resolve()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := applyFlags(cmd, a.flags, &s); err != nil {
		return err
	}
	a.settings = s

	closer, err := setupLogging(cmd.ErrOrStderr(), a.flags, a.useTUI())
	if err != nil {
		return err
	}
	a.logClose = closer
	return nil
}

// applyFlags overrides settings with flags explicitly set on the command
// line.
func applyFlags(cmd *cobra.Command, f globalFlags, s *config.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("error-mode") {
		if _, err := task.ParseErrorMode(f.errorMode); err != nil {
			return fmt.Errorf("invalid --error-mode: %w", err)
		}
		s.ErrorMode = f.errorMode
	}
	if flags.Changed("overwrite") {
		m, err := conflict.ParseMode(f.overwrite)
		if err != nil {
			return fmt.Errorf("invalid --overwrite: %w", err)
		}
		s.Overwrite = m
	}
	if flags.Changed("bwlimit") {
		n, err := config.ParseSize(f.bwLimit)
		if err != nil {
			return fmt.Errorf("invalid --bwlimit: %w", err)
		}
		s.BWLimit = n
	}
	if flags.Changed("keep-visible") {
		s.KeepVisible = f.keepVisible
	}
	if flags.Changed("verify") {
		s.Verify = f.verify
	}
	if flags.Changed("tui") {
		s.TUI = f.tui
	}
	if flags.Changed("no-queue") {
		s.QueueEnabled = !f.noQueue
	}
	return nil
}

// setupLogging installs the default logger: text on stderr at a level
// following --verbose/--quiet, fanned out to JSON when --log is set. The
// full-screen TUI owns the terminal, so stderr then only gets errors.
func setupLogging(stderr io.Writer, f globalFlags, tui bool) (func() error, error) {
	level := slog.LevelInfo
	switch {
	case f.verbose:
		level = slog.LevelDebug
	case f.quiet:
		level = slog.LevelWarn
	}
	if tui {
		level = slog.LevelError
	}
	var handler slog.Handler = slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})

	closer := func() error { return nil }
	if f.logFile != "" {
		lf, err := os.Create(f.logFile)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		closer = lf.Close
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = ui.NewMultiHandler(handler, jsonHandler)
	}
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

// useTUI reports whether the full-screen TUI can run: it was asked for and
// both stdin and stdout are terminals.
func (a *app) useTUI() bool {
	return a.settings.TUI && !a.flags.quiet &&
		ui.IsTTY(os.Stdin.Fd()) && ui.IsTTY(os.Stdout.Fd())
}

// options maps resolved settings to manager options.
func (a *app) options() (task.Options, error) {
	mode, err := task.ParseErrorMode(a.settings.ErrorMode)
	if err != nil {
		return task.Options{}, err
	}
	s := a.settings
	return task.Options{
		TrashDir:       a.flags.trashDir,
		Tick:           s.Tick,
		StatsInterval:  s.StatsInterval,
		SizeTimeout:    s.SizeTimeout,
		ExecGrace:      s.ExecGrace,
		StallAfter:     s.StallAfter,
		BandwidthLimit: s.BWLimit,
		LogMaxSize:     s.LogMaxSize,
		LogMaxLines:    s.LogMaxLines,
		ErrorMode:      mode,
		Overwrite:      s.Overwrite,
		KeepVisible:    s.KeepVisible,
		Verify:         s.Verify,
		Queue:          s.QueueEnabled,
		PauseOnError:   s.PauseOnError,
	}, nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
