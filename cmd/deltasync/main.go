package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bamsammich/deltasync/internal/config"
	"github.com/bamsammich/deltasync/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries the root flags and the state set up before any subcommand runs.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
	quiet   bool
	logFile string

	cfg     config.Config
	logger  *slog.Logger
	closers []io.Closer
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	defer a.close()

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func (a *app) newRootCmd() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "deltasync",
		Short: "Bring files up to date by sending only what changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Fprintf(a.stdout, "deltasync %s\n", version)
				return nil
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress all output except errors")
	root.PersistentFlags().StringVar(&a.logFile, "log", "", "write structured JSON log to FILE")

	root.AddCommand(
		a.newSyncCmd(),
		a.newSignatureCmd(),
		a.newDeltaCmd(),
		a.newPatchCmd(),
		newDocsCmd(),
	)
	return root
}

// setup configures logging and loads the optional config file.
func (a *app) setup() error {
	logLevel := slog.LevelWarn
	if a.verbose {
		logLevel = slog.LevelDebug
	} else if !a.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(a.stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	if a.logFile != "" {
		lf, err := os.Create(a.logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, lf)
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	a.logger = slog.New(logHandler)
	slog.SetDefault(a.logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", config.Path(), err)
	}
	for _, key := range cfg.Unknown {
		a.logger.Warn("unknown config key", "key", key)
	}
	a.cfg = cfg
	return nil
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c.Close() //nolint:errcheck // log file, nothing left to report to
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
