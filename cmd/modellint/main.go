package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jacoelho/modelc"
)

func main() {
	os.Exit(run())
}

func run() int {
	return runWithArgs(os.Args[1:], os.Stdout, os.Stderr)
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		if exit, ok := err.(*exitError); ok {
			return exit.code
		}
		_ = writef(stderr, "error: %v\n", err)
		return 2
	}
	return 0
}

type globalFlags struct {
	logLevel  string
	unknown   string
	noConvert bool
	strict    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "modellint",
		Short:         "Check model documents and validate inputs against them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warning", "log level (debug, info, warning, error)")
	root.PersistentFlags().StringVar(&flags.unknown, "unknown", "error", "policy for undeclared properties (error, strip, keep)")
	root.PersistentFlags().BoolVar(&flags.noConvert, "no-convert", false, "disable type conversion and convert hooks")
	root.PersistentFlags().BoolVar(&flags.strict, "strict", false, "treat warnings as errors")

	root.AddCommand(
		newCheckCmd(flags, stdout, stderr),
		newValidateCmd(flags, stdout, stderr),
		newExportCmd(flags, stdout),
	)
	return root
}

func (f *globalFlags) options(stderr io.Writer) (modelc.Options, error) {
	level, err := logrus.ParseLevel(f.logLevel)
	if err != nil {
		return modelc.Options{}, err
	}
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: !colorEnabled(stderr)})

	policy, ok := modelc.ParseUnknownPolicy(f.unknown)
	if !ok {
		return modelc.Options{}, fmt.Errorf("unknown property policy %q is not defined", f.unknown)
	}
	opts := modelc.NewOptions().
		WithLogger(logger).
		WithUnknownProperties(policy).
		WithConvert(!f.noConvert).
		WithWarningsAsErrors(f.strict)
	return opts, opts.Validate()
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
