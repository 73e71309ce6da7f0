// Command fncengine executes a plan of function calls (a JSON descriptor, a list of
// descriptors or provider tool calls) against functions loaded from Go plugins and
// prints the results together with the final output store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/skosovsky/fncengine"
	"github.com/skosovsky/fncengine/internal/config"
)

// ExitError carries a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, fncengine.NewRegistry())
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, exitErr.Message)
		stop()
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, err)
	stop()
	os.Exit(1)
}

// report is what the command prints on success.
type report struct {
	Session string         `json:"session"`
	Results []any          `json:"results"`
	Outputs map[string]any `json:"outputs"`
}

// run holds the command logic. reg may already contain functions; plugins named in the
// configuration are registered on top of them.
func run(ctx context.Context, args []string, in io.Reader, out, errW io.Writer, reg *fncengine.Registry) error {
	fs := config.Flags("fncengine")
	fs.SetOutput(errW)
	fs.Usage = func() {
		fmt.Fprint(errW, `
fncengine - execute a plan of chained function calls.

Usage:
  fncengine [options] [PLAN_PATH | -]

Arguments:
  PLAN_PATH
    JSON file with one descriptor or a list of descriptors. Reads stdin when
    omitted or "-".

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	logger, err := newLogger(cfg, errW)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	for _, path := range cfg.Plugins {
		if err := reg.RegisterFrom(fncengine.PluginLoader{}, path); err != nil {
			return fmt.Errorf("load plugin: %w", err)
		}
		logger.Debug().Str("plugin", path).Msg("plugin loaded")
	}
	logger.Debug().Strs("functions", reg.Names()).Str("session", reg.SessionID()).Msg("registry ready")

	plan, err := readPlan(fs.Args(), in)
	if err != nil {
		return err
	}

	opts := []fncengine.Option{
		fncengine.WithLogger(logger),
		fncengine.WithRecoverPanics(cfg.RecoverPanics),
	}
	if cfg.ReferenceMarker != "" {
		opts = append(opts, fncengine.WithReferenceMarker(cfg.ReferenceMarker))
	}
	if cfg.EnvelopeOutputs {
		opts = append(opts, fncengine.WithEnvelopeOutputs())
	}
	var invokeOpts []fncengine.InvokeOption
	if cfg.Verbose {
		invokeOpts = append(invokeOpts, fncengine.Verbose())
	}

	d := fncengine.NewDispatcher(reg, opts...)
	results, err := d.ParseAndInvoke(ctx, plan, invokeOpts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report{
		Session: reg.SessionID(),
		Results: results,
		Outputs: reg.Outputs(),
	})
}

func readPlan(args []string, in io.Reader) ([]byte, error) {
	switch {
	case len(args) > 1:
		return nil, &ExitError{Code: 2, Message: "expected at most one plan path"}
	case len(args) == 0 || args[0] == "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read plan from stdin: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read plan: %w", err)
		}
		return data, nil
	}
}

func newLogger(cfg *config.Config, w io.Writer) (zerolog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return zerolog.Nop(), err
	}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger(), nil
}
