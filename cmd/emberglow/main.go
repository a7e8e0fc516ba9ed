package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"libdb.so/emberglow"
)

var (
	config  = "emberglow.toml"
	listen  = ""
	logFile = ""
	verbose = false
)

func init() {
	pflag.StringVarP(&config, "config", "c", config, "configuration file")
	pflag.StringVarP(&listen, "listen", "l", listen, "override the HTTP listen address")
	pflag.StringVarP(&logFile, "log-file", "L", logFile, "write logs to this file instead of stderr")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
}

func main() {
	pflag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}

	if listen != "" {
		cfg.Listen = listen
	}

	logOut, err := openLogOutput(cfg.Output, logFile)
	if err != nil {
		return err
	}
	defer logOut.Close()

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, err := emberglow.NewDaemon(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("daemon failed: %w", err)
	}

	return nil
}

// openLogOutput picks where logs go. The terminal preview owns the screen,
// so logs are dropped there unless a log file is given.
func openLogOutput(output emberglow.OutputKind, path string) (io.WriteCloser, error) {
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, nil
	case output == emberglow.TerminalOutput:
		return nopCloser{io.Discard}, nil
	default:
		return nopCloser{os.Stderr}, nil
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func readConfig() (*emberglow.Config, error) {
	f, err := os.Open(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return emberglow.ParseConfig(f)
}
