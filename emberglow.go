// Package emberglow is a daemon that drives an addressable LED strip and
// exposes an HTTP API to start and stop effects on it.
package emberglow

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"libdb.so/emberglow/internal/httpapi"
	"libdb.so/emberglow/internal/led"
	"libdb.so/emberglow/internal/metrics"
	"libdb.so/emberglow/internal/preview"
	"libdb.so/emberglow/internal/scheduler"
)

// shutdownTimeout bounds how long the daemon waits for in-flight requests and
// the final blank frame when stopping.
const shutdownTimeout = 5 * time.Second

// Daemon is the main emberglow daemon.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger

	// listen, if set, is used instead of listening on cfg.Listen.
	listen net.Listener
}

// NewDaemon creates a new emberglow daemon.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run starts the daemon. It blocks until the given context is canceled or a
// component fails. On the way out the strip is turned off.
func (d *Daemon) Run(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	errg, ctx := errgroup.WithContext(ctx)

	// The serial link outlives ctx so that the final blank frame can still
	// be written after shutdown has begun.
	linkCtx, cancelLink := context.WithCancel(context.Background())
	defer cancelLink()

	var outputs []led.Output

	switch d.cfg.Output {
	case SerialOutput:
		link, err := openSerialLink(d.cfg.Serial, d.cfg.NumLEDs, d.logger.With("component", "serial"))
		if err != nil {
			return err
		}
		errg.Go(func() error {
			err := link.Run(linkCtx)
			if linkCtx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "serial link failed")
		})
		outputs = append(outputs, link)

	case TerminalOutput:
		term, err := preview.NewTerminal(nil, d.logger.With("component", "terminal"))
		if err != nil {
			return err
		}
		defer term.Close()
		errg.Go(func() error {
			err := term.Run(ctx)
			if errors.Is(err, preview.ErrQuit) {
				d.logger.Info("quit requested from terminal")
				return context.Canceled
			}
			return err
		})
		outputs = append(outputs, term)

	case NoOutput:
	}

	var hub *preview.Hub
	if d.cfg.Preview.WebSocket {
		hub = preview.NewHub(d.logger.With("component", "preview"))
		outputs = append(outputs, hub)
	}

	out := m.InstrumentOutput(led.MultiOutput(outputs...))
	surface := led.NewSurface(d.cfg.NumLEDs, out, d.logger.With("component", "surface"))
	sched := scheduler.New(surface, d.logger.With("component", "scheduler"), m)

	opts := httpapi.Options{
		Controller: sched,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:     d.logger.With("component", "http"),
	}
	if hub != nil {
		opts.Preview = hub
	}

	server := &http.Server{
		Addr:              d.cfg.Listen,
		Handler:           httpapi.New(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errg.Go(func() error {
		var err error
		if d.listen != nil {
			err = server.Serve(d.listen)
		} else {
			d.logger.Info("listening", "addr", d.cfg.Listen)
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server failed")
	})

	errg.Go(func() error {
		<-ctx.Done()
		d.logger.Debug("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(sctx); err != nil {
			d.logger.Warn("failed to shut down HTTP server", "err", err)
		}

		if err := sched.StopAll(sctx); err != nil {
			d.logger.Warn("failed to turn off strip", "err", err)
		}

		if hub != nil {
			hub.Close()
		}

		cancelLink()
		return ctx.Err()
	})

	err := errg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
