// Package metrics exposes prometheus collectors for the strip and the effect
// scheduler.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"libdb.so/emberglow/internal/led"
)

const namespace = "emberglow"

// Metrics holds the daemon's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	flushes       prometheus.Counter
	flushErrors   prometheus.Counter
	flushDuration prometheus.Histogram

	effectStarts *prometheus.CounterVec
	effectFaults *prometheus.CounterVec
	effectActive prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Count of frames flushed to the strip.",
		}),
		flushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_errors_total",
			Help:      "Count of frames that failed to flush.",
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent writing a frame to the outputs.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		effectStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "effect_starts_total",
			Help:      "Count of effects started, by effect.",
		}, []string{"effect"}),
		effectFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "effect_faults_total",
			Help:      "Count of effects that terminated with a fault, by effect.",
		}, []string{"effect"}),
		effectActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "effect_active",
			Help:      "1 if an effect is running, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		m.flushes,
		m.flushErrors,
		m.flushDuration,
		m.effectStarts,
		m.effectFaults,
		m.effectActive,
	)

	return m
}

// RecordEffectStart records that the named effect was started.
func (m *Metrics) RecordEffectStart(effect string) {
	if m == nil {
		return
	}
	m.effectStarts.WithLabelValues(effect).Inc()
	m.effectActive.Set(1)
}

// RecordEffectStop records that the running effect ended.
func (m *Metrics) RecordEffectStop() {
	if m == nil {
		return
	}
	m.effectActive.Set(0)
}

// RecordEffectFault records that the named effect terminated with a fault.
func (m *Metrics) RecordEffectFault(effect string) {
	if m == nil {
		return
	}
	m.effectFaults.WithLabelValues(effect).Inc()
}

// InstrumentOutput wraps out so that every frame written is counted and
// timed.
func (m *Metrics) InstrumentOutput(out led.Output) led.Output {
	if m == nil {
		return out
	}
	return led.OutputFunc(func(ctx context.Context, frame led.LEDs) error {
		start := time.Now()
		err := out.WriteFrame(ctx, frame)
		m.flushDuration.Observe(time.Since(start).Seconds())
		m.flushes.Inc()
		if err != nil {
			m.flushErrors.Inc()
		}
		return err
	})
}
