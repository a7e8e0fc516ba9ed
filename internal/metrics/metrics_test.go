package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"libdb.so/emberglow/internal/led"
)

func TestInstrumentOutputCountsFlushes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	fail := false
	out := m.InstrumentOutput(led.OutputFunc(func(context.Context, led.LEDs) error {
		if fail {
			return errors.New("unplugged")
		}
		return nil
	}))

	assert.NoError(t, out.WriteFrame(context.Background(), led.NewLEDs(1)))
	fail = true
	assert.Error(t, out.WriteFrame(context.Background(), led.NewLEDs(1)))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.flushes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flushErrors))
}

func TestEffectLifecycle(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordEffectStart("strobe")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.effectActive))
	m.RecordEffectFault("strobe")
	m.RecordEffectStop()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.effectStarts.WithLabelValues("strobe")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.effectFaults.WithLabelValues("strobe")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.effectActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordEffectStart("fire_v2")
		m.RecordEffectFault("fire_v2")
		m.RecordEffectStop()
	})
	assert.NoError(t, m.InstrumentOutput(led.Discard).WriteFrame(context.Background(), led.NewLEDs(1)))
}
