package export_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rtm0/nino34/internal/climate"
	"github.com/rtm0/nino34/internal/export"
	"github.com/rtm0/nino34/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	mu      sync.Mutex
	batches [][]climate.Record
	failOn  int64 // timestamp of a record that makes its batch fail
	flaky   int   // number of leading Insert calls that fail
	calls   int
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Insert(_ context.Context, recs []climate.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.flaky {
		return errors.New("connection reset")
	}
	for _, r := range recs {
		if m.failOn != 0 && r.Timestamp == m.failOn {
			return errors.New("sink unavailable")
		}
	}
	m.batches = append(m.batches, recs)
	return nil
}

func (m *mockSink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func makeRecs(n int) []climate.Record {
	recs := make([]climate.Record, n)
	for i := range recs {
		recs[i] = climate.Record{Timestamp: int64(i + 1), Region: "nino34", Value: 299 + float64(i)/100}
	}
	return recs
}

func TestExporterRun_AllBatches(t *testing.T) {
	sink := &mockSink{}
	metrics := observability.NewMetricsForTesting()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	e := export.New(sink, 3, 500, clockwork.NewFakeClock(), logger, metrics)
	n, err := e.Run(context.Background(), makeRecs(1050))

	require.NoError(t, err)
	assert.Equal(t, 1050, n)
	assert.Equal(t, 1050, sink.total())
	assert.Len(t, sink.batches, 3)
	assert.Equal(t, 1050.0, testutil.ToFloat64(metrics.RecordsExported.WithLabelValues("mock")))
	assert.Contains(t, logs.String(), "inserted=100.00%")
	assert.Contains(t, logs.String(), "in=0s")
}

func TestExporterRun_FailedBatch(t *testing.T) {
	sink := &mockSink{failOn: 7}
	metrics := observability.NewMetricsForTesting()

	e := export.New(sink, 2, 5, clockwork.NewFakeClock(), slog.Default(), metrics)
	n, err := e.Run(context.Background(), makeRecs(12))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink unavailable")
	assert.Equal(t, 7, n)
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.ExportErrors.WithLabelValues("mock")))
}

func TestExporterRun_Cancelled(t *testing.T) {
	sink := &mockSink{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := export.New(sink, 1, 1, nil, slog.Default(), observability.NewMetricsForTesting())
	_, err := e.Run(ctx, makeRecs(100))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, sink.total(), 100)
}

func TestExporterRun_Empty(t *testing.T) {
	e := export.New(&mockSink{}, 4, 10, nil, slog.Default(), observability.NewMetricsForTesting())
	n, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExporterRun_RetriesFailedBatch(t *testing.T) {
	sink := &mockSink{flaky: 2}
	metrics := observability.NewMetricsForTesting()

	e := export.New(sink, 1, 10, clockwork.NewFakeClock(), slog.Default(), metrics).
		WithRetry(3, time.Millisecond, 2*time.Millisecond)
	n, err := e.Run(context.Background(), makeRecs(10))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 3, sink.calls)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.ExportErrors.WithLabelValues("mock")), 0)
}

func TestExporterRun_RetriesExhausted(t *testing.T) {
	sink := &mockSink{flaky: 5}
	e := export.New(sink, 1, 10, nil, slog.Default(), observability.NewMetricsForTesting()).
		WithRetry(2, time.Millisecond, time.Millisecond)
	n, err := e.Run(context.Background(), makeRecs(10))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, sink.calls)
}
