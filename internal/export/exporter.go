// Package export writes index records to a sink in batches using a pool of
// concurrent workers.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
	"github.com/rtm0/nino34/internal/climate"
	"github.com/rtm0/nino34/internal/observability"
)

// Sink stores batches of index records.
type Sink interface {
	Name() string
	Insert(ctx context.Context, recs []climate.Record) error
}

// Exporter fans batches of records out to concurrent sink writers.
type Exporter struct {
	sink          Sink
	concurrency   int
	recsPerInsert int
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       *observability.Metrics

	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

// New creates an Exporter. A nil clock uses the real clock.
func New(sink Sink, concurrency, recsPerInsert int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Exporter{
		sink:          sink,
		concurrency:   max(concurrency, 1),
		recsPerInsert: max(recsPerInsert, 1),
		clock:         clock,
		logger:        logger,
		metrics:       metrics,
		attempts:      1,
	}
}

// WithRetry makes every batch insert up to attempts times, doubling the
// pause between attempts from backoff up to maxBackoff.
func (e *Exporter) WithRetry(attempts int, backoff, maxBackoff time.Duration) *Exporter {
	e.attempts = max(attempts, 1)
	e.backoff = backoff
	e.maxBackoff = max(maxBackoff, backoff)
	return e
}

func (e *Exporter) insert(ctx context.Context, batch []climate.Record) error {
	wait := e.backoff
	var err error
	for attempt := 1; ; attempt++ {
		if err = e.sink.Insert(ctx, batch); err == nil || attempt >= e.attempts {
			return err
		}
		e.logger.Warn("batch insert failed, retrying", "sink", e.sink.Name(), "attempt", attempt, "backoff", wait, "err", err)
		if !retry.SleepWithContext(ctx, wait) {
			return errors.Join(err, ctx.Err())
		}
		wait = retry.NextBackoff(wait, e.maxBackoff)
	}
}

type result struct {
	n   int
	err error
}

// Run inserts all records and returns how many were inserted. Failed batches
// do not stop the export; their errors are joined into the returned error.
func (e *Exporter) Run(ctx context.Context, recs []climate.Record) (int, error) {
	batchCh := make(chan []climate.Record)
	progressCh := make(chan result)
	var wg sync.WaitGroup
	for range e.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchCh {
				progressCh <- result{n: len(batch), err: e.insert(ctx, batch)}
			}
		}()
	}

	type summary struct {
		inserted int
		err      error
	}
	doneCh := make(chan summary)
	go func() {
		var s summary
		var errs []error
		total := float64(len(recs))
		start := e.clock.Now()
		sink := e.sink.Name()
		for r := range progressCh {
			if r.err != nil {
				e.metrics.ExportErrors.WithLabelValues(sink).Add(float64(r.n))
				e.logger.Error("Could not insert batch", "sink", sink, "recs", r.n, "err", r.err)
				errs = append(errs, r.err)
				continue
			}
			s.inserted += r.n
			e.metrics.RecordsExported.WithLabelValues(sink).Add(float64(r.n))
			percent := fmt.Sprintf("%.2f%%", 100*float64(s.inserted)/total)
			duration := e.clock.Since(start).Round(1 * time.Second)
			e.logger.Info("progress", "sink", sink, "inserted", percent, "in", duration)
		}
		s.err = errors.Join(errs...)
		doneCh <- s
	}()

feed:
	for begin := 0; begin < len(recs); begin += e.recsPerInsert {
		limit := min(begin+e.recsPerInsert, len(recs))
		select {
		case batchCh <- recs[begin:limit]:
		case <-ctx.Done():
			break feed
		}
	}
	close(batchCh)
	wg.Wait()
	close(progressCh)

	s := <-doneCh
	if err := ctx.Err(); err != nil {
		s.err = errors.Join(s.err, err)
	}
	return s.inserted, s.err
}
