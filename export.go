package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rtm0/nino34/internal/climate"
	"github.com/rtm0/nino34/internal/export"
	"github.com/rtm0/nino34/internal/kafka"
	"github.com/rtm0/nino34/internal/vm"
)

const (
	retryBackoff    = time.Second
	maxRetryBackoff = 30 * time.Second
)

func runExport(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	df := addDatasetFlags(fs, e.cfg)
	rf := addRegionFlags(fs)
	kind := fs.String("kind", string(climate.KindMean), "index form: mean, anomaly or oni")
	sinkName := fs.String("sink", "vm", "destination: vm (Victoria Metrics) or kafka")
	concurrency := fs.Int("concurrency", e.cfg.VMConcurrency, "number of concurrent inserts")
	recsPerInsert := fs.Int("recsPerInsert", e.cfg.VMRecsPerInsert, "number of records sent in one batch")
	vmInsertURL := fs.String("vmInsertUrl", e.cfg.VMInsertURL, "Victoria Metrics insert API URL. Default: InfluxDB line protocol v2")
	metricPrefix := fs.String("metricPrefix", e.cfg.MetricPrefix, "Victoria Metrics metric name prefix")
	retries := fs.Int("retries", e.cfg.ExportRetries, "attempts per batch before it counts as failed")
	kafkaTopic := fs.String("kafkaTopic", e.cfg.KafkaTopic, "Kafka topic")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	region, err := rf.region()
	if err != nil {
		return err
	}

	var sink export.Sink
	switch *sinkName {
	case "vm":
		vmCli, err := vm.NewClient(e.logger, *vmInsertURL, *concurrency, *metricPrefix)
		if err != nil {
			return fmt.Errorf("could not create new VM client: %w", err)
		}
		sink = vmCli
	case "kafka":
		w := kafka.NewWriter(e.cfg.KafkaBrokers, *kafkaTopic, filepath.Base(*df.file), e.logger)
		defer func() {
			if err := w.Close(); err != nil {
				e.logger.Error("kafka writer close error", "err", err)
			}
		}()
		sink = w
	default:
		return fmt.Errorf("unknown sink %q", *sinkName)
	}

	f, err := e.loadField(df)
	if err != nil {
		return err
	}
	s, err := e.series(f, region, climate.Kind(*kind))
	if err != nil {
		return err
	}
	recs := s.Records()
	e.logger.Info("exporting", "sink", sink.Name(), "region", region.Name, "kind", *kind, "recs", len(recs))

	n, err := export.New(sink, *concurrency, *recsPerInsert, nil, e.logger, e.metrics).
		WithRetry(*retries, retryBackoff, maxRetryBackoff).
		Run(ctx, recs)
	e.logger.Info("export finished", "sink", sink.Name(), "inserted", n, "total", len(recs))
	return err
}
