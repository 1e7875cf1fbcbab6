package main

import (
	"context"
	"errors"
	"flag"
	"net/http"

	"github.com/rtm0/nino34/internal/httpapi"
)

func runServe(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	df := addDatasetFlags(fs, e.cfg)
	addr := fs.String("addr", e.cfg.HTTPAddr, "HTTP listen address")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	ds := &httpapi.Dataset{}
	srv := httpapi.NewServer(*addr, ds, e.metrics, e.logger)

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Load in the background; /readyz reports 503 until the field is set.
	go func() {
		f, err := e.loadField(df)
		if err != nil {
			errCh <- err
			return
		}
		ds.Set(f)
		e.logger.Info("dataset ready", f.Summary()...)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		e.logger.Info("shutting down")
	case runErr = <-errCh:
		e.logger.Error("serve failed", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		e.logger.Error("http server shutdown error", "err", err)
	}
	e.logger.Info("shutdown complete")
	return runErr
}
