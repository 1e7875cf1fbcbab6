// Package httpapi serves regional indices and temperature maps of a loaded
// dataset over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rtm0/nino34/internal/climate"
	"github.com/rtm0/nino34/internal/observability"
	"github.com/rtm0/nino34/internal/render"
)

// Server exposes health, metrics, index and map HTTP endpoints.
type Server struct {
	httpServer *http.Server
	dataset    *Dataset
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server for the dataset.
func NewServer(addr string, ds *Dataset, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dataset: ds,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ds))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/regions", s.handleRegions)
	mux.HandleFunc("GET /v1/index/{region}", s.handleIndex)
	mux.HandleFunc("GET /v1/area-mean", s.handleAreaMean)
	mux.HandleFunc("GET /v1/map/{t}", s.handleMap)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, climate.Regions())
}

type indexResponse struct {
	Kind     climate.Kind      `json:"kind"`
	Series   *climate.Series   `json:"series"`
	Episodes []climate.Episode `json:"episodes,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	region, err := climate.LookupRegion(r.PathValue("region"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.serveSeries(w, r, region)
}

func (s *Server) handleAreaMean(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	region := climate.Region{Name: "custom"}
	for _, b := range []struct {
		key string
		dst *float64
	}{
		{"lat_bottom", &region.LatBottom},
		{"lat_top", &region.LatTop},
		{"lon_left", &region.LonLeft},
		{"lon_right", &region.LonRight},
	} {
		v, err := strconv.ParseFloat(q.Get(b.key), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid or missing "+b.key))
			return
		}
		*b.dst = v
	}
	s.serveSeries(w, r, region)
}

func (s *Server) serveSeries(w http.ResponseWriter, r *http.Request, region climate.Region) {
	f := s.dataset.Field()
	if f == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("dataset not loaded"))
		return
	}
	kind := climate.KindMean
	q := r.URL.Query()
	switch {
	case q.Get("oni") == "true":
		kind = climate.KindONI
	case q.Get("anomaly") == "true":
		kind = climate.KindAnomaly
	}

	start := time.Now()
	series, err := climate.AreaMean(f, region)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.metrics.Reductions.WithLabelValues(region.Name).Inc()
	s.metrics.ReductionDuration.Observe(time.Since(start).Seconds())

	series, err = series.Derive(kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := indexResponse{Kind: kind, Series: series}
	if kind == climate.KindONI {
		resp.Episodes = climate.Episodes(series, climate.DefaultThreshold, climate.DefaultMinRun)
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	f := s.dataset.Field()
	if f == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("dataset not loaded"))
		return
	}
	t, err := strconv.Atoi(r.PathValue("t"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("time index must be an integer"))
		return
	}
	opts := render.Options{}
	if name := r.URL.Query().Get("region"); name != "" {
		region, err := climate.LookupRegion(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		opts.Region = &region
	}
	if v := r.URL.Query().Get("width"); v != "" {
		if opts.Width, err = strconv.Atoi(v); err != nil || opts.Width > 4096 {
			writeError(w, http.StatusBadRequest, errors.New("invalid width"))
			return
		}
	}

	var buf bytes.Buffer
	if err := render.Map(&buf, f, t, opts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.metrics.MapRenders.Inc()
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
