// Command nino34 derives the El Niño 3.4 index from monthly surface
// temperature grids produced by the CCSM4 climate simulator.
//
// Usage:
//
//	nino34 <command> [flags]
//
// Commands:
//
//	regions   list the named Niño regions
//	index     print a regional index (area mean, anomaly or ONI)
//	map       render one time slice as a PNG world map
//	export    write a regional index to VictoriaMetrics or Kafka
//	serve     serve indices and maps over HTTP
//
// Settings are read from the environment (NINO_DATA_FILE, LOG_LEVEL, ...)
// and can be overridden by flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/rtm0/nino34/internal/climate"
	"github.com/rtm0/nino34/internal/config"
	"github.com/rtm0/nino34/internal/observability"
)

// env is shared by all commands.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"regions": {"regions", runRegions},
	"index":   {"index [-file tas.nc] [-region nino34] [-kind mean|anomaly|oni] [-episodes] [-json] [-out index.nc]", runIndex},
	"map":     {"map [-file tas.nc] [-t 12] [-out map.png]", runMap},
	"export":  {"export [-file tas.nc] [-sink vm|kafka] [-region nino34]", runExport},
	"serve":   {"serve [-file tas.nc] [-addr :8080]", runServe},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "nino34: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := &env{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}
	if err := cmd.run(ctx, e, os.Args[2:]); err != nil {
		logger.Error("command failed", "cmd", os.Args[1], "err", err)
		stop()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: nino34 <command> [flags]\n\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  nino34 %s\n", commands[name].usage)
	}
}

// datasetFlags are the flags selecting and decoding the input file.
type datasetFlags struct {
	file        *string
	variable    *string
	rebaseStart *string
	forceRebase *bool
}

func addDatasetFlags(fs *flag.FlagSet, cfg *config.Config) *datasetFlags {
	return &datasetFlags{
		file:        fs.String("file", cfg.DataFile, "path to a CCSM4 surface temperature file in NetCDF format"),
		variable:    fs.String("var", cfg.Variable, "data variable dimensioned (time, lat, lon)"),
		rebaseStart: fs.String("rebaseStart", cfg.RebaseStart.Format("2006-01"), "start month (YYYY-MM) of a renormalized time axis"),
		forceRebase: fs.Bool("forceRebase", cfg.ForceRebase, "renormalize the time axis even if it can be decoded"),
	}
}

func (e *env) loadField(df *datasetFlags) (*climate.Field, error) {
	if *df.file == "" {
		return nil, fmt.Errorf("no input file: set -file or NINO_DATA_FILE")
	}
	start, err := time.Parse("2006-01", *df.rebaseStart)
	if err != nil {
		return nil, fmt.Errorf("invalid -rebaseStart %q, want YYYY-MM", *df.rebaseStart)
	}
	begin := time.Now()
	f, err := climate.Open(*df.file, climate.Options{
		Variable:    *df.variable,
		RebaseStart: start,
		ForceRebase: *df.forceRebase,
		Logger:      e.logger,
	})
	if err != nil {
		return nil, err
	}
	e.metrics.DatasetLoads.Inc()
	e.metrics.LoadDuration.Observe(time.Since(begin).Seconds())
	e.metrics.DatasetTimeSteps.Set(float64(len(f.Times)))
	return f, nil
}

// regionFlags select a named region or a custom box.
type regionFlags struct {
	name                                 *string
	latBottom, latTop, lonLeft, lonRight *float64
}

func addRegionFlags(fs *flag.FlagSet) *regionFlags {
	return &regionFlags{
		name:      fs.String("region", climate.Nino34.Name, `named region, or "custom" to use the bound flags`),
		latBottom: fs.Float64("latBottom", climate.EnLatBottom, "custom region southern bound (°N)"),
		latTop:    fs.Float64("latTop", climate.EnLatTop, "custom region northern bound (°N)"),
		lonLeft:   fs.Float64("lonLeft", climate.EnLonLeft, "custom region western bound (°E, 0-360)"),
		lonRight:  fs.Float64("lonRight", climate.EnLonRight, "custom region eastern bound (°E, 0-360)"),
	}
}

func (rf *regionFlags) region() (climate.Region, error) {
	if *rf.name != "custom" {
		return climate.LookupRegion(*rf.name)
	}
	r := climate.Region{
		Name:      "custom",
		LatBottom: *rf.latBottom,
		LatTop:    *rf.latTop,
		LonLeft:   *rf.lonLeft,
		LonRight:  *rf.lonRight,
	}
	return r, r.Validate()
}

// series computes the regional index in the requested form.
func (e *env) series(f *climate.Field, r climate.Region, kind climate.Kind) (*climate.Series, error) {
	begin := time.Now()
	s, err := climate.AreaMean(f, r)
	if err != nil {
		return nil, err
	}
	e.metrics.Reductions.WithLabelValues(r.Name).Inc()
	e.metrics.ReductionDuration.Observe(time.Since(begin).Seconds())
	return s.Derive(kind)
}

func runRegions(_ context.Context, _ *env, args []string) error {
	fs := flag.NewFlagSet("regions", flag.ExitOnError)
	fs.Parse(args) //nolint:errcheck // ExitOnError
	for _, r := range climate.Regions() {
		fmt.Printf("%-8s lat %6.1f..%5.1f  lon %6.1f..%6.1f\n", r.Name, r.LatBottom, r.LatTop, r.LonLeft, r.LonRight)
	}
	return nil
}
