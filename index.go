package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/rtm0/nino34/internal/climate"
)

func runIndex(_ context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	df := addDatasetFlags(fs, e.cfg)
	rf := addRegionFlags(fs)
	kind := fs.String("kind", string(climate.KindMean), "index form: mean, anomaly or oni")
	episodes := fs.Bool("episodes", false, "list El Niño / La Niña episodes of the ONI instead of values")
	asJSON := fs.Bool("json", false, "print JSON")
	out := fs.String("out", "", "also write the series to this NetCDF file")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	region, err := rf.region()
	if err != nil {
		return err
	}
	if *episodes {
		*kind = string(climate.KindONI)
	}
	f, err := e.loadField(df)
	if err != nil {
		return err
	}
	s, err := e.series(f, region, climate.Kind(*kind))
	if err != nil {
		return err
	}
	if *out != "" {
		if err := climate.WriteSeries(*out, s); err != nil {
			return err
		}
		e.logger.Info("series written", "file", *out, "region", region.Name, "kind", *kind)
	}

	if *episodes {
		eps := climate.Episodes(s, climate.DefaultThreshold, climate.DefaultMinRun)
		if *asJSON {
			return json.NewEncoder(os.Stdout).Encode(eps)
		}
		for _, ep := range eps {
			fmt.Printf("%-8s %s %s %+.2f\n", ep.Phase, ep.Start.Format("2006-01"), ep.End.Format("2006-01"), ep.Peak)
		}
		return nil
	}
	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(s)
	}
	for k, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		fmt.Printf("%s\t%.4f\n", s.Times[k].Format("2006-01-02"), v)
	}
	return nil
}
