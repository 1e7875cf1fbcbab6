package main

import (
	"context"
	"flag"
	"image/png"
	"os"

	"github.com/rtm0/nino34/internal/climate"
	"github.com/rtm0/nino34/internal/render"
)

func runMap(_ context.Context, e *env, args []string) (err error) {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	df := addDatasetFlags(fs, e.cfg)
	t := fs.Int("t", 12, "time index of the slice to draw")
	out := fs.String("out", "map.png", "output PNG file")
	width := fs.Int("width", 800, "image width in pixels")
	regionName := fs.String("region", climate.Nino34.Name, "region to outline")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	region, err := climate.LookupRegion(*regionName)
	if err != nil {
		return err
	}
	f, err := e.loadField(df)
	if err != nil {
		return err
	}
	img, err := render.Image(f, *t, render.Options{Width: *width, Region: &region})
	if err != nil {
		return err
	}

	w, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	if err := png.Encode(w, img); err != nil {
		return err
	}
	e.metrics.MapRenders.Inc()
	e.logger.Info("map written", "file", *out, "t", *t, "time", f.Times[*t].Format("2006-01"))
	return nil
}
