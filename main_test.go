package main

import (
	"flag"
	"io"
	"testing"

	"github.com/rtm0/nino34/internal/climate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseRegion(t *testing.T, args ...string) (climate.Region, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	rf := addRegionFlags(fs)
	require.NoError(t, fs.Parse(args))
	return rf.region()
}

func TestRegionFlags_Default(t *testing.T) {
	r, err := parseRegion(t)
	require.NoError(t, err)
	assert.Equal(t, climate.Nino34, r)
}

func TestRegionFlags_Named(t *testing.T) {
	r, err := parseRegion(t, "-region", "nino4")
	require.NoError(t, err)
	assert.Equal(t, climate.Nino4, r)
}

func TestRegionFlags_Custom(t *testing.T) {
	r, err := parseRegion(t, "-region", "custom", "-latBottom", "-10", "-latTop", "10", "-lonLeft", "120", "-lonRight", "280")
	require.NoError(t, err)
	assert.Equal(t, climate.Region{Name: "custom", LatBottom: -10, LatTop: 10, LonLeft: 120, LonRight: 280}, r)
}

func TestRegionFlags_CustomInvalid(t *testing.T) {
	_, err := parseRegion(t, "-region", "custom", "-lonLeft", "300", "-lonRight", "20")
	assert.ErrorIs(t, err, climate.ErrInvalidRegion)
}

func TestRegionFlags_Unknown(t *testing.T) {
	_, err := parseRegion(t, "-region", "atlantic")
	assert.ErrorIs(t, err, climate.ErrUnknownRegion)
}
