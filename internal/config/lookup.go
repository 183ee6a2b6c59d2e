package config

import (
	"fmt"

	"github.com/example/go-lerp/internal/lookup"
	"github.com/example/go-lerp/internal/mesh"
)

// Methods parses the configured default interpolation and extrapolation.
func (c LookupConfig) Methods() (lookup.Interp, lookup.Extrap, error) {
	interp, err := lookup.ParseInterp(c.Interp)
	if err != nil {
		return 0, 0, fmt.Errorf("lookup.interp: %w", err)
	}

	extrap, err := lookup.ParseExtrap(c.Extrap)
	if err != nil {
		return 0, 0, fmt.Errorf("lookup.extrap: %w", err)
	}

	return interp, extrap, nil
}

// MeshOptions returns the per-mesh defaults.
func (c LookupConfig) MeshOptions() mesh.Options {
	return mesh.Options{Extrapolate: c.Extrapolate, Step: c.Step}
}

// RunOptions returns the parallel evaluation settings. Non-positive values
// keep the engine defaults.
func (c RuntimeConfig) RunOptions() []lookup.Option {
	var opts []lookup.Option
	if c.Workers > 0 {
		opts = append(opts, lookup.WithWorkers(c.Workers))
	}

	if c.MinChunk > 0 {
		opts = append(opts, lookup.WithMinChunk(c.MinChunk))
	}

	return opts
}
