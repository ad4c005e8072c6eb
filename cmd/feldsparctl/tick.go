package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/feldspar/feldspar"
	"github.com/feldspar/feldspar/geom"
	"github.com/feldspar/feldspar/internal/tick"
)

func cmdTick(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("tick", flag.ExitOnError)
	var (
		path       = fset.String("path", "map.db", "path to the map database file")
		x          = fset.Float64("x", 0, "observer x position")
		y          = fset.Float64("y", 0, "observer y position")
		z          = fset.Float64("z", 0, "observer z position")
		n          = fset.Int("n", 1, "number of ticks to run")
		ctracefile = fset.String("ctracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")
	)
	fset.Parse(args)

	if *ctracefile != "" {
		f, err := os.Create(*ctracefile)
		if err != nil {
			return err
		}
		defer f.Close()
		tick.Sink(f)
	}

	m, err := feldspar.Open(*path, feldspar.DefaultConfig())
	if err != nil {
		return err
	}
	defer m.Close()

	return tickLoop(ctx, m, float32(*x), float32(*y), float32(*z), *n)
}

func tickLoop(ctx context.Context, m *feldspar.Map, x, y, z float32, n int) error {
	observer := geom.Vec3{X: x, Y: y, Z: z}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		changes, err := m.Tick(ctx, observer)
		if err != nil {
			return err
		}
		status("tick %d: %d LOD changes in %s", i, len(changes), time.Since(start))
	}
	return nil
}
