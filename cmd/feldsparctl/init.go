package main

import (
	"context"
	"flag"

	"github.com/feldspar/feldspar"
)

func cmdInit(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("init", flag.ExitOnError)
	path := fset.String("path", "map.db", "path to the map database file to create")
	fset.Parse(args)

	m, err := feldspar.Open(*path, feldspar.DefaultConfig())
	if err != nil {
		return err
	}
	defer m.Close()

	status("initialized %s", *path)
	return nil
}
