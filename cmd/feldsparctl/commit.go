package main

import (
	"context"
	"flag"

	"github.com/feldspar/feldspar"
)

func cmdCommit(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("commit", flag.ExitOnError)
	path := fset.String("path", "map.db", "path to the map database file")
	fset.Parse(args)

	m, err := feldspar.Open(*path, feldspar.DefaultConfig())
	if err != nil {
		return err
	}
	defer m.Close()

	v, err := m.Commit()
	if err != nil {
		return err
	}
	status("committed version %d", v)
	return nil
}
