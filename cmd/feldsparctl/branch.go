package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/feldspar/feldspar"
	"github.com/feldspar/feldspar/versiongraph"
)

func cmdBranch(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("branch", flag.ExitOnError)
	path := fset.String("path", "map.db", "path to the map database file")
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: feldsparctl branch [-path=map.db] <version>")
	}
	target, err := strconv.ParseUint(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", rest[0], err)
	}

	m, err := feldspar.Open(*path, feldspar.DefaultConfig())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.BranchFrom(versiongraph.Version(target)); err != nil {
		return err
	}
	status("switched to version %d", target)
	return nil
}
