package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/feldspar/feldspar"
)

func cmdInspect(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("inspect", flag.ExitOnError)
	path := fset.String("path", "map.db", "path to the map database file")
	fset.Parse(args)

	m, err := feldspar.Open(*path, feldspar.DefaultConfig())
	if err != nil {
		return err
	}
	defer m.Close()

	meta, err := m.Db.Metadata()
	if err != nil {
		return err
	}
	fmt.Printf("working:     %d\n", meta.Working)
	if meta.HasParent {
		fmt.Printf("parent:      %d\n", meta.Parent)
	} else {
		fmt.Printf("parent:      (none)\n")
	}
	if meta.HasGrandparent {
		fmt.Printf("grandparent: %d\n", meta.Grandparent)
	} else {
		fmt.Printf("grandparent: (none)\n")
	}
	fmt.Printf("roots:       %d\n", m.Clip.Tree.NumRoots())

	fmt.Printf("version graph:\n")
	return m.Db.VersionEdges(func(v, parent uint64, hasParent bool) {
		if hasParent {
			fmt.Printf("  %d -> %d\n", v, parent)
		} else {
			fmt.Printf("  %d (root)\n", v)
		}
	})
}
