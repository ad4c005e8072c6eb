// Command feldsparctl drives a feldspar map database from the command
// line: initialize one, run streaming ticks against a fixed observer
// position, commit buffered edits into a version, branch to an earlier
// version, or inspect its current metadata.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/feldspar/feldspar/internal/oninterrupt"
)

var isTerminal = isatty.IsTerminal(os.Stdout.Fd())

// status prints a progress line when stdout is a terminal and stays quiet
// when piped, the same isatty-gated verbosity distri's build log output
// uses to avoid spamming log files with carriage-return progress bars.
func status(format string, args ...interface{}) {
	if !isTerminal {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func funcmain() error {
	verbs := map[string]func(ctx context.Context, args []string) error{
		"init":    cmdInit,
		"tick":    cmdTick,
		"commit":  cmdCommit,
		"branch":  cmdBranch,
		"inspect": cmdInspect,
	}

	args := os.Args[1:]
	if len(args) == 0 {
		return fmt.Errorf("usage: feldsparctl <init|tick|commit|branch|inspect> [-flags] <args>")
	}
	verb, rest := args[0], args[1:]
	fn, ok := verbs[verb]
	if !ok {
		return fmt.Errorf("unknown command %q", verb)
	}

	ctx, cancel := context.WithCancel(context.Background())
	oninterrupt.Register(cancel)
	return fn(ctx, rest)
}

func main() {
	log.SetFlags(0)
	if err := funcmain(); err != nil {
		log.Fatal(err)
	}
}
