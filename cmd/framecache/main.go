// Command framecache inspects, verifies, builds and prunes sticker frame
// cache files.
//
// Usage:
//
//	framecache inspect <file>
//	framecache verify <file> -frames N [-reduced]
//	framecache build <dir> -key K -frames N -width W -height H [-fps F] [-compressor lz4|zstd|s2] [-reduced] [-remote URI]
//	framecache prune <dir> -max-size BYTES
//
// Every subcommand accepts -config file.yaml and -log-level.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	var cmd func(context.Context, []string, io.Writer, io.Writer) error
	switch args[0] {
	case "inspect":
		cmd = runInspect
	case "verify":
		cmd = runVerify
	case "build":
		cmd = runBuild
	case "prune":
		cmd = runPrune
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "framecache: unknown command %q\n", args[0])
		usage(stderr)
		return exitUsage
	}

	err := cmd(ctx, args[1:], stdout, stderr)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "framecache %s: %v\n", args[0], err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "framecache %s: %v\n", args[0], err)
		return exitError
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: framecache <command> [arguments]

commands:
  inspect <file>    print the header and record table of a cache file
  verify <file>     check a cache file against a frame count
  build <dir>       build (or fetch) a cache file for a procedural animation
  prune <dir>       evict least recently used files over a size budget

run "framecache <command> -h" for flags
`)
}
