package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kong/officectl/internal/build"
	"github.com/kong/officectl/internal/cmd/root"
	"github.com/kong/officectl/internal/iostreams"
)

// Overridden by the linker at release time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func registerSignalHandler(errOut *os.File) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		sig := <-sigs
		// stdout may be carrying MCP traffic.
		fmt.Fprintln(errOut, "received", sig, ", terminating...")
		cancel()
	}()
	return ctx
}

func main() {
	ctx := registerSignalHandler(os.Stderr)
	os.Exit(root.Execute(ctx, iostreams.GetOSIOStreams(), &build.Info{
		Version: version,
		Commit:  commit,
		Date:    date,
	}))
}
