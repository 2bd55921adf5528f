// Command medallion builds the bronze, silver and gold layers of a data lake,
// optionally downloading the raw files from Azure Blob Storage first.
//
// Usage:
//
//	medallion [--base DIR] [--azure [--account A] [--container C] [--sas TOKEN]] [flags]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/askiada/go-medallion/internal/cli"
	"github.com/askiada/go-medallion/internal/telemetry"
)

// version is set with ldflags at build time.
var version = "dev"

func main() {
	telemetry.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.NewRootCmd(cli.RunPipeline, version).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}
