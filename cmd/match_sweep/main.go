package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yungbote/solace-backend/internal/app"
)

func main() {
	var timeout time.Duration
	var quiet bool
	flag.DurationVar(&timeout, "timeout", 0, "abort the sweep after this long (0 = no limit)")
	flag.BoolVar(&quiet, "quiet", false, "do not print the sweep report")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := application.Services.Driver.RunForAllUsers(ctx)
	stop()
	application.Close()
	if err != nil {
		fmt.Printf("sweep failed: %v\n", err)
		os.Exit(1)
	}
	if !quiet {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	}
	if report.Skipped {
		fmt.Println("sweep skipped: another sweep holds the lease")
		return
	}
	if report.HasFailures() {
		os.Exit(2)
	}
}
