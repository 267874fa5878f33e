package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/pgpkeeper/internal/cli"
	"github.com/dmitrijs2005/pgpkeeper/internal/config"
	"github.com/dmitrijs2005/pgpkeeper/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := cli.NewApp(cfg, logging.NewTextLogger(os.Stderr, cfg.LogLevel))
	defer app.Close()

	if err := app.Execute(ctx, os.Args[1:]); err != nil {
		if cli.IsFatal(err) {
			log.Fatalf("fatal: %v", err)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
