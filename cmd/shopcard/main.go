package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spherical/shopcard/cmd/shopcard/commands"
	"github.com/spherical/shopcard/cmd/shopcard/ui"
	"github.com/spherical/shopcard/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.Execute(ctx)
	stop()
	if err != nil {
		ui.Error("%v", err)
		os.Exit(domain.ExitCode(err))
	}
}
