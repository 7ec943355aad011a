package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/runnerr0/histmerge/internal/api"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Host != "" {
		a.cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		a.cfg.Server.Port = c.Port
	}

	handler := api.NewHandler(a.harvester, a.logger)
	// Let a running extraction finish before the store is closed.
	handler.ShutdownTimeout = a.cfg.BrowserTimeout() + api.DefaultShutdownTimeout
	if err := handler.Serve(ctx, a.cfg.ServerAddr()); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
