package main

import (
	"fmt"
	"os"

	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/config"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "waitlistctl",
		Short:         "Operational commands for the waitlist service",
		SilenceUsage:  true,
	}
	root.AddCommand(newMigrateCmd(), newSweepCmd())
	return root
}

// loadConfig loads configuration and initializes a console logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(&logger.Config{
		Level:       "info",
		ServiceName: "waitlistctl",
		Development: true,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
