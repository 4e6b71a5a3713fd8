package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/di"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/config"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue called customers",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Waitlist.StorageDriver == config.StorageDriverMemory {
				return fmt.Errorf("sweep needs shared storage; WAITLIST_STORAGE_DRIVER is %q", cfg.Waitlist.StorageDriver)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container, err := di.NewContainer(ctx, &di.ContainerConfig{Config: cfg})
			if err != nil {
				return err
			}
			defer container.Close()

			if once {
				res := container.Sweeper.SweepOnce(ctx)
				c.Printf("queues=%d expired=%d skipped=%d failed=%d\n",
					res.QueuesScanned, res.Expired, res.Skipped, res.Failed)
				if res.Failed > 0 {
					return fmt.Errorf("%d expirations failed", res.Failed)
				}
				return nil
			}

			if err := container.Sweeper.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}
