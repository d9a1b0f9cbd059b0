package app

import (
	"context"

	"toneai/pkg/logger"
	"toneai/pkg/shutdown"
)

// Shutdown stops accepting requests, then the scheduler (waiting for a
// compaction in flight), then closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.state = "shutting_down"
	err := shutdown.Run(ctx,
		shutdown.Step{Name: "http", Fn: func(context.Context) error {
			if a.srvFast == nil {
				return nil
			}
			return a.srvFast.Shutdown()
		}},
		shutdown.Step{Name: "maintenance", Fn: func(ctx context.Context) error {
			if a.maintenance == nil {
				return nil
			}
			return a.maintenance.Stop(ctx)
		}},
		shutdown.Step{Name: "gateway", Fn: func(context.Context) error {
			if a.closeGateway != nil {
				a.closeGateway()
			}
			return nil
		}},
		shutdown.Step{Name: "store", Fn: func(context.Context) error {
			return a.db.Close()
		}},
		shutdown.Step{Name: "logger", Fn: func(context.Context) error {
			logger.Sync()
			return nil
		}},
	)
	if err == nil {
		a.state = "stopped"
	}
	return err
}

// State reports the lifecycle phase.
func (a *App) State() string { return a.state }
