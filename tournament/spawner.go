package tournament

import (
	"arena-runner/applog"
	"arena-runner/process"
	"context"
	"go.uber.org/zap"
)

// Spawner starts the external processes of a run.
type Spawner interface {
	Spawn(ctx context.Context, cmd process.Command) (*process.Process, error)
}

type SpawnerFunc func(ctx context.Context, cmd process.Command) (*process.Process, error)

func (f SpawnerFunc) Spawn(ctx context.Context, cmd process.Command) (*process.Process, error) {
	return f(ctx, cmd)
}

// ProcessSpawner starts real child processes.
type ProcessSpawner struct {
	Options process.Options
}

func (s ProcessSpawner) Spawn(ctx context.Context, cmd process.Command) (*process.Process, error) {
	applog.FromContext(ctx).Debug("Launching process",
		zap.String("process", cmd.Name),
		zap.Stringer("command", cmd))
	return process.Start(ctx, cmd, s.Options)
}

// reap collects the exit status once the process is gone.
func reap(p *process.Process) {
	go func() {
		if err := p.Wait(); err != nil {
			applog.Debug("Process finished with error",
				zap.String("process", p.Name()),
				zap.Error(err))
		}
		if err := p.OutputErr(); err != nil {
			applog.Warn("Process output was cut short",
				zap.String("process", p.Name()),
				zap.Error(err))
		}
	}()
}
