package tournament

import (
	"arena-runner/applog"
	"arena-runner/frame"
	"arena-runner/process"
	"context"
	"fmt"
	"go.uber.org/zap"
)

// monitorHost follows the match host's output and records every finished
// game in the ledger. It returns after expected games, when the run
// crashes or ctx is done, or when the host's output ends. Only ledger
// failures are returned as errors.
func (c *Coordinator) monitorHost(ctx context.Context, host *process.Process, expected int) (int, error) {
	classifier := frame.NewHostClassifier(c.cfg.Game)
	played := 0
	var fatal error

	consume(ctx, host.Stdout(), c.crash.Done(), func(line string) bool {
		switch ev := classifier.Feed(line).(type) {
		case *frame.HostError:
			c.tripCrash(ctx, ev.Line)
			return false
		case *frame.HostMatchDone:
			played++
			if err := c.recordGame(ctx, ev); err != nil {
				fatal = err
				return false
			}
			applog.Info("Game finished",
				zap.Int("played", played),
				zap.Int("expected", expected))
		}
		return played < expected
	})

	if fatal != nil {
		return played, fatal
	}

	if played < expected && ctx.Err() == nil && !c.crash.Tripped() {
		c.tripCrash(ctx, fmt.Sprintf("match host exited after %d of %d games", played, expected))
	}
	return played, nil
}

func (c *Coordinator) recordGame(ctx context.Context, ev *frame.HostMatchDone) error {
	if ev.Err != nil {
		if c.cfg.StrictScores {
			c.tripCrash(ctx, ev.Err.Error())
			return nil
		}
		applog.Warn("Skipping unparsable game result",
			zap.String("scores", ev.Scores),
			zap.Error(ev.Err))
		return nil
	}

	first, second := ev.Results[0], ev.Results[1]
	found, err := c.cfg.Ledger.RecordGame(first, second)
	if err != nil {
		return fmt.Errorf("could not record game of %s and %s: %w", first.Name, second.Name, err)
	}

	if !found {
		msg := fmt.Sprintf("no ledger row for %s and %s", first.Name, second.Name)
		if c.cfg.StrictScores {
			c.tripCrash(ctx, msg)
			return nil
		}
		applog.Warn("Skipping game result", zap.String("reason", msg))
		return nil
	}

	applog.Debug("Game result recorded",
		zap.String("lobbyId", first.UUID),
		zap.Stringer("player1", first),
		zap.Stringer("player2", second))
	return nil
}
