package tournament

import (
	"arena-runner/applog"
	"arena-runner/frame"
	"arena-runner/ledger"
	"arena-runner/process"
	"context"
	"encoding/json"
	"fmt"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"os"
	"path/filepath"
)

// StartLobby claims the start-up barrier and a concurrency slot, prepares
// the match configuration and ledger row, and registers the lobby with the
// match host. The barrier stays held; the lobby's two player clients give
// it back once they are initialised.
func (c *Coordinator) StartLobby(ctx context.Context, matchID string, pair ledger.Pair) error {
	ctx = applog.WithLobby(ctx, matchID)
	log := applog.FromContext(ctx)

	if err := c.barrier.Acquire(ctx); err != nil {
		return err
	}

	if err := c.slots.Acquire(ctx); err != nil {
		c.releaseBarrier()
		return err
	}

	if err := c.prepare(matchID, pair); err != nil {
		c.undoStart()
		return err
	}

	cmd := c.cfg.Toolchain.CreateCommand(c.cfg.Game, matchID)
	p, err := c.cfg.Spawner.Spawn(ctx, cmd)
	if err != nil {
		c.undoStart()
		return fmt.Errorf("could not create lobby %s: %w", matchID, err)
	}
	defer reap(p)

	log.Debug("Lobby registering",
		zap.String("player1", pair.A),
		zap.String("player2", pair.B))

	g := new(errgroup.Group)
	g.Go(func() error {
		consume(ctx, p.Stdout(), nil, func(line string) bool {
			if ev, ok := frame.ClassifyClientLine(line).(*frame.ClientError); ok {
				c.tripCrash(ctx, ev.Line)
			}
			return true
		})
		return nil
	})
	g.Go(func() error {
		consume(ctx, p.Stderr(), nil, func(string) bool { return true })
		return nil
	})
	_ = g.Wait()

	if err = ctx.Err(); err != nil {
		c.undoStart()
		return err
	}

	log.Info("Lobby started",
		zap.String("player1", pair.A),
		zap.String("player2", pair.B))
	return nil
}

func (c *Coordinator) prepare(matchID string, pair ledger.Pair) error {
	cfg := c.cfg.Game.MatchConfig(c.playerPath(pair.A), c.playerPath(pair.B), c.cfg.Overrides)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode match configuration: %w", err)
	}

	path := filepath.Join(c.cfg.WorkDir, c.cfg.Game.ConfigFileName())
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write match configuration: %w", err)
	}

	if err = c.cfg.Ledger.StampLobby(matchID, pair.A, pair.B); err != nil {
		return fmt.Errorf("could not stamp lobby %s: %w", matchID, err)
	}
	return nil
}

func (c *Coordinator) playerPath(name string) string {
	return filepath.ToSlash(filepath.Join(c.cfg.PlayersPath, name))
}

func (c *Coordinator) undoStart() {
	c.slots.Release()
	c.slots.Release()
	c.releaseBarrier()
}

func (c *Coordinator) releaseBarrier() {
	c.barrier.Release()
	c.barrier.Release()
}

// ConnectPlayers launches the two player clients of a started lobby and
// follows their output until both streams end or the run crashes. Every
// client gives back one barrier signal when it is initialised (or fails)
// and one slot signal when it is done.
func (c *Coordinator) ConnectPlayers(ctx context.Context, matchID string, pair ledger.Pair) error {
	ctx = applog.WithLobby(ctx, matchID)

	g := new(errgroup.Group)
	for _, player := range []string{pair.A, pair.B} {
		g.Go(func() error {
			c.runClient(applog.WithPlayer(ctx, player), matchID, player)
			return nil
		})
	}
	return g.Wait()
}

func (c *Coordinator) runClient(ctx context.Context, matchID, player string) {
	log := applog.FromContext(ctx)
	defer c.slots.Release()

	p, err := c.cfg.Spawner.Spawn(ctx, c.cfg.Toolchain.ClientCommand(c.cfg.Game, matchID, player))
	if err != nil {
		c.tripCrash(ctx, fmt.Sprintf("could not start client for %s: %v", player, err))
		c.barrier.Release()
		return
	}
	defer reap(p)
	p.DrainStderr()

	consume(ctx, p.Stdout(), c.crash.Done(), func(line string) bool {
		switch ev := frame.ClassifyClientLine(line).(type) {
		case *frame.ClientError:
			c.tripCrash(ctx, ev.Line)
			c.barrier.Release()
			return false
		case *frame.ClientReady:
			c.barrier.Release()
			log.Debug("Player initialised", zap.String("slot", ev.Player))
		}
		return true
	})
}

// consume feeds lines to handle until the stream ends, handle returns
// false, ctx is done or stop is closed. The stream is stopped on any early
// exit so the rest of the output is drained.
func consume(ctx context.Context, s *process.Stream, stop <-chan struct{}, handle func(string) bool) {
	for {
		select {
		case line, ok := <-s.Lines():
			if !ok {
				return
			}
			if !handle(line) {
				s.Stop()
				return
			}
		case <-stop:
			s.Stop()
			return
		case <-ctx.Done():
			s.Stop()
			return
		}
	}
}
