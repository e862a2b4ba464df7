package tournament

import (
	"arena-runner/applog"
	"arena-runner/frame"
	"arena-runner/ledger"
	"arena-runner/twophase"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"time"
)

// Config is everything one run needs. It is fixed for the lifetime of a
// Coordinator.
type Config struct {
	Game      *frame.Game
	Toolchain frame.Toolchain
	Ledger    *ledger.Ledger
	Spawner   Spawner
	// Concurrency bounds the lobbies that may run at the same time.
	Concurrency int
	WarmUp      time.Duration
	// StrictScores crashes the run on results that cannot be recorded.
	StrictScores bool
	// Overrides replace keys of the game's match configuration.
	Overrides map[string]any
	// WorkDir receives the match configuration; the match host reads it
	// from there.
	WorkDir string
	// PlayersPath prefixes player names in the match configuration and is
	// relative to WorkDir.
	PlayersPath string
	// FrameLogDir is shown in crash reports.
	FrameLogDir string
	// NewMatchID defaults to random uuids.
	NewMatchID func() string
}

// Coordinator runs one tournament: it owns the start-up barrier, the
// concurrency slots and the crash flag shared by every lobby.
type Coordinator struct {
	cfg     Config
	barrier *twophase.Lock
	slots   *twophase.Gate
	crash   *Crash
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.Game == nil {
		return nil, fmt.Errorf("tournament needs a game")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("tournament needs a results ledger")
	}
	if cfg.Spawner == nil {
		cfg.Spawner = ProcessSpawner{}
	}
	if cfg.PlayersPath == "" {
		cfg.PlayersPath = "players"
	}
	if cfg.NewMatchID == nil {
		cfg.NewMatchID = uuid.NewString
	}

	slots, err := twophase.NewGate(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("invalid concurrency: %w", err)
	}

	return &Coordinator{
		cfg:     cfg,
		barrier: twophase.NewLock(),
		slots:   slots,
		crash:   NewCrash(),
	}, nil
}

func (c *Coordinator) Crash() *Crash {
	return c.crash
}

func (c *Coordinator) tripCrash(ctx context.Context, message string) {
	if c.crash.Trip(message) {
		applog.FromContext(ctx).Error("Crash detected", zap.String("message", message))
	}
}

// Run plays every pair once and returns the final standings. A run stopped
// by the crash flag returns a *CrashError and leaves the ledger for a later
// pickup. Every child process is stopped before Run returns.
func (c *Coordinator) Run(ctx context.Context, pairs []ledger.Pair) (*ledger.Standings, error) {
	if len(pairs) == 0 {
		return nil, ErrNoMatches
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-c.crash.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	host, err := c.cfg.Spawner.Spawn(runCtx, c.cfg.Toolchain.ServerCommand())
	if err != nil {
		return nil, fmt.Errorf("could not start match host: %w", err)
	}
	defer reap(host)
	host.DrainStderr()

	expected := MatchesToPlay(pairs)
	applog.Info("Tournament started",
		zap.String("game", c.cfg.Game.Name),
		zap.Int("pairs", len(pairs)),
		zap.Int("games", expected),
		zap.Int("concurrency", c.slots.Capacity()))

	type hostResult struct {
		played int
		err    error
	}
	hostDone := make(chan hostResult, 1)
	go func() {
		played, err := c.monitorHost(runCtx, host, expected)
		hostDone <- hostResult{played: played, err: err}
	}()

	select {
	case <-time.After(c.cfg.WarmUp):
	case <-runCtx.Done():
	}

	lobbies := new(errgroup.Group)
	var scheduleErr error
	for _, pair := range pairs {
		if runCtx.Err() != nil {
			break
		}

		matchID := c.cfg.NewMatchID()
		if err = c.StartLobby(runCtx, matchID, pair); err != nil {
			if runCtx.Err() == nil {
				scheduleErr = err
				cancel()
			}
			break
		}

		lobbies.Go(func() error {
			return c.ConnectPlayers(runCtx, matchID, pair)
		})
	}

	res := <-hostDone
	cancel()
	_ = lobbies.Wait()

	applog.Info("Match host finished",
		zap.Int("played", res.played),
		zap.Int("expected", expected))

	switch {
	case scheduleErr != nil:
		return nil, scheduleErr
	case res.err != nil:
		return nil, res.err
	case c.crash.Tripped():
		return nil, &CrashError{Message: c.crash.Message(), LogDir: c.cfg.FrameLogDir}
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	standings, err := c.cfg.Ledger.Finalize()
	if err != nil {
		return nil, fmt.Errorf("could not finalise results: %w", err)
	}
	return standings, nil
}

// IsCrash unwraps a *CrashError from err.
func IsCrash(err error) (*CrashError, bool) {
	var crash *CrashError
	ok := errors.As(err, &crash)
	return crash, ok
}
