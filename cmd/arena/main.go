package main

import (
	"arena-runner/applog"
	"arena-runner/frame"
	"arena-runner/launcher"
	"arena-runner/ledger"
	"arena-runner/process"
	"arena-runner/tournament"
	"arena-runner/util"
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	info := launcher.NewInfoFromFlags()
	err := applog.Initialize(info.RunName(), info.LogLevel, info.LogPath)
	if err != nil {
		fmt.Printf("Failed to initialize app logger: %v\n", err)
	}

	defer applog.Shutdown()
	defer util.WrapAppContextCancelExitMessage(ctx, "Arena")

	if err = info.Validate(); err != nil {
		applog.Error("Failed to validate command line arguments", zap.Error(err))
		return 2
	}

	applog.LogStartupInfo(info)

	settings, err := launcher.LoadSettings(info.BaseDir, info.ConfigPath)
	if err != nil {
		applog.Error("Failed to load settings", zap.Error(err))
		return 2
	}

	game, err := frame.LookupGame(info.GameName)
	if err != nil {
		applog.Error("Failed to select game", zap.Error(err))
		return 2
	}

	report, err := tournament.Preflight{
		Java:     settings.Frame.Java,
		Hostname: settings.Frame.Hostname,
		Port:     settings.Frame.Port,
		Strict:   settings.Env.Strict,
	}.Check(ctx)
	if err != nil {
		applog.Error("Environment is not ready", zap.Error(err))
		return 1
	}

	results, pairs, err := openLedger(info, settings)
	if err != nil {
		applog.Error("Failed to prepare results ledger", zap.Error(err))
		return 1
	}

	defer func(results *ledger.Ledger) {
		_ = results.Close()
	}(results)

	overrides, err := settings.TemplateOverrides()
	if err != nil {
		applog.Error("Failed to load match configuration overrides", zap.Error(err))
		return 2
	}

	coordinator, err := tournament.New(tournament.Config{
		Game:         game,
		Toolchain:    settings.Toolchain(info.BaseDir, report.JavaVersion),
		Ledger:       results,
		Spawner:      tournament.ProcessSpawner{Options: process.Options{LogDir: settings.Paths.ProcessLogs}},
		Concurrency:  settings.Tournament.Concurrency,
		WarmUp:       settings.Tournament.WarmUp,
		StrictScores: settings.Tournament.StrictScores,
		Overrides:    overrides,
		WorkDir:      info.BaseDir,
		PlayersPath:  relativeTo(info.BaseDir, settings.Paths.Players),
		FrameLogDir:  settings.Frame.LogDir,
	})
	if err != nil {
		applog.Error("Failed to set up tournament", zap.Error(err))
		return 2
	}

	standings, err := coordinator.Run(ctx, pairs)
	if crash, ok := tournament.IsCrash(err); ok {
		fmt.Println(tournament.RenderCrashReport(crash))
		applog.Error("Tournament crashed",
			zap.String("message", crash.Message),
			zap.String("frameLogs", crash.LogDir),
			zap.String("results", results.Path()))
		return 1
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			applog.Warn("Tournament interrupted, resume it with -pickup", zap.String("results", results.Path()))
		} else {
			applog.Error("Tournament failed", zap.Error(err))
		}
		return 1
	}

	fmt.Println(tournament.RenderStandings(standings))
	return 0
}

// openLedger starts a fresh ledger for every discovered pair, or in pickup
// mode reopens the existing one and returns only its incomplete pairs.
func openLedger(info *launcher.Info, settings launcher.Settings) (*ledger.Ledger, []ledger.Pair, error) {
	if info.Pickup {
		results, err := ledger.Open(settings.Paths.Results)
		if err != nil {
			return nil, nil, err
		}

		pairs, err := results.Incomplete()
		if err != nil {
			_ = results.Close()
			return nil, nil, err
		}
		if len(pairs) == 0 {
			_ = results.Close()
			return nil, nil, fmt.Errorf("nothing to pick up from in %s", settings.Paths.Results)
		}

		for _, name := range tournament.MissingPlayerDirs(info.BaseDir, pairs) {
			applog.Error("Directory for player not found", zap.String("player", name))
		}

		applog.Info("Picked up remaining pairs",
			zap.Int("pairs", len(pairs)),
			zap.Int("games", tournament.MatchesToPlay(pairs)))
		return results, pairs, nil
	}

	players, err := tournament.DiscoverPlayers(info.BaseDir, settings.Paths.Players)
	if err != nil {
		return nil, nil, err
	}
	applog.Info("Players found and loaded", zap.Strings("players", players))

	results, err := ledger.Create(settings.Paths.Results)
	if err != nil {
		return nil, nil, err
	}

	pairs := tournament.Pairs(players)
	if _, err = results.Seed(pairs); err != nil {
		_ = results.Close()
		return nil, nil, err
	}

	applog.Info("Round robin pairs written",
		zap.Int("pairs", len(pairs)),
		zap.String("results", results.Path()))
	return results, pairs, nil
}

func relativeTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}
