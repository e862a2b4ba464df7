package tournament

import (
	"arena-runner/applog"
	"arena-runner/frame"
	"arena-runner/ledger"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"os"
	"path/filepath"
	"strings"
)

const playerDirSuffix = "_player"

var (
	ErrNotEnoughPlayers = errors.New("need at least two players")
	ErrNoMatches        = errors.New("no matches to play")
)

// DiscoverPlayers lists the *_player directories of baseDir, then adds the
// names of binaries already placed in playersDir that no directory
// provides. Hidden files are ignored; a missing playersDir is fine.
func DiscoverPlayers(baseDir, playersDir string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("could not list base directory: %w", err)
	}

	var names []string
	seen := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), playerDirSuffix) {
			continue
		}
		names = append(names, e.Name())
		seen[e.Name()] = true
	}

	applog.Debug("Found player directories",
		zap.Int("count", len(names)),
		zap.Strings("players", names))

	if len(names) < 2 {
		return nil, fmt.Errorf("%w, found %d in %s", ErrNotEnoughPlayers, len(names), baseDir)
	}

	binaries, err := os.ReadDir(playersDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not list players directory: %w", err)
	}

	for _, e := range binaries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	return names, nil
}

// Pairs returns every unordered pair once, keeping discovery order.
func Pairs(players []string) []ledger.Pair {
	var pairs []ledger.Pair
	for i := range players {
		for j := i + 1; j < len(players); j++ {
			pairs = append(pairs, ledger.Pair{A: players[i], B: players[j]})
		}
	}
	return pairs
}

func MatchesToPlay(pairs []ledger.Pair) int {
	return frame.GamesPerMatch * len(pairs)
}

// MissingPlayerDirs returns the players of pairs that have no directory
// under baseDir, each once.
func MissingPlayerDirs(baseDir string, pairs []ledger.Pair) []string {
	var missing []string
	checked := make(map[string]bool)
	for _, p := range pairs {
		for _, name := range []string{p.A, p.B} {
			if checked[name] {
				continue
			}
			checked[name] = true

			stat, err := os.Stat(filepath.Join(baseDir, name))
			if err != nil || !stat.IsDir() {
				missing = append(missing, name)
			}
		}
	}
	return missing
}
