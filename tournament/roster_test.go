package tournament

import (
	"arena-runner/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

func mkdirs(t *testing.T, base string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(base, name), 0o755))
	}
}

func TestDiscoverPlayers(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "alpha_player", "beta_player", "players", "notes")
	require.NoError(t, os.WriteFile(filepath.Join(base, "gamma_player"), nil, 0o644))

	players := filepath.Join(base, "players")
	for _, f := range []string{"alpha_player", "delta_player.bin", ".gitkeep"} {
		require.NoError(t, os.WriteFile(filepath.Join(players, f), nil, 0o755))
	}

	names, err := DiscoverPlayers(base, players)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha_player", "beta_player", "delta_player"}, names)
}

func TestDiscoverPlayersNeedsTwo(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "alpha_player")

	_, err := DiscoverPlayers(base, filepath.Join(base, "players"))
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestDiscoverPlayersWithoutPlayersDir(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "alpha_player", "beta_player")

	names, err := DiscoverPlayers(base, filepath.Join(base, "players"))
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestPairs(t *testing.T) {
	assert.Empty(t, Pairs([]string{"a"}))

	pairs := Pairs([]string{"a", "b", "c"})
	assert.Equal(t, []ledger.Pair{{A: "a", B: "b"}, {A: "a", B: "c"}, {A: "b", B: "c"}}, pairs)
	assert.Equal(t, 6, MatchesToPlay(pairs))

	for n := 2; n <= 8; n++ {
		players := make([]string, n)
		for i := range players {
			players[i] = string(rune('a' + i))
		}
		assert.Len(t, Pairs(players), n*(n-1)/2)
	}
}

func TestMissingPlayerDirs(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "alpha_player", "beta_player")

	missing := MissingPlayerDirs(base, []ledger.Pair{
		{A: "alpha_player", B: "gamma_player"},
		{A: "beta_player", B: "gamma_player"},
	})
	assert.Equal(t, []string{"gamma_player"}, missing)
}
