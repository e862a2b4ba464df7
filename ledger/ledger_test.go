package ledger

import (
	"arena-runner/frame"
	"encoding/csv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

const lobbyA = "0b8f5c0e-3f7c-4d3a-9f8e-1a2b3c4d5e6f"

func newLedger(t *testing.T, pairs ...Pair) *Ledger {
	t.Helper()

	l, err := Create(filepath.Join(t.TempDir(), "results.csv"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = l.Close()
	})

	_, err = l.Seed(pairs)
	require.NoError(t, err)
	return l
}

func readRecords(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func result(name string, chips float64) frame.PlayerResult {
	return frame.PlayerResult{Name: name, UUID: lobbyA, Chips: chips}
}

func TestCreateWritesHeader(t *testing.T) {
	l := newLedger(t)

	records := readRecords(t, l.Path())
	require.Len(t, records, 1)
	assert.Equal(t, Header, records[0])
}

func TestSeedSkipsExistingPairs(t *testing.T) {
	l := newLedger(t, Pair{"a_player", "b_player"}, Pair{"a_player", "c_player"})

	added, err := l.Seed([]Pair{{"b_player", "a_player"}, {"b_player", "c_player"}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	rows, err := l.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, NotFinished, r.Winner)
		assert.Empty(t, r.LobbyID)
	}
	assert.Equal(t, Pair{"b_player", "c_player"}, rows[2].Pair())
}

func TestStampLobby(t *testing.T) {
	l := newLedger(t, Pair{"a_player", "b_player"})

	require.NoError(t, l.StampLobby(lobbyA, "a_player", "b_player"))
	before := readRecords(t, l.Path())

	// stamping the same id again leaves the file as it is
	require.NoError(t, l.StampLobby(lobbyA, "a_player", "b_player"))
	assert.Equal(t, before, readRecords(t, l.Path()))

	require.NoError(t, l.StampLobby("other", "a_player", "b_player"))
	rows, err := l.Rows()
	require.NoError(t, err)
	assert.Equal(t, "other", rows[0].LobbyID)
}

func TestStampLobbyRequiresSeededOrientation(t *testing.T) {
	l := newLedger(t, Pair{"a_player", "b_player"})

	err := l.StampLobby(lobbyA, "b_player", "a_player")
	assert.ErrorIs(t, err, ErrRowNotFound)

	err = l.StampLobby(lobbyA, "a_player", "z_player")
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestRecordGameEitherOrientation(t *testing.T) {
	l := newLedger(t, Pair{"a_player", "b_player"})

	found, err := l.RecordGame(result("b_player", 5), result("a_player", 3.5))
	require.NoError(t, err)
	assert.True(t, found)

	rows, err := l.Rows()
	require.NoError(t, err)
	assert.Equal(t, [4]string{"3.5", "5.0", "", ""}, rows[0].Chips)
	assert.False(t, rows[0].Complete())

	found, err = l.RecordGame(result("a_player", 10), result("b_player", 0))
	require.NoError(t, err)
	assert.True(t, found)

	rows, err = l.Rows()
	require.NoError(t, err)
	assert.Equal(t, [4]string{"3.5", "5.0", "10.0", "0.0"}, rows[0].Chips)
	assert.True(t, rows[0].Complete())
}

func TestRecordGameOverwritesSecondSlot(t *testing.T) {
	l := newLedger(t, Pair{"a_player", "b_player"})

	for _, chips := range []float64{1, 2, 3} {
		_, err := l.RecordGame(result("a_player", chips), result("b_player", chips))
		require.NoError(t, err)
	}

	rows, err := l.Rows()
	require.NoError(t, err)
	assert.Equal(t, [4]string{"1.0", "1.0", "3.0", "3.0"}, rows[0].Chips)
}

func TestRecordGameUnknownPlayers(t *testing.T) {
	l := newLedger(t, Pair{"a_player", "b_player"})

	found, err := l.RecordGame(result("a_player", 1), result("c_player", 2))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIncomplete(t *testing.T) {
	l := newLedger(t,
		Pair{"a_player", "b_player"},
		Pair{"a_player", "c_player"},
		Pair{"b_player", "c_player"},
	)

	for i := 0; i < 2; i++ {
		_, err := l.RecordGame(result("a_player", 1), result("b_player", 2))
		require.NoError(t, err)
	}
	_, err := l.RecordGame(result("c_player", 1), result("a_player", 2))
	require.NoError(t, err)

	pairs, err := l.Incomplete()
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"a_player", "c_player"}, {"b_player", "c_player"}}, pairs)
}

func TestOpenExistingLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	content := "Lobby ID,Player 1,Player 2,Player 1 Chips Game 1,Player 2 Chips Game 1,Player 1 Chips Game 2,Player 2 Chips Game 2,Winner\n" +
		lobbyA + ",a_player,b_player,1.0,2.0,,,DNF\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	pairs, err := l.Incomplete()
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"a_player", "b_player"}}, pairs)
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,score\nx,1\n"), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrMalformed)

	// the failed open released its lock
	l, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestLedgerIsExclusive(t *testing.T) {
	l := newLedger(t)

	_, err := Open(l.Path())
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l.Close())

	again, err := Open(l.Path())
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestFormatChips(t *testing.T) {
	assert.Equal(t, "3.0", FormatChips(3))
	assert.Equal(t, "2.5", FormatChips(2.5))
	assert.Equal(t, "0.0", FormatChips(0))
}
