package ledger

import (
	"arena-runner/applog"
	"arena-runner/frame"
	"encoding/csv"
	"errors"
	"fmt"
	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var Header = []string{
	"Lobby ID",
	"Player 1",
	"Player 2",
	"Player 1 Chips Game 1",
	"Player 2 Chips Game 1",
	"Player 1 Chips Game 2",
	"Player 2 Chips Game 2",
	"Winner",
}

const (
	colLobbyID = iota
	colPlayer1
	colPlayer2
	colChipsStart
	colWinner = colChipsStart + chipColumns

	chipColumns = 2 * frame.GamesPerMatch
)

const (
	// NotFinished marks a seeded row whose match has not been finalised.
	NotFinished = "DNF"
	Tie         = "Tie"
)

var (
	ErrRowNotFound = errors.New("no ledger row for players")
	ErrLocked      = errors.New("ledger is locked by another coordinator")
	ErrMalformed   = errors.New("malformed ledger")
)

// Pair is an unordered match-up; A and B keep the orientation the row was
// seeded with.
type Pair struct {
	A string
	B string
}

func (p Pair) String() string {
	return p.A + " vs " + p.B
}

// Row is one match in the ledger. Chips holds, in order, player 1 and
// player 2 for game 1, then player 1 and player 2 for game 2. An empty
// string means the game has not reported yet.
type Row struct {
	LobbyID string
	Player1 string
	Player2 string
	Chips   [chipColumns]string
	Winner  string
}

func (r Row) Pair() Pair {
	return Pair{A: r.Player1, B: r.Player2}
}

func (r Row) Complete() bool {
	for _, c := range r.Chips {
		if c == "" {
			return false
		}
	}
	return true
}

func (r Row) has(a, b string) bool {
	return (r.Player1 == a && r.Player2 == b) || (r.Player1 == b && r.Player2 == a)
}

func (r Row) record() []string {
	rec := make([]string, len(Header))
	rec[colLobbyID] = r.LobbyID
	rec[colPlayer1] = r.Player1
	rec[colPlayer2] = r.Player2
	copy(rec[colChipsStart:colWinner], r.Chips[:])
	rec[colWinner] = r.Winner
	return rec
}

func parseRow(rec []string) Row {
	padded := make([]string, len(Header))
	copy(padded, rec)

	r := Row{
		LobbyID: padded[colLobbyID],
		Player1: padded[colPlayer1],
		Player2: padded[colPlayer2],
		Winner:  padded[colWinner],
	}
	copy(r.Chips[:], padded[colChipsStart:colWinner])
	return r
}

// Ledger is the CSV results file of one tournament. Every method reads the
// file, applies its change and rewrites it in full, so the file on disk is
// always the single source of truth for resuming a run.
type Ledger struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// Create truncates path and writes the header.
func Create(path string) (*Ledger, error) {
	l, err := lock(path)
	if err != nil {
		return nil, err
	}

	if err = l.write(nil); err != nil {
		_ = l.Close()
		return nil, err
	}

	applog.Debug("Results ledger created", zap.String("path", path))
	return l, nil
}

// Open takes over an existing ledger, e.g. to resume an interrupted run.
func Open(path string) (*Ledger, error) {
	l, err := lock(path)
	if err != nil {
		return nil, err
	}

	if _, err = l.read(); err != nil {
		_ = l.Close()
		return nil, err
	}

	applog.Debug("Results ledger opened", zap.String("path", path))
	return l, nil
}

// The lock file sits next to the ledger since rewrites replace the ledger
// file itself.
func lock(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create ledger directory: %w", err)
	}

	fl := flock.New(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("could not lock ledger %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	return &Ledger{path: path, lock: fl}, nil
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) Close() error {
	return l.lock.Unlock()
}

func (l *Ledger) Rows() ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Seed appends a not-finished row for every pair that has no row yet in
// either orientation and returns how many were added.
func (l *Ledger) Seed(pairs []Pair) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.read()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, p := range pairs {
		if findRow(rows, p.A, p.B) >= 0 {
			continue
		}
		rows = append(rows, Row{Player1: p.A, Player2: p.B, Winner: NotFinished})
		added++
	}

	if added == 0 {
		return 0, nil
	}
	return added, l.write(rows)
}

// StampLobby writes the lobby id into the row seeded as (a, b). The
// orientation must match exactly.
func (l *Ledger) StampLobby(lobbyID, a, b string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.read()
	if err != nil {
		return err
	}

	for i := range rows {
		if rows[i].Player1 != a || rows[i].Player2 != b {
			continue
		}
		if rows[i].LobbyID == lobbyID {
			return nil
		}
		rows[i].LobbyID = lobbyID
		return l.write(rows)
	}

	return fmt.Errorf("%w: %s, %s", ErrRowNotFound, a, b)
}

// RecordGame stores the chips of one finished game. The row is found in
// either orientation and each player's chips go into their first empty game
// slot; when both slots are taken the second one is overwritten. It reports
// false when no row exists for the two players.
func (l *Ledger) RecordGame(first, second frame.PlayerResult) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.read()
	if err != nil {
		return false, err
	}

	i := findRow(rows, first.Name, second.Name)
	if i < 0 {
		return false, nil
	}

	p1, p2 := first, second
	if rows[i].Player1 != first.Name {
		p1, p2 = second, first
	}

	rows[i].setChips(0, p1.Chips)
	rows[i].setChips(1, p2.Chips)

	if err = l.write(rows); err != nil {
		return true, err
	}

	applog.Debug("Results ledger updated",
		zap.String("player1", rows[i].Player1),
		zap.String("player2", rows[i].Player2),
		zap.Strings("chips", rows[i].Chips[:]))
	return true, nil
}

func (r *Row) setChips(player int, chips float64) {
	slot := player
	if r.Chips[slot] != "" {
		slot += 2
	}
	r.Chips[slot] = FormatChips(chips)
}

// Incomplete returns the pairs whose rows miss at least one chip count.
func (l *Ledger) Incomplete() ([]Pair, error) {
	rows, err := l.Rows()
	if err != nil {
		return nil, err
	}

	var pairs []Pair
	for _, r := range rows {
		if !r.Complete() {
			pairs = append(pairs, r.Pair())
		}
	}
	return pairs, nil
}

// FormatChips renders a chip count the way earlier ledgers stored it:
// always with a fractional part.
func FormatChips(chips float64) string {
	s := strconv.FormatFloat(chips, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func parseChips(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: chip count %q", ErrMalformed, s)
	}
	return v, nil
}

func findRow(rows []Row, a, b string) int {
	for i := range rows {
		if rows[i].has(a, b) {
			return i
		}
	}
	return -1
}

func (l *Ledger) read() ([]Row, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("could not open ledger: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformed, l.path)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read ledger header: %w", err)
	}
	if len(header) < colWinner || header[colPlayer1] != Header[colPlayer1] {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrMalformed, header)
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read ledger row: %w", err)
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		rows = append(rows, parseRow(rec))
	}
	return rows, nil
}

func (l *Ledger) write(rows []Row) error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create ledger temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	w := csv.NewWriter(tmp)
	records := make([][]string, 0, len(rows)+1)
	records = append(records, Header)
	for _, r := range rows {
		records = append(records, r.record())
	}

	if err = w.WriteAll(records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("could not write ledger: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("could not sync ledger: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("could not close ledger temp file: %w", err)
	}

	if err = os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("could not replace ledger: %w", err)
	}
	return nil
}
