package tournament

import (
	"arena-runner/frame"
	"arena-runner/ledger"
	"arena-runner/process"
	"context"
	"errors"
	"fmt"
	"github.com/stretchr/testify/require"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// frameSim plays the match host and the player clients. Every lobby plays
// two games as soon as both clients are initialised; the first listed
// player scores chips[name] in both games.
type frameSim struct {
	t     *testing.T
	mu    sync.Mutex
	host  *io.PipeWriter
	chips map[string]float64
	ready map[string][]string
	// clients holds the output pipes of every lobby's clients.
	clients map[string][]*io.PipeWriter
	pipes   []*io.PipeWriter
	// clientOutput, when set, replaces the initialised line of a client.
	clientOutput func(player, lobby string) (lines []string, keepOpen bool)
	failSpawn    func(cmd process.Command) bool
	// hostGames closes the host output after that many games when >= 0.
	hostGames int
	played    int
	spawned   []process.Command
	// slots reports admission slots in use; peakSlots is its maximum seen
	// at any lobby or client launch.
	slots     func() int
	peakSlots int
}

func newFrameSim(t *testing.T) *frameSim {
	s := &frameSim{
		t:         t,
		chips:     make(map[string]float64),
		ready:     make(map[string][]string),
		clients:   make(map[string][]*io.PipeWriter),
		hostGames: -1,
	}
	t.Cleanup(s.closeAll)
	return s
}

func (s *frameSim) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.pipes {
		_ = w.Close()
	}
}

func (s *frameSim) pipe() (*io.PipeReader, *io.PipeWriter) {
	r, w := io.Pipe()
	s.pipes = append(s.pipes, w)
	return r, w
}

func argValue(args []string, name string) string {
	for i := range args[:len(args)-1] {
		if args[i] == name {
			return args[i+1]
		}
	}
	return ""
}

func commandMode(cmd process.Command) string {
	for i, a := range cmd.Args {
		if a == "-jar" && i+2 < len(cmd.Args) {
			return cmd.Args[i+2]
		}
	}
	return ""
}

func (s *frameSim) Spawn(ctx context.Context, cmd process.Command) (*process.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spawned = append(s.spawned, cmd)
	if s.slots != nil {
		s.peakSlots = max(s.peakSlots, s.slots())
	}
	if s.failSpawn != nil && s.failSpawn(cmd) {
		return nil, errors.New("executable file not found")
	}

	switch commandMode(cmd) {
	case "server":
		r, w := s.pipe()
		s.host = w
		return process.Attach(ctx, cmd.Name, r, nil, nil, process.Options{}), nil

	case "create":
		out := fmt.Sprintf("INFO: lobby %s created\n", argValue(cmd.Args, "-lobby"))
		return process.Attach(ctx, cmd.Name, strings.NewReader(out), strings.NewReader(""), nil, process.Options{}), nil

	case "client":
		lobby := argValue(cmd.Args, "-lobby")
		player := strings.TrimSuffix(argValue(cmd.Args, "-username"), "-"+lobby)
		r, w := s.pipe()
		s.clients[lobby] = append(s.clients[lobby], w)
		go s.runClient(w, player, lobby)
		return process.Attach(ctx, cmd.Name, r, nil, nil, process.Options{}), nil
	}

	return nil, fmt.Errorf("unexpected command %v", cmd.Args)
}

func (s *frameSim) runClient(w *io.PipeWriter, player, lobby string) {
	if s.clientOutput != nil {
		lines, keepOpen := s.clientOutput(player, lobby)
		for _, line := range lines {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return
			}
		}
		if !keepOpen {
			_ = w.Close()
		}
		return
	}

	if _, err := io.WriteString(w, "12:00  INFO: Player (1) initialised.\n"); err != nil {
		return
	}

	s.mu.Lock()
	s.ready[lobby] = append(s.ready[lobby], player)
	players := s.ready[lobby]
	host := s.host
	s.mu.Unlock()

	if len(players) < 2 {
		return
	}

	for game := 0; game < frame.GamesPerMatch; game++ {
		if !s.playGame(host, lobby, players[0], players[1]) {
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients[lobby] {
		_ = c.Close()
	}
}

func (s *frameSim) playGame(host *io.PipeWriter, lobby, a, b string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hostGames >= 0 && s.played >= s.hostGames {
		_ = host.Close()
		return false
	}
	s.played++

	block := fmt.Sprintf("INFO: Game has terminated!\nScores:\nPlayer 1 (%s-%s): %s\nPlayer 2 (%s-%s): %s\n",
		a, lobby, ledger.FormatChips(s.chips[a]),
		b, lobby, ledger.FormatChips(s.chips[b]))
	_, err := io.WriteString(host, block)
	return err == nil
}

type harness struct {
	sim    *frameSim
	ledger *ledger.Ledger
	coord  *Coordinator
	dir    string
}

func newHarness(t *testing.T, concurrency int, pairs ...ledger.Pair) *harness {
	t.Helper()

	dir := t.TempDir()
	l, err := ledger.Create(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = l.Close()
	})
	_, err = l.Seed(pairs)
	require.NoError(t, err)

	game, err := frame.LookupGame("Nim")
	require.NoError(t, err)

	sim := newFrameSim(t)
	coord, err := New(Config{
		Game:        game,
		Toolchain:   frame.Toolchain{JavaVersion: frame.DefaultJavaVersion, WorkDir: dir},
		Ledger:      l,
		Spawner:     sim,
		Concurrency: concurrency,
		WorkDir:     dir,
		FrameLogDir: "IngeniousFrame/Logs",
	})
	require.NoError(t, err)
	sim.slots = coord.slots.InUse

	return &harness{sim: sim, ledger: l, coord: coord, dir: dir}
}

type runResult struct {
	standings *ledger.Standings
	err       error
}

// run fails the test instead of hanging when Run deadlocks.
func (h *harness) run(t *testing.T, pairs []ledger.Pair) runResult {
	t.Helper()

	done := make(chan runResult, 1)
	go func() {
		s, err := h.coord.Run(context.Background(), pairs)
		done <- runResult{standings: s, err: err}
	}()

	select {
	case res := <-done:
		return res
	case <-time.After(10 * time.Second):
		t.Fatal("tournament run did not finish")
		return runResult{}
	}
}
