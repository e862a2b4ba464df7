package frame

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

var ErrUnknownGame = errors.New("unknown game")

// Game describes one variant the match host can referee.
type Game struct {
	Name    string
	Engine  string
	Referee string
	// Result matches one player result line after a termination marker and
	// captures name, lobby uuid and chip count.
	Result *regexp.Regexp
	// Template is the match configuration written before every lobby; the
	// player paths are filled in per match.
	Template map[string]any
}

// GamesPerMatch is how many games the host plays for one lobby.
const GamesPerMatch = 2

var games = map[string]*Game{
	"Othello": {
		Name:    "Othello",
		Engine:  "za.ac.sun.cs.ingenious.games.othello.engines.OthelloMPIEngine",
		Referee: "OthelloReferee",
		Result:  regexp.MustCompile(`Player with chips \d+ \((\w+)-(.+)\): (\d+\.\d+)`),
		Template: map[string]any{
			"boardSize":   8,
			"turnLength":  5000,
			"numPlayers":  2,
			"numMatches":  GamesPerMatch,
			"threads":     4,
			"player1Path": "",
			"player2Path": "",
		},
	},
	"Gomuku": {
		Name:    "Gomuku",
		Engine:  "za.ac.sun.cs.ingenious.games.mnk.engines.gomuku.GomukuMPIEngine",
		Referee: "GomukuReferee",
		Result:  regexp.MustCompile(`Player \d+ \((\w+)-(.+)\): (\d+\.\d+)`),
		Template: map[string]any{
			"mnk_height":         15,
			"mnk_width":          15,
			"mnk_k":              5,
			"turnLength":         4000,
			"perfectInformation": true,
			"numPlayers":         2,
			"numMatches":         GamesPerMatch,
			"threads":            4,
			"player1Path":        "",
			"player2Path":        "",
		},
	},
	"Nim": {
		Name:    "Nim",
		Engine:  "za.ac.sun.cs.ingenious.games.nim.engines.NimMPIEngine",
		Referee: "NimReferee",
		Result:  regexp.MustCompile(`Player \d+ \((\w+)-(.+)\): (\d+\.\d+)`),
		Template: map[string]any{
			"boardSize":   5,
			"turnLength":  3000,
			"numPlayers":  2,
			"numMatches":  GamesPerMatch,
			"threads":     4,
			"player1Path": "",
			"player2Path": "",
		},
	},
}

func LookupGame(name string) (*Game, error) {
	g, ok := games[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownGame, name, GameNames())
	}
	return g, nil
}

func GameNames() []string {
	names := make([]string, 0, len(games))
	for name := range games {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MatchConfig returns a copy of the template with both player paths set.
// overrides, if any, replace template keys first.
func (g *Game) MatchConfig(player1Path, player2Path string, overrides map[string]any) map[string]any {
	cfg := make(map[string]any, len(g.Template)+len(overrides))
	for k, v := range g.Template {
		cfg[k] = v
	}
	for k, v := range overrides {
		cfg[k] = v
	}
	cfg["player1Path"] = player1Path
	cfg["player2Path"] = player2Path
	return cfg
}

func (g *Game) ConfigFileName() string {
	return g.Name + ".json"
}
