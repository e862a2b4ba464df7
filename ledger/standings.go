package ledger

import (
	"arena-runner/applog"
	"go.uber.org/zap"
)

// PlayerStats aggregates one player's results over the whole ledger.
type PlayerStats struct {
	Name      string
	MatchWins int
	// GameWins counts won games by game number within a match.
	GameWins [2]int
	Chips    float64
}

type Standings struct {
	Matches int
	// Players is in order of first appearance in the ledger.
	Players []PlayerStats
	// Leader is empty when no match had a winner.
	Leader     string
	LeaderWins int
}

func (s *Standings) Tie() bool {
	return s.Leader == ""
}

// Finalize decides every match: the player who won more games wins the
// match, otherwise it is a tie. Missing chip counts count as zero. The
// winners are written back and the aggregated standings returned.
func (l *Ledger) Finalize() (*Standings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.read()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*PlayerStats)
	var order []string
	player := func(name string) *PlayerStats {
		if p, ok := stats[name]; ok {
			return p
		}
		p := &PlayerStats{Name: name}
		stats[name] = p
		order = append(order, name)
		return p
	}

	// first match win decides the order leaders are compared in
	var winOrder []string

	for i := range rows {
		p1 := player(rows[i].Player1)
		p2 := player(rows[i].Player2)

		wins1, wins2 := 0, 0
		for game := 0; game < 2; game++ {
			c1, err := parseChips(rows[i].Chips[2*game])
			if err != nil {
				return nil, err
			}
			c2, err := parseChips(rows[i].Chips[2*game+1])
			if err != nil {
				return nil, err
			}

			p1.Chips += c1
			p2.Chips += c2

			switch {
			case c1 > c2:
				wins1++
				p1.GameWins[game]++
			case c2 > c1:
				wins2++
				p2.GameWins[game]++
			}
		}

		var winner *PlayerStats
		switch {
		case wins1 > wins2:
			winner = p1
		case wins2 > wins1:
			winner = p2
		}

		if winner == nil {
			rows[i].Winner = Tie
			continue
		}

		rows[i].Winner = winner.Name
		if winner.MatchWins == 0 {
			winOrder = append(winOrder, winner.Name)
		}
		winner.MatchWins++
	}

	if err = l.write(rows); err != nil {
		return nil, err
	}

	s := &Standings{Matches: len(rows)}
	for _, name := range order {
		s.Players = append(s.Players, *stats[name])
	}
	for _, name := range winOrder {
		if stats[name].MatchWins > s.LeaderWins {
			s.Leader = name
			s.LeaderWins = stats[name].MatchWins
		}
	}

	applog.Info("Results ledger finalised",
		zap.String("path", l.path),
		zap.Int("matches", s.Matches),
		zap.String("leader", s.Leader),
		zap.Int("leaderWins", s.LeaderWins))
	return s, nil
}
