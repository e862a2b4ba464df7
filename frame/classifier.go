package frame

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	ErrorMarker       = "ERROR"
	TerminationMarker = "Game has terminated!"
	// resultBlockLines follow every termination marker: the scores header
	// and one line per player.
	resultBlockLines = 3
)

var (
	ErrUnparsableResult = errors.New("unparsable result line")

	initialisedPattern = regexp.MustCompile(`\d{2}:\d{2}\s+INFO: Player \((\d+)\) initialised\.`)
)

// ClassifyClientLine turns a line of player client output into an event.
func ClassifyClientLine(line string) Event {
	if strings.Contains(line, ErrorMarker) {
		return &ClientError{Line: line}
	}

	if m := initialisedPattern.FindStringSubmatch(line); m != nil {
		return &ClientReady{Line: line, Player: m[1]}
	}

	return &Unrecognized{Line: line}
}

// HostClassifier tracks match host output. It is stateful because a
// finished game spans the termination marker plus the result block.
type HostClassifier struct {
	game       *Game
	collecting bool
	marker     string
	block      []string
}

func NewHostClassifier(game *Game) *HostClassifier {
	return &HostClassifier{game: game}
}

// Feed classifies one line. It returns nil while a result block is still
// being collected.
func (c *HostClassifier) Feed(line string) Event {
	if c.collecting {
		c.block = append(c.block, line)
		if len(c.block) < resultBlockLines {
			return nil
		}
		return c.finish()
	}

	if strings.Contains(line, ErrorMarker) {
		return &HostError{Line: line}
	}

	if strings.Contains(line, TerminationMarker) {
		c.collecting = true
		c.marker = line
		c.block = c.block[:0]
		return nil
	}

	return &Unrecognized{Line: line}
}

// Pending reports whether a termination marker was seen without its full
// result block.
func (c *HostClassifier) Pending() bool {
	return c.collecting
}

func (c *HostClassifier) finish() Event {
	done := &HostMatchDone{
		Line:   c.marker,
		Scores: c.block[0],
	}

	for i, line := range c.block[1:] {
		result, err := c.parseResult(line)
		if err != nil {
			done.Err = err
			break
		}
		done.Results[i] = result
	}

	c.collecting = false
	c.marker = ""
	c.block = c.block[:0]
	return done
}

func (c *HostClassifier) parseResult(line string) (PlayerResult, error) {
	m := c.game.Result.FindStringSubmatch(line)
	if m == nil {
		return PlayerResult{}, fmt.Errorf("%w for %s: %q", ErrUnparsableResult, c.game.Name, line)
	}

	chips, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return PlayerResult{}, fmt.Errorf("%w: chips %q: %v", ErrUnparsableResult, m[3], err)
	}

	return PlayerResult{
		Name:  m[1],
		UUID:  m[2],
		Chips: chips,
	}, nil
}
