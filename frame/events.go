package frame

import "fmt"

// Event is a classified line of match host or player client output.
type Event interface {
	Raw() string
}

type Unrecognized struct {
	Line string
}

func (e *Unrecognized) Raw() string { return e.Line }

// ClientReady is emitted when a player client reports it is initialised.
type ClientReady struct {
	Line   string
	Player string
}

func (e *ClientReady) Raw() string { return e.Line }

type ClientError struct {
	Line string
}

func (e *ClientError) Raw() string { return e.Line }

type HostError struct {
	Line string
}

func (e *HostError) Raw() string { return e.Line }

// PlayerResult is one player's line of a finished game.
type PlayerResult struct {
	Name  string
	UUID  string
	Chips float64
}

func (r PlayerResult) String() string {
	return fmt.Sprintf("%s-%s: %v", r.Name, r.UUID, r.Chips)
}

// HostMatchDone is emitted after the termination marker and the three lines
// that follow it. Err is set when the result lines did not match the game's
// pattern; Results is only valid when Err is nil.
type HostMatchDone struct {
	Line    string
	Scores  string
	Results [2]PlayerResult
	Err     error
}

func (e *HostMatchDone) Raw() string { return e.Line }
