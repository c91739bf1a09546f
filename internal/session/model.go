package session

import (
	"github.com/google/uuid"

	"github.com/openkcm/memory-match/internal/board"
	"github.com/openkcm/memory-match/internal/notify"
)

// State is the turn-resolution state of a session.
type State string

const (
	StateIdle        State = "idle"
	StateOneSelected State = "one_selected"
	StateResolving   State = "resolving"
	StateGameOver    State = "game_over"
)

const (
	eventSelectFirst  = "select_first"
	eventSelectSecond = "select_second"
	eventMatch        = "match"
	eventComplete     = "complete"
	eventFlipBack     = "flip_back"
)

// Pair holds the indices of two cards judged together.
type Pair struct {
	First  int
	Second int
}

// Session is one game in progress.
type Session struct {
	ID           uuid.UUID
	Board        *board.Board
	TotalPairs   int
	MatchedPairs int
	Selection    []int // face-up, unmatched card indices, at most two
}

// View is a read-only copy of the session for presentation.
type View struct {
	SessionID    string
	State        State
	Rows         int
	Columns      int
	Cards        []board.Card
	Score        int
	Combo        int
	MatchedPairs int
	TotalPairs   int
}

// Events are the notifications published by a Manager. Listeners are added
// and removed explicitly through each registry.
type Events struct {
	CardFlipped  notify.Registry[int]
	Match        notify.Registry[Pair]
	Mismatch     notify.Registry[Pair]
	FlipBack     notify.Registry[Pair]
	GameOver     notify.Registry[int]
	ScoreChanged *notify.Registry[int]
	ComboChanged *notify.Registry[int]
}
