// Package board holds the card grid of a memory game and the generator that
// produces shuffled, paired card identifiers for it.
package board

import (
	"fmt"

	"github.com/openkcm/memory-match/internal/serviceerr"
)

// Card is a single tile on the board. Its identity is its Index.
type Card struct {
	ID      int  // Symbol identifier; two cards with the same ID match
	Index   int  // Position in the row-major card sequence
	Flipped bool // Face up
	Matched bool // Part of a found pair, never selectable again
}

// Position returns the row and column of the card on a board with the given
// number of columns.
func (c Card) Position(columns int) (row, col int) {
	return c.Index / columns, c.Index % columns
}

// Selectable reports whether the card may be picked by the player.
func (c Card) Selectable() bool {
	return !c.Flipped && !c.Matched
}

// Board is a rows x columns grid of cards stored in row-major order.
type Board struct {
	Rows    int
	Columns int
	Cards   []Card
}

// New lays the ids out on a rows x columns board, all cards face down.
func New(rows, columns int, ids []int) (*Board, error) {
	if err := ValidateDimensions(rows, columns); err != nil {
		return nil, err
	}
	if len(ids) != rows*columns {
		return nil, fmt.Errorf("%w: %d card ids for a %dx%d board", serviceerr.ErrInvalidConfig, len(ids), rows, columns)
	}

	cards := make([]Card, len(ids))
	for i, id := range ids {
		cards[i] = Card{ID: id, Index: i}
	}

	return &Board{Rows: rows, Columns: columns, Cards: cards}, nil
}

// Len returns the number of cards.
func (b *Board) Len() int {
	return len(b.Cards)
}

// Pairs returns the number of pairs the board holds.
func (b *Board) Pairs() int {
	return len(b.Cards) / 2
}

// Card returns the card at index i, or false if i is out of range.
func (b *Board) Card(i int) (*Card, bool) {
	if i < 0 || i >= len(b.Cards) {
		return nil, false
	}
	return &b.Cards[i], true
}

// Index converts a row and column to a card index, or false if the position is
// off the board.
func (b *Board) Index(row, col int) (int, bool) {
	if row < 0 || row >= b.Rows || col < 0 || col >= b.Columns {
		return 0, false
	}
	return row*b.Columns + col, true
}

// IDs returns the card identifiers in board order.
func (b *Board) IDs() []int {
	ids := make([]int, len(b.Cards))
	for i, c := range b.Cards {
		ids[i] = c.ID
	}
	return ids
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	cards := make([]Card, len(b.Cards))
	copy(cards, b.Cards)
	return &Board{Rows: b.Rows, Columns: b.Columns, Cards: cards}
}

// ValidateDimensions checks that the grid is non-empty and holds an even
// number of cards.
func ValidateDimensions(rows, columns int) error {
	if rows <= 0 || columns <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%d", serviceerr.ErrInvalidConfig, rows, columns)
	}
	total, ok := CardCount(rows, columns)
	if !ok {
		return fmt.Errorf("%w: %dx%d board exceeds %d cards", serviceerr.ErrInvalidConfig, rows, columns, MaxCards)
	}
	if total%2 != 0 {
		return fmt.Errorf("%w: %dx%d board has an odd number of cards", serviceerr.ErrInvalidConfig, rows, columns)
	}
	return nil
}

// MaxCards caps the number of cards on a board.
const MaxCards = 1 << 16

// CardCount returns rows*columns for positive dimensions. It reports false
// when the product would exceed MaxCards.
func CardCount(rows, columns int) (int, bool) {
	if rows <= 0 || columns <= 0 || rows > MaxCards/columns {
		return 0, false
	}
	return rows * columns, true
}
