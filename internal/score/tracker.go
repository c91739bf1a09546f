// Package score accumulates the player's score with a combo bonus for
// consecutive matches.
package score

import (
	"fmt"

	"github.com/openkcm/memory-match/internal/notify"
	"github.com/openkcm/memory-match/internal/serviceerr"
)

const (
	DefaultBaseMatchScore = 100
	DefaultComboStep      = 50
)

// Tracker holds the running score and combo. Every change, including values
// restored from a save, is published on ScoreChanged and ComboChanged.
type Tracker struct {
	ScoreChanged notify.Registry[int]
	ComboChanged notify.Registry[int]

	base  int
	step  int
	score int
	combo int
}

// NewTracker returns a tracker awarding base points per match plus step points
// for every match of the current streak beyond the first.
func NewTracker(base, step int) (*Tracker, error) {
	if base < 0 || step < 0 {
		return nil, fmt.Errorf("%w: negative scoring values base=%d step=%d", serviceerr.ErrInvalidConfig, base, step)
	}
	return &Tracker{base: base, step: step}, nil
}

// AddMatch extends the combo and adds base + (combo-1)*step to the score.
// It returns the points awarded.
func (t *Tracker) AddMatch() int {
	t.combo++
	delta := t.base + (t.combo-1)*t.step
	t.score += delta

	t.ScoreChanged.Emit(t.score)
	t.ComboChanged.Emit(t.combo)

	return delta
}

// ResetCombo ends the current streak.
func (t *Tracker) ResetCombo() {
	t.combo = 0
	t.ComboChanged.Emit(t.combo)
}

// Reset zeroes score and combo.
func (t *Tracker) Reset() {
	t.score = 0
	t.combo = 0
	t.ScoreChanged.Emit(t.score)
	t.ComboChanged.Emit(t.combo)
}

func (t *Tracker) SetScore(score int) {
	t.score = score
	t.ScoreChanged.Emit(t.score)
}

func (t *Tracker) SetCombo(combo int) {
	t.combo = combo
	t.ComboChanged.Emit(t.combo)
}

func (t *Tracker) Score() int { return t.score }
func (t *Tracker) Combo() int { return t.combo }
