// Package record defines the persisted snapshot of a game session and the
// codecs that move it in and out of storage.
package record

import (
	"errors"
	"fmt"

	"github.com/openkcm/memory-match/internal/board"
	"github.com/openkcm/memory-match/internal/serviceerr"
)

// MaxSelection is the largest number of face-up, unmatched cards a consistent
// session can hold.
const MaxSelection = 2

// CardState carries the flags of one card. The index in SaveRecord.CardStates
// matches the card index on the board.
type CardState struct {
	IsFlipped bool `json:"isFlipped" yaml:"isFlipped" mapstructure:"isFlipped"`
	IsMatched bool `json:"isMatched" yaml:"isMatched" mapstructure:"isMatched"`
}

// SaveRecord is a flat, order-dependent snapshot of a session.
type SaveRecord struct {
	CardIDs      []int       `json:"cardIds" yaml:"cardIds" mapstructure:"cardIds"`
	CardStates   []CardState `json:"cardStates" yaml:"cardStates" mapstructure:"cardStates"`
	Score        int         `json:"score" yaml:"score" mapstructure:"score"`
	Combo        int         `json:"combo" yaml:"combo" mapstructure:"combo"`
	Rows         int         `json:"rows" yaml:"rows" mapstructure:"rows"`
	Columns      int         `json:"columns" yaml:"columns" mapstructure:"columns"`
	MatchedPairs int         `json:"matchedPairs" yaml:"matchedPairs" mapstructure:"matchedPairs"`
}

// Validate reports every reason the record cannot be turned into a consistent
// session. All errors match serviceerr.ErrCorruptSave.
func (r SaveRecord) Validate() error {
	var errs []error

	total, ok := board.CardCount(r.Rows, r.Columns)
	switch {
	case r.Rows <= 0 || r.Columns <= 0:
		errs = append(errs, fmt.Errorf("non-positive dimensions %dx%d", r.Rows, r.Columns))
	case !ok:
		errs = append(errs, fmt.Errorf("dimensions %dx%d exceed %d cards", r.Rows, r.Columns, board.MaxCards))
	case total%2 != 0:
		errs = append(errs, fmt.Errorf("odd card count for %dx%d", r.Rows, r.Columns))
	}

	if len(r.CardIDs) != total {
		errs = append(errs, fmt.Errorf("%d card ids for %d cards", len(r.CardIDs), total))
	}
	if len(r.CardStates) != total {
		errs = append(errs, fmt.Errorf("%d card states for %d cards", len(r.CardStates), total))
	}

	if r.Score < 0 {
		errs = append(errs, fmt.Errorf("negative score %d", r.Score))
	}
	if r.Combo < 0 {
		errs = append(errs, fmt.Errorf("negative combo %d", r.Combo))
	}

	counts := make(map[int]int, len(r.CardIDs))
	for i, id := range r.CardIDs {
		if id < 0 {
			errs = append(errs, fmt.Errorf("negative id %d at card %d", id, i))
		}
		counts[id]++
	}
	for id, n := range counts {
		if n%2 != 0 {
			errs = append(errs, fmt.Errorf("id %d appears %d times", id, n))
		}
	}

	selected, matched := 0, 0
	for _, s := range r.CardStates {
		switch {
		case s.IsMatched:
			matched++
		case s.IsFlipped:
			selected++
		}
	}
	if selected > MaxSelection {
		errs = append(errs, fmt.Errorf("%d cards flipped and unmatched", selected))
	}
	if r.MatchedPairs < 0 || r.MatchedPairs > total/2 {
		errs = append(errs, fmt.Errorf("matched pairs %d out of range", r.MatchedPairs))
	}
	if matched != 2*r.MatchedPairs {
		errs = append(errs, fmt.Errorf("%d matched cards for %d matched pairs", matched, r.MatchedPairs))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{serviceerr.ErrCorruptSave}, errs...)...)
	}

	return nil
}

// Clone returns a deep copy of the record.
func (r SaveRecord) Clone() SaveRecord {
	out := r
	if r.CardIDs != nil {
		out.CardIDs = append([]int(nil), r.CardIDs...)
	}
	if r.CardStates != nil {
		out.CardStates = append([]CardState(nil), r.CardStates...)
	}
	return out
}
