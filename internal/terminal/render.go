package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openkcm/memory-match/internal/session"
)

// Render prints the board of v followed by a status line. Face-down cards
// show as "..", revealed cards as their id and matched cards in brackets.
func Render(w io.Writer, v session.View) error {
	if v.Rows == 0 || v.Columns == 0 {
		_, err := fmt.Fprintln(w, "no game in progress")
		return err
	}

	width := cellWidth(v)

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", 4))
	for c := range v.Columns {
		fmt.Fprintf(&sb, " %*d ", width, c)
	}
	sb.WriteByte('\n')

	for r := range v.Rows {
		fmt.Fprintf(&sb, "%3d ", r)
		for c := range v.Columns {
			card := v.Cards[r*v.Columns+c]
			switch {
			case card.Matched:
				fmt.Fprintf(&sb, "[%*d]", width, card.ID)
			case card.Flipped:
				fmt.Fprintf(&sb, " %*d ", width, card.ID)
			default:
				fmt.Fprintf(&sb, " %*s ", width, strings.Repeat(".", width))
			}
		}
		sb.WriteByte('\n')
	}

	fmt.Fprintf(&sb, "score %d  combo %d  pairs %d/%d  %s\n",
		v.Score, v.Combo, v.MatchedPairs, v.TotalPairs, v.State)

	_, err := io.WriteString(w, sb.String())
	return err
}

// cellWidth fits the widest card id and column label, never below two.
func cellWidth(v session.View) int {
	width := max(2, len(strconv.Itoa(v.Columns-1)))
	for _, card := range v.Cards {
		width = max(width, len(strconv.Itoa(card.ID)))
	}
	return width
}
