package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openkcm/memory-match/internal/config"
	"github.com/openkcm/memory-match/internal/record"
	"github.com/openkcm/memory-match/internal/schedule"
	"github.com/openkcm/memory-match/internal/session"
)

const (
	testMismatchDelay = time.Second
	testGameOverDelay = 500 * time.Millisecond
)

func testGameConfig() *config.Game {
	return &config.Game{
		Rows:           4,
		Columns:        4,
		SymbolCount:    8,
		BaseMatchScore: 100,
		ComboStep:      50,
		MismatchDelay:  testMismatchDelay,
		GameOverDelay:  testGameOverDelay,
		Seed:           42,
	}
}

func newManager(t *testing.T, repo session.Repository, mutate ...func(*config.Game)) (*session.Manager, *schedule.Manual) {
	t.Helper()

	cfg := testGameConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	clock := schedule.NewManual()
	m, err := session.NewManager(cfg, repo, clock)
	require.NoError(t, err)

	return m, clock
}

// listener captures every event published by a manager.
type listener struct {
	flipped    []int
	matches    []session.Pair
	mismatches []session.Pair
	flipBacks  []session.Pair
	scores     []int
	combos     []int
	gameOvers  []int
}

func listen(m *session.Manager) *listener {
	l := &listener{}
	ev := m.Events()
	ev.CardFlipped.Add(func(i int) { l.flipped = append(l.flipped, i) })
	ev.Match.Add(func(p session.Pair) { l.matches = append(l.matches, p) })
	ev.Mismatch.Add(func(p session.Pair) { l.mismatches = append(l.mismatches, p) })
	ev.FlipBack.Add(func(p session.Pair) { l.flipBacks = append(l.flipBacks, p) })
	ev.ScoreChanged.Add(func(s int) { l.scores = append(l.scores, s) })
	ev.ComboChanged.Add(func(c int) { l.combos = append(l.combos, c) })
	ev.GameOver.Add(func(s int) { l.gameOvers = append(l.gameOvers, s) })
	return l
}

func (l *listener) total() int {
	return len(l.flipped) + len(l.matches) + len(l.mismatches) + len(l.flipBacks) +
		len(l.scores) + len(l.combos) + len(l.gameOvers)
}

// matchingPair returns two face-down cards sharing an id.
func matchingPair(t *testing.T, m *session.Manager) (int, int) {
	t.Helper()

	seen := map[int]int{}
	for _, c := range m.Snapshot().Cards {
		if !c.Selectable() {
			continue
		}
		if first, ok := seen[c.ID]; ok {
			return first, c.Index
		}
		seen[c.ID] = c.Index
	}

	t.Fatal("no matching pair left")
	return 0, 0
}

// mismatchingPair returns two face-down cards with different ids.
func mismatchingPair(t *testing.T, m *session.Manager) (int, int) {
	t.Helper()

	cards := m.Snapshot().Cards
	for _, a := range cards {
		for _, b := range cards {
			if a.Selectable() && b.Selectable() && a.ID != b.ID {
				return a.Index, b.Index
			}
		}
	}

	t.Fatal("no mismatching pair left")
	return 0, 0
}

func playMatch(ctx context.Context, t *testing.T, m *session.Manager) {
	t.Helper()

	a, b := matchingPair(t, m)
	m.SelectCard(ctx, a)
	m.SelectCard(ctx, b)
}

func playAll(ctx context.Context, t *testing.T, m *session.Manager) {
	t.Helper()

	for m.State() != session.StateGameOver {
		playMatch(ctx, t, m)
	}
}

// freshRecord is a 2x2 save with nothing flipped.
func freshRecord() record.SaveRecord {
	return record.SaveRecord{
		CardIDs:    []int{0, 1, 0, 1},
		CardStates: make([]record.CardState, 4),
		Rows:       2,
		Columns:    2,
	}
}
