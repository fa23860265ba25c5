package state

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ScoreEntry is one player's single submission.
type ScoreEntry struct {
	Identity    uuid.UUID
	Score       int64
	SubmittedAt time.Time
}

// ScoreBoard holds one write-once score per joined player. The submission
// time is recorded for tie-breaking. Not thread-safe — the owning instance
// serializes access.
type ScoreBoard struct {
	entries []ScoreEntry
	index   map[uuid.UUID]int
}

func NewScoreBoard() *ScoreBoard {
	return &ScoreBoard{
		index: make(map[uuid.UUID]int),
	}
}

// Record inserts a score. At most one entry per identity for the lifetime of
// the board.
func (sb *ScoreBoard) Record(identity uuid.UUID, score int64, submittedAt time.Time) error {
	if _, exists := sb.index[identity]; exists {
		return fmt.Errorf("identity %s already submitted", identity)
	}

	sb.index[identity] = len(sb.entries)
	sb.entries = append(sb.entries, ScoreEntry{
		Identity:    identity,
		Score:       score,
		SubmittedAt: submittedAt,
	})
	return nil
}

func (sb *ScoreBoard) Has(identity uuid.UUID) bool {
	_, ok := sb.index[identity]
	return ok
}

// Get returns the entry for an identity, if present.
func (sb *ScoreBoard) Get(identity uuid.UUID) (ScoreEntry, bool) {
	i, ok := sb.index[identity]
	if !ok {
		return ScoreEntry{}, false
	}
	return sb.entries[i], true
}

func (sb *ScoreBoard) Len() int {
	return len(sb.entries)
}

// Entries returns a copy in submission order.
func (sb *ScoreBoard) Entries() []ScoreEntry {
	out := make([]ScoreEntry, len(sb.entries))
	copy(out, sb.entries)
	return out
}

// Ranked returns entries ordered best-first: higher score wins, equal scores
// rank by earlier submission. The ordering is strict and total, so ranking is
// reproducible for audit.
func (sb *ScoreBoard) Ranked() []ScoreEntry {
	out := sb.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}
