package state_test

import (
	"TourneyLedger/internal/state"
	"testing"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Test: Roster
// ============================================================================

func TestRoster_AddAndOrder(t *testing.T) {
	r := state.NewRoster(10)
	p1, p2 := uuid.New(), uuid.New()
	now := time.Now()

	if err := r.Add(p1, now); err != nil {
		t.Fatalf("Add p1: %v", err)
	}
	if err := r.Add(p2, now.Add(time.Second)); err != nil {
		t.Fatalf("Add p2: %v", err)
	}

	ids := r.Identities()
	if len(ids) != 2 || ids[0] != p1 || ids[1] != p2 {
		t.Errorf("join order not preserved: %v", ids)
	}
	if !r.Contains(p1) {
		t.Error("p1 should be in roster")
	}
}

func TestRoster_DuplicateIdentity_Fails(t *testing.T) {
	r := state.NewRoster(10)
	p := uuid.New()
	if err := r.Add(p, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(p, time.Now()); err == nil {
		t.Error("duplicate add should fail")
	}
	if r.Len() != 1 {
		t.Errorf("len: got %d, want 1", r.Len())
	}
}

func TestRoster_CapacityEnforced(t *testing.T) {
	r := state.NewRoster(2)
	if err := r.Add(uuid.New(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(uuid.New(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if !r.Full() {
		t.Error("roster should be full")
	}
	if err := r.Add(uuid.New(), time.Now()); err == nil {
		t.Error("add beyond capacity should fail")
	}
}

// ============================================================================
// Test: ScoreBoard
// ============================================================================

func TestScoreBoard_WriteOnce(t *testing.T) {
	sb := state.NewScoreBoard()
	p := uuid.New()

	if err := sb.Record(p, 100, time.Now()); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := sb.Record(p, 200, time.Now()); err == nil {
		t.Error("second submission should fail")
	}

	entry, ok := sb.Get(p)
	if !ok || entry.Score != 100 {
		t.Errorf("first score must stand: got %+v", entry)
	}
}

func TestScoreBoard_Ranked_TieBreakByEarlierSubmission(t *testing.T) {
	sb := state.NewScoreBoard()
	early, late, best := uuid.New(), uuid.New(), uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Insertion order deliberately differs from submission time so the
	// tie-break must come from SubmittedAt.
	if err := sb.Record(late, 80, base.Add(2*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := sb.Record(early, 80, base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := sb.Record(best, 100, base.Add(3*time.Minute)); err != nil {
		t.Fatal(err)
	}

	ranked := sb.Ranked()
	if ranked[0].Identity != best {
		t.Errorf("rank 1: got %s, want %s", ranked[0].Identity, best)
	}
	if ranked[1].Identity != early {
		t.Errorf("rank 2 (earlier tie): got %s, want %s", ranked[1].Identity, early)
	}
	if ranked[2].Identity != late {
		t.Errorf("rank 3 (later tie): got %s, want %s", ranked[2].Identity, late)
	}
}
