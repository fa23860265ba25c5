package persistence

import (
	"context"
	"testing"
	"time"

	"TourneyLedger/internal/event"
	"TourneyLedger/internal/ledger"
	"TourneyLedger/internal/testutil"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestEnvelopeRowConversion(t *testing.T) {
	instanceID := uuid.New()
	led := ledger.NewLedger(instanceID, 1)
	player := uuid.New()

	batch, err := led.CollectFee(player, 500, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}

	env := event.Envelope{
		Sequence:   7,
		InstanceID: instanceID,
		Type:       event.TypePlayerJoined,
		Timestamp:  time.UnixMicro(1_000_000),
		Payload:    event.PlayerJoined{Identity: player, EntryFee: 500, PlayerCount: 1},
		Batch:      batch,
	}

	row := envelopeRow(env)
	if row.Sequence != 7 || row.EventType != "PlayerJoined" || row.InstanceID != instanceID.String() {
		t.Errorf("unexpected event row: %+v", row)
	}
	if len(row.Payload) == 0 || string(row.Payload) == "{}" {
		t.Errorf("payload not marshaled: %q", row.Payload)
	}

	rows := journalRows(env)
	if len(rows) != 1 {
		t.Fatalf("journal rows = %d, want 1", len(rows))
	}
	if rows[0].Amount != 500 || rows[0].Sequence != 7 {
		t.Errorf("unexpected journal row: %+v", rows[0])
	}
	if rows[0].DebitAccount == rows[0].CreditAccount {
		t.Errorf("self-transfer row: %+v", rows[0])
	}
}

func TestJournalRowsNilBatch(t *testing.T) {
	env := event.Envelope{Sequence: 1, InstanceID: uuid.New(), Type: event.TypeGameStarted}
	if rows := journalRows(env); rows != nil {
		t.Errorf("rows = %v, want nil for batch-less envelope", rows)
	}
}

// --- Integration ---

func TestWorkerPersistsEnvelopes(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	migrator := NewMigrator(db, "../../migrations", zerolog.Nop())
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	input := make(chan event.Envelope, 16)
	worker := NewWorker(db, input, 4, 20*time.Millisecond, nil, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	instanceID := uuid.New()
	led := ledger.NewLedger(instanceID, 1)
	for i := int64(1); i <= 6; i++ {
		batch, err := led.CollectFee(uuid.New(), 500, i*1000)
		if err != nil {
			t.Fatal(err)
		}
		input <- event.Envelope{
			Sequence:   i,
			InstanceID: instanceID,
			Type:       event.TypePlayerJoined,
			Timestamp:  time.UnixMicro(i * 1000),
			Payload:    event.PlayerJoined{EntryFee: 500, PlayerCount: int(i)},
			Batch:      batch,
		}
	}

	// Duplicate sequence: the conflict target makes the rewrite a no-op.
	input <- event.Envelope{
		Sequence:   6,
		InstanceID: instanceID,
		Type:       event.TypePlayerJoined,
		Timestamp:  time.UnixMicro(6000),
	}
	close(input)
	<-done

	var events int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM event_log.events WHERE instance_id = $1`, instanceID,
	).Scan(&events); err != nil {
		t.Fatal(err)
	}
	if events != 6 {
		t.Errorf("persisted events = %d, want 6", events)
	}

	var journals int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM event_log.journal WHERE instance_id = $1`, instanceID,
	).Scan(&journals); err != nil {
		t.Fatal(err)
	}
	if journals != 6 {
		t.Errorf("persisted journals = %d, want 6", journals)
	}
}
