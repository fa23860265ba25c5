package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Service provides read-only access to the persisted event log and journal.
// The in-memory engine answers live state; this answers history and audit.
// Responses carry as_of_sequence so callers can reason about freshness
// relative to the engine's emitted sequence.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// EventHistory returns persisted envelopes for one tournament, oldest first,
// starting after the given sequence.
func (s *Service) EventHistory(ctx context.Context, instanceID uuid.UUID, afterSeq int64, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, instance_id, event_type, payload, timestamp
		FROM event_log.events
		WHERE instance_id = $1 AND sequence > $2
		ORDER BY sequence
		LIMIT $3
	`, instanceID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.Sequence, &r.InstanceID, &r.EventType, &r.Payload, &r.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// JournalHistory returns the double-entry trail for one tournament, oldest
// first.
func (s *Service) JournalHistory(ctx context.Context, instanceID uuid.UUID, limit int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT journal_id, batch_id, instance_id, sequence,
		       debit_account, credit_account, asset_id, amount, journal_type, timestamp
		FROM event_log.journal
		WHERE instance_id = $1
		ORDER BY sequence, journal_id
		LIMIT $2
	`, instanceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	return scanJournal(rows)
}

// AccountActivity returns journal rows touching one account path, newest
// first. Lets a player audit everything ever credited to or claimed from
// their accounts.
func (s *Service) AccountActivity(ctx context.Context, accountPath string, limit int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT journal_id, batch_id, instance_id, sequence,
		       debit_account, credit_account, asset_id, amount, journal_type, timestamp
		FROM event_log.journal
		WHERE debit_account = $1 OR credit_account = $1
		ORDER BY sequence DESC, journal_id
		LIMIT $2
	`, accountPath, limit)
	if err != nil {
		return nil, fmt.Errorf("query account activity: %w", err)
	}
	defer rows.Close()

	return scanJournal(rows)
}

// CashFlow aggregates one tournament's journal by type.
func (s *Service) CashFlow(ctx context.Context, instanceID uuid.UUID) (*CashFlowSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT journal_type, COALESCE(SUM(amount), 0), COALESCE(MAX(sequence), 0)
		FROM event_log.journal
		WHERE instance_id = $1
		GROUP BY journal_type
	`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("query cash flow: %w", err)
	}
	defer rows.Close()

	summary := &CashFlowSummary{
		InstanceID: instanceID.String(),
		ByType:     make(map[int32]int64),
	}
	for rows.Next() {
		var jt int32
		var amount, maxSeq int64
		if err := rows.Scan(&jt, &amount, &maxSeq); err != nil {
			return nil, err
		}
		summary.ByType[jt] = amount
		summary.Total += amount
		if maxSeq > summary.AsOfSequence {
			summary.AsOfSequence = maxSeq
		}
	}
	return summary, rows.Err()
}

func scanJournal(rows *sql.Rows) ([]JournalEntry, error) {
	var out []JournalEntry
	for rows.Next() {
		var j JournalEntry
		if err := rows.Scan(
			&j.JournalID, &j.BatchID, &j.InstanceID, &j.Sequence,
			&j.DebitAccount, &j.CreditAccount, &j.AssetID, &j.Amount,
			&j.JournalType, &j.Timestamp,
		); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
