package query

import (
	"encoding/json"
	"time"
)

// EventRecord is one persisted envelope for API queries.
type EventRecord struct {
	Sequence   int64           `json:"sequence"`
	InstanceID string          `json:"instance_id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
}

// JournalEntry is one persisted double-entry row for API queries.
type JournalEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	InstanceID    string `json:"instance_id"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	AssetID       uint16 `json:"asset_id"`
	Amount        int64  `json:"amount"`
	JournalType   int32  `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// CashFlowSummary aggregates one tournament's journal by type, amounts in
// minor units.
type CashFlowSummary struct {
	InstanceID string          `json:"instance_id"`
	ByType     map[int32]int64 `json:"by_type"`
	Total      int64           `json:"total"`
	AsOfSequence int64         `json:"as_of_sequence"`
}
