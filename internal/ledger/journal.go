package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	JournalTypeEntryFee JournalType = iota
	JournalTypePrizeEscrow
	JournalTypePlatformFee
	JournalTypePayoutCredit
	JournalTypeRefundCredit
	JournalTypeClaim
	JournalTypeUnallocatedResidual
)

func (jt JournalType) String() string {
	switch jt {
	case JournalTypeEntryFee:
		return "entry_fee"
	case JournalTypePrizeEscrow:
		return "prize_escrow"
	case JournalTypePlatformFee:
		return "platform_fee"
	case JournalTypePayoutCredit:
		return "payout_credit"
	case JournalTypeRefundCredit:
		return "refund_credit"
	case JournalTypeClaim:
		return "claim"
	case JournalTypeUnallocatedResidual:
		return "unallocated_residual"
	default:
		return "unknown"
	}
}

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID   // Unique identifier
	BatchID       uuid.UUID   // Groups entries committed together
	InstanceID    uuid.UUID   // Tournament instance that produced the entry
	DebitAccount  AccountKey  // Account receiving debit (balance increases)
	CreditAccount AccountKey  // Account receiving credit (balance decreases)
	AssetID       AssetID     // Asset being moved
	Amount        int64       // Fixed-point amount (ALWAYS positive)
	JournalType   JournalType // Entry type
	Timestamp     int64       // Clock reading at commit (epoch microseconds)
}

// Batch represents a set of journal entries committed by one operation
type Batch struct {
	BatchID    uuid.UUID
	InstanceID uuid.UUID
	Timestamp  int64
	Journals   []Journal
}

// Validate ensures the batch is well-formed.
// Each journal entry is a balanced transfer by construction (a single
// positive amount moves from credit account to debit account), so zero-sum
// holds per entry. Multi-leg operations (distribute with fee + payouts)
// use multiple entries under one batch_id.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}

		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}

		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}
