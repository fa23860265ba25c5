package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// Ledger is the per-tournament account of collected fees, escrowed prize
// pool, and per-player claimable balances. Every mutation produces a balanced
// journal batch for the audit trail. Not thread-safe — the owning instance
// serializes access.
type Ledger struct {
	instanceID uuid.UUID
	assetID    AssetID

	collectedFees     int64 // sum of entry fees ever transferred in
	escrowedPrizePool int64 // creator contribution
	platformFee       int64 // accrued at distribution
	unallocated       int64 // flooring residue retained in escrow
	credited          int64 // funds ever credited for payout or refund

	// Remaining undistributed value in each pot. Drained at distribution
	// or cancellation; fees drain before escrow.
	remainingFees   int64
	remainingEscrow int64

	claimable map[uuid.UUID]int64
	claimed   map[uuid.UUID]int64
}

func NewLedger(instanceID uuid.UUID, assetID AssetID) *Ledger {
	return &Ledger{
		instanceID: instanceID,
		assetID:    assetID,
		claimable:  make(map[uuid.UUID]int64),
		claimed:    make(map[uuid.UUID]int64),
	}
}

// CollectFee records an entry fee that the provider has already moved in.
func (l *Ledger) CollectFee(identity uuid.UUID, amount int64, ts int64) (*Batch, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("entry fee must be positive: %d", amount)
	}

	l.collectedFees += amount
	l.remainingFees += amount

	batch := l.newBatch(ts)
	batch.Journals = append(batch.Journals, l.newJournal(batch,
		NewInstanceAccountKey(l.instanceID, SubTypeFeesCollected, l.assetID),
		NewProviderAccountKey(l.assetID),
		amount, JournalTypeEntryFee, ts,
	))
	return batch, nil
}

// EscrowPrize records the creator-funded prize pool, collected at creation.
// A zero prize pool produces no batch.
func (l *Ledger) EscrowPrize(amount int64, ts int64) (*Batch, error) {
	if amount < 0 {
		return nil, fmt.Errorf("prize pool must be non-negative: %d", amount)
	}
	if amount == 0 {
		return nil, nil
	}

	l.escrowedPrizePool += amount
	l.remainingEscrow += amount

	batch := l.newBatch(ts)
	batch.Journals = append(batch.Journals, l.newJournal(batch,
		NewInstanceAccountKey(l.instanceID, SubTypePrizeEscrow, l.assetID),
		NewProviderAccountKey(l.assetID),
		amount, JournalTypePrizeEscrow, ts,
	))
	return batch, nil
}

// Distributable returns the total value available for distribution.
func (l *Ledger) Distributable() int64 {
	return l.remainingFees + l.remainingEscrow
}

// Distribute moves the distributable pool into platform fee, per-player
// claimable balances, and an unallocated residual. Called exactly once.
func (l *Ledger) Distribute(platformFee int64, payouts map[uuid.UUID]int64, order []uuid.UUID, ts int64) (*Batch, error) {
	if l.credited > 0 {
		return nil, fmt.Errorf("ledger for instance %s already distributed", l.instanceID)
	}

	var total int64
	for _, amount := range payouts {
		if amount < 0 {
			return nil, fmt.Errorf("negative payout: %d", amount)
		}
		total += amount
	}
	if platformFee+total > l.Distributable() {
		return nil, fmt.Errorf("payouts %d + fee %d exceed distributable %d",
			total, platformFee, l.Distributable())
	}

	batch := l.newBatch(ts)

	if platformFee > 0 {
		l.drain(batch, NewInstanceAccountKey(l.instanceID, SubTypePlatformFee, l.assetID),
			platformFee, JournalTypePlatformFee, ts)
		l.platformFee = platformFee
	}

	// Payouts credited in the caller-supplied deterministic order so the
	// journal trail is reproducible for audit.
	for _, identity := range order {
		amount := payouts[identity]
		if amount == 0 {
			continue
		}
		l.drain(batch, NewPlayerAccountKey(identity, SubTypeClaimable, l.assetID),
			amount, JournalTypePayoutCredit, ts)
		l.claimable[identity] += amount
		l.credited += amount
	}

	// Flooring residue stays in escrow, explicitly accounted.
	if residual := l.remainingFees + l.remainingEscrow; residual > 0 {
		l.drain(batch, NewInstanceAccountKey(l.instanceID, SubTypeUnallocated, l.assetID),
			residual, JournalTypeUnallocatedResidual, ts)
		l.unallocated = residual
	}

	if len(batch.Journals) == 0 {
		return nil, nil
	}
	return batch, nil
}

// CreditRefunds sets up per-identity refund balances on cancellation:
// every rostered player gets their entry fee back, the creator gets the
// escrowed prize pool. Claimed through the same claim-once discipline.
func (l *Ledger) CreditRefunds(players []uuid.UUID, entryFee int64, creator uuid.UUID, ts int64) (*Batch, error) {
	if l.credited > 0 {
		return nil, fmt.Errorf("ledger for instance %s already credited", l.instanceID)
	}

	batch := l.newBatch(ts)

	for _, identity := range players {
		if entryFee == 0 {
			break
		}
		l.drain(batch, NewPlayerAccountKey(identity, SubTypeClaimable, l.assetID),
			entryFee, JournalTypeRefundCredit, ts)
		l.claimable[identity] += entryFee
		l.credited += entryFee
	}

	if l.remainingEscrow > 0 {
		amount := l.remainingEscrow
		l.drain(batch, NewPlayerAccountKey(creator, SubTypeClaimable, l.assetID),
			amount, JournalTypeRefundCredit, ts)
		l.claimable[creator] += amount
		l.credited += amount
	}

	if len(batch.Journals) == 0 {
		return nil, nil
	}
	return batch, nil
}

// Claimable returns the outstanding balance owed to an identity.
func (l *Ledger) Claimable(identity uuid.UUID) int64 {
	return l.claimable[identity]
}

// Claim zeroes an identity's claimable balance and records it as claimed.
// The caller performs the provider transfer first and only commits the claim
// on success, so a failed transfer leaves the balance intact.
func (l *Ledger) Claim(identity uuid.UUID, ts int64) (*Batch, int64, error) {
	amount := l.claimable[identity]
	if amount <= 0 {
		return nil, 0, fmt.Errorf("identity %s has nothing to claim", identity)
	}

	delete(l.claimable, identity)
	l.claimed[identity] += amount

	batch := l.newBatch(ts)
	batch.Journals = append(batch.Journals, l.newJournal(batch,
		NewProviderAccountKey(l.assetID),
		NewPlayerAccountKey(identity, SubTypeClaimable, l.assetID),
		amount, JournalTypeClaim, ts,
	))
	return batch, amount, nil
}

// Conservation verifies that nothing was created or destroyed:
// every unit ever collected is either still pooled, accrued as platform fee,
// retained as unallocated residue, claimable, or already claimed.
func (l *Ledger) Conservation() error {
	var sumClaimable, sumClaimed int64
	for _, amount := range l.claimable {
		sumClaimable += amount
	}
	for _, amount := range l.claimed {
		sumClaimed += amount
	}

	totalIn := l.collectedFees + l.escrowedPrizePool
	accounted := l.remainingFees + l.remainingEscrow + l.platformFee + l.unallocated + sumClaimable + sumClaimed

	if accounted != totalIn {
		return fmt.Errorf("conservation violated for instance %s: accounted=%d, collected=%d",
			l.instanceID, accounted, totalIn)
	}
	if sumClaimable+sumClaimed != l.credited {
		return fmt.Errorf("credited mismatch for instance %s: claimable+claimed=%d, credited=%d",
			l.instanceID, sumClaimable+sumClaimed, l.credited)
	}
	if l.credited > totalIn {
		return fmt.Errorf("credited %d exceeds funds ever collected %d", l.credited, totalIn)
	}
	return nil
}

// === Snapshot accessors ===

func (l *Ledger) CollectedFees() int64     { return l.collectedFees }
func (l *Ledger) EscrowedPrizePool() int64 { return l.escrowedPrizePool }
func (l *Ledger) PlatformFee() int64       { return l.platformFee }
func (l *Ledger) Unallocated() int64       { return l.unallocated }

// TotalClaimed returns the sum of all settled claims.
func (l *Ledger) TotalClaimed() int64 {
	var total int64
	for _, amount := range l.claimed {
		total += amount
	}
	return total
}

// ClaimableBalances returns a copy of the outstanding balances.
func (l *Ledger) ClaimableBalances() map[uuid.UUID]int64 {
	out := make(map[uuid.UUID]int64, len(l.claimable))
	for k, v := range l.claimable {
		out[k] = v
	}
	return out
}

// === Internals ===

func (l *Ledger) newBatch(ts int64) *Batch {
	return &Batch{
		BatchID:    uuid.New(),
		InstanceID: l.instanceID,
		Timestamp:  ts,
	}
}

func (l *Ledger) newJournal(b *Batch, debit, credit AccountKey, amount int64, jt JournalType, ts int64) Journal {
	return Journal{
		JournalID:     uuid.New(),
		BatchID:       b.BatchID,
		InstanceID:    l.instanceID,
		DebitAccount:  debit,
		CreditAccount: credit,
		AssetID:       l.assetID,
		Amount:        amount,
		JournalType:   jt,
		Timestamp:     ts,
	}
}

// drain moves amount into the debit account, consuming the fee pot first and
// the prize escrow second. Emits one journal per source pot touched.
func (l *Ledger) drain(batch *Batch, debit AccountKey, amount int64, jt JournalType, ts int64) {
	fromFees := amount
	if fromFees > l.remainingFees {
		fromFees = l.remainingFees
	}
	if fromFees > 0 {
		batch.Journals = append(batch.Journals, l.newJournal(batch,
			debit,
			NewInstanceAccountKey(l.instanceID, SubTypeFeesCollected, l.assetID),
			fromFees, jt, ts,
		))
		l.remainingFees -= fromFees
	}

	if fromEscrow := amount - fromFees; fromEscrow > 0 {
		batch.Journals = append(batch.Journals, l.newJournal(batch,
			debit,
			NewInstanceAccountKey(l.instanceID, SubTypePrizeEscrow, l.assetID),
			fromEscrow, jt, ts,
		))
		l.remainingEscrow -= fromEscrow
	}
}
