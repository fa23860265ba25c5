package ledger

// InvariantValidator checks ledger invariants after each committed operation.
type InvariantValidator struct {
	ledger *Ledger
}

func NewInvariantValidator(ledger *Ledger) *InvariantValidator {
	return &InvariantValidator{
		ledger: ledger,
	}
}

// ValidateBatch verifies a batch is well-formed before it is emitted.
func (v *InvariantValidator) ValidateBatch(batch *Batch) error {
	if batch == nil {
		return nil
	}
	return batch.Validate()
}

// ValidateConservation verifies nothing was created or destroyed.
func (v *InvariantValidator) ValidateConservation() error {
	return v.ledger.Conservation()
}
