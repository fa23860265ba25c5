package asset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientFunds is returned when the source account cannot cover
	// the transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientAllowance is returned when the spender is not approved
	// for the amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Provider moves fungible value between identities. The engine depends on it
// but does not implement the real one; a transfer either completes or fails,
// and the engine never assumes a failed transfer can be retried silently.
type Provider interface {
	Transfer(ctx context.Context, from, to uuid.UUID, asset string, amount int64) error
	Allowance(ctx context.Context, owner, spender uuid.UUID, asset string) (int64, error)
}

type accountKey struct {
	identity uuid.UUID
	asset    string
}

type allowanceKey struct {
	owner   uuid.UUID
	spender uuid.UUID
	asset   string
}

// SimulatedProvider is an in-memory Provider for tests and local simulation.
// Thread-safe; distinct from the per-instance engine locks.
type SimulatedProvider struct {
	mu         sync.Mutex
	balances   map[accountKey]int64
	allowances map[allowanceKey]int64
}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{
		balances:   make(map[accountKey]int64),
		allowances: make(map[allowanceKey]int64),
	}
}

// Credit mints balance onto an identity. Faucet for tests and local play.
func (p *SimulatedProvider) Credit(identity uuid.UUID, asset string, amount int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[accountKey{identity, asset}] += amount
}

// Approve sets a spender allowance.
func (p *SimulatedProvider) Approve(owner, spender uuid.UUID, asset string, amount int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowances[allowanceKey{owner, spender, asset}] = amount
}

// Balance returns the current balance of an identity.
func (p *SimulatedProvider) Balance(identity uuid.UUID, asset string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[accountKey{identity, asset}]
}

func (p *SimulatedProvider) Transfer(ctx context.Context, from, to uuid.UUID, asset string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer amount must be non-negative: %d", amount)
	}
	if amount == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fromKey := accountKey{from, asset}
	if p.balances[fromKey] < amount {
		return fmt.Errorf("transfer %d %s from %s: %w", amount, asset, from, ErrInsufficientFunds)
	}

	p.balances[fromKey] -= amount
	p.balances[accountKey{to, asset}] += amount
	return nil
}

func (p *SimulatedProvider) Allowance(ctx context.Context, owner, spender uuid.UUID, asset string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allowances[allowanceKey{owner, spender, asset}], nil
}

// FailingProvider wraps a Provider and fails every transfer with the given
// error. Used to test that operations abort without partial mutation.
type FailingProvider struct {
	Err error
}

func (f FailingProvider) Transfer(ctx context.Context, from, to uuid.UUID, asset string, amount int64) error {
	return f.Err
}

func (f FailingProvider) Allowance(ctx context.Context, owner, spender uuid.UUID, asset string) (int64, error) {
	return 0, nil
}
