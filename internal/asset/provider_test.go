package asset_test

import (
	"TourneyLedger/internal/asset"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestSimulatedProvider_Transfer(t *testing.T) {
	p := asset.NewSimulatedProvider()
	a, b := uuid.New(), uuid.New()
	p.Credit(a, "GNOT", 1_000)

	if err := p.Transfer(context.Background(), a, b, "GNOT", 400); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if got := p.Balance(a, "GNOT"); got != 600 {
		t.Errorf("a balance: got %d, want 600", got)
	}
	if got := p.Balance(b, "GNOT"); got != 400 {
		t.Errorf("b balance: got %d, want 400", got)
	}
}

func TestSimulatedProvider_InsufficientFunds(t *testing.T) {
	p := asset.NewSimulatedProvider()
	a, b := uuid.New(), uuid.New()
	p.Credit(a, "GNOT", 100)

	err := p.Transfer(context.Background(), a, b, "GNOT", 101)
	if !errors.Is(err, asset.ErrInsufficientFunds) {
		t.Errorf("got %v, want ErrInsufficientFunds", err)
	}
	if got := p.Balance(a, "GNOT"); got != 100 {
		t.Errorf("failed transfer must not move funds: got %d", got)
	}
}

func TestSimulatedProvider_ZeroTransferNoop(t *testing.T) {
	p := asset.NewSimulatedProvider()
	a, b := uuid.New(), uuid.New()
	if err := p.Transfer(context.Background(), a, b, "GNOT", 0); err != nil {
		t.Errorf("zero transfer should succeed: %v", err)
	}
}

func TestSimulatedProvider_Allowance(t *testing.T) {
	p := asset.NewSimulatedProvider()
	owner, spender := uuid.New(), uuid.New()
	p.Approve(owner, spender, "GNOT", 250)

	got, err := p.Allowance(context.Background(), owner, spender, "GNOT")
	if err != nil {
		t.Fatalf("Allowance: %v", err)
	}
	if got != 250 {
		t.Errorf("allowance: got %d, want 250", got)
	}
}

func TestSimulatedProvider_ConcurrentTransfersConserve(t *testing.T) {
	p := asset.NewSimulatedProvider()
	src := uuid.New()
	p.Credit(src, "GNOT", 10_000)

	dests := make([]uuid.UUID, 10)
	for i := range dests {
		dests[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for _, d := range dests {
		wg.Add(1)
		go func(dest uuid.UUID) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = p.Transfer(context.Background(), src, dest, "GNOT", 1)
			}
		}(d)
	}
	wg.Wait()

	total := p.Balance(src, "GNOT")
	for _, d := range dests {
		total += p.Balance(d, "GNOT")
	}
	if total != 10_000 {
		t.Errorf("total after concurrent transfers: got %d, want 10000", total)
	}
}
