package prize

import (
	"fmt"

	"TourneyLedger/internal/money"

	"github.com/google/uuid"
)

// PolicyKind selects how the payout pool is divided.
type PolicyKind int32

const (
	WinnerTakesAll PolicyKind = iota
	AverageSplit
	RankedShares
)

func (k PolicyKind) String() string {
	switch k {
	case WinnerTakesAll:
		return "winner_takes_all"
	case AverageSplit:
		return "average_split"
	case RankedShares:
		return "ranked_shares"
	default:
		return "unknown"
	}
}

// ParsePolicyKind maps the wire name back to a kind.
func ParsePolicyKind(s string) (PolicyKind, bool) {
	switch s {
	case "winner_takes_all":
		return WinnerTakesAll, true
	case "average_split":
		return AverageSplit, true
	case "ranked_shares":
		return RankedShares, true
	default:
		return 0, false
	}
}

// Policy is a distribution policy. BasisPoints applies to RankedShares only,
// ordered 1st..Nth; its length bounds how many winners may be designated.
type Policy struct {
	Kind        PolicyKind
	BasisPoints []int64
}

// Validate checks policy well-formedness at configuration time.
func (p Policy) Validate() error {
	switch p.Kind {
	case WinnerTakesAll, AverageSplit:
		if len(p.BasisPoints) != 0 {
			return fmt.Errorf("%s does not take basis points", p.Kind)
		}
		return nil
	case RankedShares:
		if len(p.BasisPoints) == 0 {
			return fmt.Errorf("ranked_shares requires at least one basis-point share")
		}
		var sum int64
		for i, bps := range p.BasisPoints {
			if bps <= 0 {
				return fmt.Errorf("basis points[%d] must be positive: %d", i, bps)
			}
			sum += bps
		}
		if sum > money.BasisPointDenominator {
			return fmt.Errorf("basis points sum %d exceeds %d", sum, money.BasisPointDenominator)
		}
		return nil
	default:
		return fmt.Errorf("unknown policy kind: %d", p.Kind)
	}
}

// ValidateWinnerCount checks the winners list length against the policy:
// exactly one for WinnerTakesAll, at most the roster for AverageSplit
// (all participants share regardless of the list), exactly one per
// basis-point share for RankedShares.
func (p Policy) ValidateWinnerCount(winners, rosterSize int) error {
	if winners == 0 {
		return fmt.Errorf("winners list is empty")
	}
	switch p.Kind {
	case WinnerTakesAll:
		if winners != 1 {
			return fmt.Errorf("winner_takes_all requires exactly 1 winner, got %d", winners)
		}
	case AverageSplit:
		if winners > rosterSize {
			return fmt.Errorf("average_split winners %d exceed roster size %d", winners, rosterSize)
		}
	case RankedShares:
		if winners != len(p.BasisPoints) {
			return fmt.Errorf("ranked_shares requires exactly %d winners, got %d", len(p.BasisPoints), winners)
		}
	}
	return nil
}

// Distribute is a pure computation of the payout map. No side effects, no
// time dependency; identical inputs always produce identical outputs, so a
// distribution can be re-derived for audit. Returned alongside the map is
// the deterministic credit order. Flooring remainders are NOT assigned to
// anyone — the caller retains them as unallocated.
func Distribute(payoutPool int64, policy Policy, roster, winners []uuid.UUID) (map[uuid.UUID]int64, []uuid.UUID, error) {
	if payoutPool < 0 {
		return nil, nil, fmt.Errorf("payout pool must be non-negative: %d", payoutPool)
	}

	payouts := make(map[uuid.UUID]int64)

	switch policy.Kind {
	case WinnerTakesAll:
		if len(winners) != 1 {
			return nil, nil, fmt.Errorf("winner_takes_all requires exactly 1 winner, got %d", len(winners))
		}
		payouts[winners[0]] = payoutPool
		return payouts, []uuid.UUID{winners[0]}, nil

	case AverageSplit:
		// Every roster identity shares equally, in join order.
		if len(roster) == 0 {
			return nil, nil, fmt.Errorf("average_split with empty roster")
		}
		share := money.SplitEvenly(payoutPool, len(roster))
		order := make([]uuid.UUID, 0, len(roster))
		for _, identity := range roster {
			payouts[identity] = share
			order = append(order, identity)
		}
		return payouts, order, nil

	case RankedShares:
		if len(winners) != len(policy.BasisPoints) {
			return nil, nil, fmt.Errorf("ranked_shares requires %d winners, got %d",
				len(policy.BasisPoints), len(winners))
		}
		order := make([]uuid.UUID, 0, len(winners))
		for i, identity := range winners {
			payouts[identity] += money.ApplyBasisPoints(payoutPool, policy.BasisPoints[i])
			order = append(order, identity)
		}
		return payouts, order, nil

	default:
		return nil, nil, fmt.Errorf("unknown policy kind: %d", policy.Kind)
	}
}
