package event

import (
	"time"

	"TourneyLedger/internal/ledger"

	"github.com/google/uuid"
)

// Type discriminator for notification payloads
type Type int32

const (
	TypeUnknown Type = iota
	TypeInstanceCreated
	TypePlayerJoined
	TypeGameStarted
	TypeScoreSubmitted
	TypeWinnersSet
	TypeGameCanceled
	TypePrizeDistributed
	TypePrizeClaimed
	TypeRefundClaimed
)

func (t Type) String() string {
	switch t {
	case TypeInstanceCreated:
		return "InstanceCreated"
	case TypePlayerJoined:
		return "PlayerJoined"
	case TypeGameStarted:
		return "GameStarted"
	case TypeScoreSubmitted:
		return "ScoreSubmitted"
	case TypeWinnersSet:
		return "WinnersSet"
	case TypeGameCanceled:
		return "GameCanceled"
	case TypePrizeDistributed:
		return "PrizeDistributed"
	case TypePrizeClaimed:
		return "PrizeClaimed"
	case TypeRefundClaimed:
		return "RefundClaimed"
	default:
		return "Unknown"
	}
}

// Envelope wraps every notification published after a committed transition.
type Envelope struct {
	// Global monotonic sequence assigned at emission
	Sequence int64 `json:"sequence"`

	// Tournament instance that committed the transition
	InstanceID uuid.UUID `json:"instance_id"`

	// Notification type discriminator
	Type Type `json:"type"`

	// Clock reading at commit
	Timestamp time.Time `json:"timestamp"`

	// Type-specific payload
	Payload interface{} `json:"payload,omitempty"`

	// Journal batch committed with the transition (nil for pure
	// state-only transitions)
	Batch *ledger.Batch `json:"-"`
}

// === Payloads ===

type InstanceCreated struct {
	Creator  uuid.UUID `json:"creator"`
	Title    string    `json:"title"`
	GameKind string    `json:"game_kind"`
	FeeAsset string    `json:"fee_asset"`
	EntryFee int64     `json:"entry_fee"`
}

type PlayerJoined struct {
	Identity    uuid.UUID `json:"identity"`
	EntryFee    int64     `json:"entry_fee"`
	PlayerCount int       `json:"player_count"`
}

type GameStarted struct {
	PlayerCount int `json:"player_count"`
}

type ScoreSubmitted struct {
	Identity uuid.UUID `json:"identity"`
	Score    int64     `json:"score"`
}

type WinnersSet struct {
	Winners []uuid.UUID `json:"winners"`
}

type GameCanceled struct {
	Reason      string `json:"reason"`
	PlayerCount int    `json:"player_count"`
}

type PrizeDistributed struct {
	PlatformFee int64 `json:"platform_fee"`
	PayoutPool  int64 `json:"payout_pool"`
	Recipients  int   `json:"recipients"`
}

type PrizeClaimed struct {
	Identity uuid.UUID `json:"identity"`
	Amount   int64     `json:"amount"`
}

type RefundClaimed struct {
	Identity uuid.UUID `json:"identity"`
	Amount   int64     `json:"amount"`
}
