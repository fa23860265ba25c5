package engine

import (
	"fmt"
	"strings"
	"time"

	"TourneyLedger/internal/ledger"
	"TourneyLedger/internal/prize"

	"github.com/google/uuid"
)

// GameKind identifies the mini-game a tournament is played over. The engine
// treats scores as opaque; the kind is descriptive metadata for clients.
type GameKind int32

const (
	GameKindUnknown GameKind = iota
	GameKindNumberGuess
	GameKindRockPaperScissors
	GameKindQuickClick
	GameKindSurvivalArena
	GameKindTileMatch
)

func (g GameKind) String() string {
	switch g {
	case GameKindNumberGuess:
		return "number_guess"
	case GameKindRockPaperScissors:
		return "rock_paper_scissors"
	case GameKindQuickClick:
		return "quick_click"
	case GameKindSurvivalArena:
		return "survival_arena"
	case GameKindTileMatch:
		return "tile_match"
	default:
		return "unknown"
	}
}

// ParseGameKind maps the wire name back to a kind.
func ParseGameKind(s string) (GameKind, bool) {
	switch s {
	case "number_guess":
		return GameKindNumberGuess, true
	case "rock_paper_scissors":
		return GameKindRockPaperScissors, true
	case "quick_click":
		return GameKindQuickClick, true
	case "survival_arena":
		return GameKindSurvivalArena, true
	case "tile_match":
		return GameKindTileMatch, true
	default:
		return GameKindUnknown, false
	}
}

// Config is the immutable configuration fixed at tournament creation.
// Amounts are in minor units of Asset.
type Config struct {
	Creator     uuid.UUID
	Title       string
	Description string
	GameKind    GameKind

	Asset     string
	EntryFee  int64
	PrizePool int64

	MinPlayers int
	MaxPlayers int

	RegistrationEnd time.Time
	GameStart       time.Time
	GameEnd         time.Time

	Policy prize.Policy
}

// ImmediateStart reports whether play begins the moment registration closes.
// Such tournaments admit late joiners while the game runs, up to the final
// join cutoff before GameEnd.
func (c Config) ImmediateStart() bool {
	return c.RegistrationEnd.Equal(c.GameStart)
}

// Validate rejects malformed configurations before any funds move.
// All failures wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Creator == uuid.Nil {
		return fmt.Errorf("%w: creator identity required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidConfig)
	}
	if c.GameKind.String() == "unknown" {
		return fmt.Errorf("%w: unknown game kind %d", ErrInvalidConfig, c.GameKind)
	}
	if _, ok := ledger.GetAssetID(c.Asset); !ok {
		return fmt.Errorf("%w: unsupported asset %q", ErrInvalidConfig, c.Asset)
	}
	if c.EntryFee < 0 {
		return fmt.Errorf("%w: entry fee must be non-negative: %d", ErrInvalidConfig, c.EntryFee)
	}
	if c.PrizePool < 0 {
		return fmt.Errorf("%w: prize pool must be non-negative: %d", ErrInvalidConfig, c.PrizePool)
	}
	if c.MinPlayers < 1 {
		return fmt.Errorf("%w: min players must be at least 1: %d", ErrInvalidConfig, c.MinPlayers)
	}
	if c.MaxPlayers < c.MinPlayers {
		return fmt.Errorf("%w: max players %d below min players %d",
			ErrInvalidConfig, c.MaxPlayers, c.MinPlayers)
	}
	if c.RegistrationEnd.IsZero() || c.GameStart.IsZero() || c.GameEnd.IsZero() {
		return fmt.Errorf("%w: all schedule times required", ErrInvalidConfig)
	}
	if c.GameStart.Before(c.RegistrationEnd) {
		return fmt.Errorf("%w: game start precedes registration end", ErrInvalidConfig)
	}
	if !c.GameEnd.After(c.GameStart) {
		return fmt.Errorf("%w: game end must follow game start", ErrInvalidConfig)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
