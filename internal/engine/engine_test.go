package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TourneyLedger/internal/asset"
	"TourneyLedger/internal/event"
	"TourneyLedger/internal/prize"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ==========================================================================
// Test environment
// ==========================================================================

type captureEmitter struct {
	mu   sync.Mutex
	envs []event.Envelope
}

func (e *captureEmitter) Emit(env event.Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.envs = append(e.envs, env)
}

func (e *captureEmitter) types() []event.Type {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]event.Type, len(e.envs))
	for i, env := range e.envs {
		out[i] = env.Type
	}
	return out
}

// flakyProvider fails transfers on demand, wrapping the simulated provider
// otherwise.
type flakyProvider struct {
	*asset.SimulatedProvider
	fail bool
}

func (p *flakyProvider) Transfer(ctx context.Context, from, to uuid.UUID, assetName string, amount int64) error {
	if p.fail {
		return errors.New("provider down")
	}
	return p.SimulatedProvider.Transfer(ctx, from, to, assetName, amount)
}

type testEnv struct {
	clock    *clockwork.FakeClock
	provider *flakyProvider
	emitter  *captureEmitter
	registry *Registry
	creator  uuid.UUID
}

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := clockwork.NewFakeClockAt(testEpoch)
	provider := &flakyProvider{SimulatedProvider: asset.NewSimulatedProvider()}
	emitter := &captureEmitter{}
	creator := uuid.New()
	provider.Credit(creator, "GNOT", 1_000_000)

	return &testEnv{
		clock:    clock,
		provider: provider,
		emitter:  emitter,
		registry: NewRegistry(clock, provider, emitter, nil, zerolog.Nop()),
		creator:  creator,
	}
}

// baseConfig: paid tournament, 5.00 entry, 100.00 prize, 2-8 players,
// registration closes in 1h, play 2h-3h out.
func (e *testEnv) baseConfig() Config {
	return Config{
		Creator:         e.creator,
		Title:           "friday night quick click",
		GameKind:        GameKindQuickClick,
		Asset:           "GNOT",
		EntryFee:        500,
		PrizePool:       10_000,
		MinPlayers:      2,
		MaxPlayers:      8,
		RegistrationEnd: testEpoch.Add(1 * time.Hour),
		GameStart:       testEpoch.Add(2 * time.Hour),
		GameEnd:         testEpoch.Add(3 * time.Hour),
		Policy:          prize.Policy{Kind: prize.WinnerTakesAll},
	}
}

func (e *testEnv) create(t *testing.T, cfg Config) *Instance {
	t.Helper()
	in, err := e.registry.CreateTournament(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	return in
}

func (e *testEnv) join(t *testing.T, in *Instance, n int) []uuid.UUID {
	t.Helper()
	players := make([]uuid.UUID, n)
	for i := range players {
		players[i] = uuid.New()
		e.provider.Credit(players[i], "GNOT", 10_000)
		if err := in.Join(context.Background(), players[i]); err != nil {
			t.Fatalf("Join player %d: %v", i, err)
		}
	}
	return players
}

// ==========================================================================
// Creation
// ==========================================================================

func TestCreateEscrowsPrizeBeforeVisible(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())

	if got := env.provider.Balance(in.ID(), "GNOT"); got != 10_000 {
		t.Errorf("escrow balance = %d, want 10000", got)
	}
	if got := env.provider.Balance(env.creator, "GNOT"); got != 990_000 {
		t.Errorf("creator balance = %d, want 990000", got)
	}
	if env.registry.Len() != 1 {
		t.Errorf("registry len = %d, want 1", env.registry.Len())
	}
	if in.Status() != StatusCreated {
		t.Errorf("status = %s, want created", in.Status())
	}
}

func TestCreateFailedEscrowRegistersNothing(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.baseConfig()
	cfg.Creator = uuid.New() // no balance

	_, err := env.registry.CreateTournament(context.Background(), cfg)
	if KindOf(err) != KindFunds {
		t.Fatalf("err = %v, want funds kind", err)
	}
	if env.registry.Len() != 0 {
		t.Errorf("registry len = %d, want 0", env.registry.Len())
	}
	if len(env.emitter.types()) != 0 {
		t.Errorf("emitted %v, want nothing", env.emitter.types())
	}
}

func TestCreateRejectsBadConfig(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no title", func(c *Config) { c.Title = "  " }},
		{"unknown game", func(c *Config) { c.GameKind = GameKindUnknown }},
		{"unknown asset", func(c *Config) { c.Asset = "DOGE" }},
		{"negative fee", func(c *Config) { c.EntryFee = -1 }},
		{"negative prize", func(c *Config) { c.PrizePool = -1 }},
		{"zero min", func(c *Config) { c.MinPlayers = 0 }},
		{"max below min", func(c *Config) { c.MaxPlayers = 1 }},
		{"start before reg end", func(c *Config) { c.GameStart = c.RegistrationEnd.Add(-time.Second) }},
		{"end at start", func(c *Config) { c.GameEnd = c.GameStart }},
		{"bad policy", func(c *Config) {
			c.Policy = prize.Policy{Kind: prize.WinnerTakesAll, BasisPoints: []int64{10_000}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := env.baseConfig()
			tc.mutate(&cfg)
			_, err := env.registry.CreateTournament(context.Background(), cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
			if KindOf(err) != KindValidation {
				t.Errorf("kind = %s, want validation", KindOf(err))
			}
		})
	}
}

// ==========================================================================
// Admission
// ==========================================================================

func TestJoinCollectsFee(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 2)

	if got := env.provider.Balance(players[0], "GNOT"); got != 9_500 {
		t.Errorf("player balance = %d, want 9500", got)
	}
	if got := env.provider.Balance(in.ID(), "GNOT"); got != 11_000 {
		t.Errorf("escrow balance = %d, want 11000", got)
	}
	if got := in.GameData().PlayerCount; got != 2 {
		t.Errorf("player count = %d, want 2", got)
	}
}

func TestJoinRejectsDuplicateAndKeepsFunds(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 1)

	err := in.Join(context.Background(), players[0])
	if !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("err = %v, want ErrAlreadyJoined", err)
	}
	// First fee collected, second attempt moved nothing.
	if got := env.provider.Balance(players[0], "GNOT"); got != 9_500 {
		t.Errorf("player balance = %d, want 9500", got)
	}
}

func TestJoinRejectsWhenFull(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.baseConfig()
	cfg.MaxPlayers = 2
	in := env.create(t, cfg)
	env.join(t, in, 2)

	late := uuid.New()
	env.provider.Credit(late, "GNOT", 10_000)
	err := in.Join(context.Background(), late)
	if !errors.Is(err, ErrFull) {
		t.Fatalf("err = %v, want ErrFull", err)
	}
	if got := env.provider.Balance(late, "GNOT"); got != 10_000 {
		t.Errorf("rejected join moved funds: balance = %d", got)
	}
}

func TestJoinClosesAtRegistrationEnd(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())

	env.clock.Advance(1*time.Hour - time.Second)
	env.join(t, in, 1)

	env.clock.Advance(time.Second)
	late := uuid.New()
	env.provider.Credit(late, "GNOT", 10_000)
	err := in.Join(context.Background(), late)
	if !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("err = %v, want ErrRegistrationClosed", err)
	}
	if KindOf(err) != KindTiming {
		t.Errorf("kind = %s, want timing", KindOf(err))
	}
}

func TestImmediateStartAdmitsUntilCutoff(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.baseConfig()
	cfg.GameStart = cfg.RegistrationEnd // play begins at registration close
	cfg.GameEnd = cfg.RegistrationEnd.Add(2 * time.Hour)
	in := env.create(t, cfg)

	if !cfg.ImmediateStart() {
		t.Fatal("config should be immediate-start")
	}

	// Well past the registration deadline but before the join cutoff.
	env.clock.Advance(1*time.Hour + 105*time.Minute - time.Second)
	env.join(t, in, 1)

	// One second later the cutoff is reached.
	env.clock.Advance(time.Second)
	late := uuid.New()
	env.provider.Credit(late, "GNOT", 10_000)
	if err := in.Join(context.Background(), late); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("err = %v, want ErrRegistrationClosed at cutoff", err)
	}
}

func TestJoinProviderFailureLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())

	env.provider.fail = true
	player := uuid.New()
	err := in.Join(context.Background(), player)
	if !errors.Is(err, ErrFunds) {
		t.Fatalf("err = %v, want ErrFunds", err)
	}
	if in.GameData().PlayerCount != 0 {
		t.Errorf("failed join mutated roster")
	}

	env.provider.fail = false
	env.provider.Credit(player, "GNOT", 10_000)
	if err := in.Join(context.Background(), player); err != nil {
		t.Fatalf("retry after provider recovery: %v", err)
	}
}

// ==========================================================================
// Start
// ==========================================================================

func TestStartBeforeDeadlineRejected(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	env.join(t, in, 2)

	if err := in.Start(context.Background()); !errors.Is(err, ErrRegistrationOpen) {
		t.Fatalf("err = %v, want ErrRegistrationOpen", err)
	}
	if in.Status() != StatusCreated {
		t.Errorf("status = %s, want created", in.Status())
	}
}

func TestStartBelowMinimumCancels(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 1)

	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if in.Status() != StatusCanceled {
		t.Fatalf("status = %s, want canceled", in.Status())
	}

	// Entry fee refundable to the player, prize pool to the creator.
	if got := in.Claimable(players[0]); got != 500 {
		t.Errorf("player refund = %d, want 500", got)
	}
	if got := in.Claimable(env.creator); got != 10_000 {
		t.Errorf("creator refund = %d, want 10000", got)
	}
}

func TestStartTransitionsToOngoing(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	env.join(t, in, 2)

	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if in.Status() != StatusOngoing {
		t.Fatalf("status = %s, want ongoing", in.Status())
	}
	if err := in.Start(context.Background()); !errors.Is(err, ErrWrongState) {
		t.Fatalf("second start: err = %v, want ErrWrongState", err)
	}
}

// ==========================================================================
// Scores
// ==========================================================================

func TestSubmitScoreWriteOnce(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 2)
	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := in.SubmitScore(players[0], 420); err != nil {
		t.Fatalf("SubmitScore: %v", err)
	}
	if err := in.SubmitScore(players[0], 9_000); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("resubmit: err = %v, want ErrAlreadySubmitted", err)
	}

	views := in.Players()
	if views[0].Score == nil || *views[0].Score != 420 {
		t.Errorf("recorded score = %v, want 420", views[0].Score)
	}

	if err := in.SubmitScore(uuid.New(), 1); !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("outsider submit: err = %v, want ErrNotAParticipant", err)
	}
}

func TestRankingBreaksTiesByEarlierSubmission(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 3)
	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := in.SubmitScore(players[2], 100); err != nil {
		t.Fatal(err)
	}
	env.clock.Advance(time.Minute)
	if err := in.SubmitScore(players[0], 100); err != nil {
		t.Fatal(err)
	}
	env.clock.Advance(time.Minute)
	if err := in.SubmitScore(players[1], 250); err != nil {
		t.Fatal(err)
	}

	ranked := in.Ranking()
	want := []uuid.UUID{players[1], players[2], players[0]}
	for i, id := range want {
		if ranked[i].Identity != id {
			t.Fatalf("rank %d = %s, want %s", i, ranked[i].Identity, id)
		}
	}
}

// ==========================================================================
// Winners
// ==========================================================================

func TestSetWinnersCreatorOnly(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 2)
	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := in.SetWinners(players[0], []uuid.UUID{players[0]}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("non-creator: err = %v, want ErrNotAuthorized", err)
	}
	if err := in.SetWinners(env.creator, []uuid.UUID{uuid.New()}); !errors.Is(err, ErrInvalidWinners) {
		t.Fatalf("outsider winner: err = %v, want ErrInvalidWinners", err)
	}
	if err := in.SetWinners(env.creator, []uuid.UUID{players[0]}); err != nil {
		t.Fatalf("SetWinners: %v", err)
	}
	if in.Status() != StatusEnded {
		t.Errorf("status = %s, want ended", in.Status())
	}
}

func TestSetWinnersRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.baseConfig()
	cfg.Policy = prize.Policy{Kind: prize.RankedShares, BasisPoints: []int64{6_000, 4_000}}
	in := env.create(t, cfg)
	players := env.join(t, in, 2)
	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := in.SetWinners(env.creator, []uuid.UUID{players[0], players[0]})
	if !errors.Is(err, ErrInvalidWinners) {
		t.Fatalf("duplicate winner: err = %v, want ErrInvalidWinners", err)
	}
}

// ==========================================================================
// Settlement scenarios
// ==========================================================================

// Full lifecycle: 2 paid players and a funded prize pool, winner takes all.
// Distributable 110.00, platform fee 5.50, payout 104.50.
func TestLifecycleWinnerTakesAll(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 2)

	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := in.SubmitScore(players[0], 300); err != nil {
		t.Fatal(err)
	}
	if err := in.SubmitScore(players[1], 200); err != nil {
		t.Fatal(err)
	}
	if err := in.SetWinners(env.creator, []uuid.UUID{players[0]}); err != nil {
		t.Fatal(err)
	}
	if err := in.DistributePrize(); err != nil {
		t.Fatal(err)
	}

	if got := in.Claimable(players[0]); got != 10_450 {
		t.Errorf("winner claimable = %d, want 10450", got)
	}
	if got := in.Claimable(players[1]); got != 0 {
		t.Errorf("loser claimable = %d, want 0", got)
	}

	paid, err := in.ClaimPrize(context.Background(), players[0])
	if err != nil {
		t.Fatalf("ClaimPrize: %v", err)
	}
	if paid != 10_450 {
		t.Errorf("paid = %d, want 10450", paid)
	}
	if got := env.provider.Balance(players[0], "GNOT"); got != 9_500+10_450 {
		t.Errorf("winner balance = %d, want %d", got, 9_500+10_450)
	}

	// Claim-once.
	if _, err := in.ClaimPrize(context.Background(), players[0]); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("second claim: err = %v, want ErrNothingToClaim", err)
	}
	if _, err := in.ClaimPrize(context.Background(), players[1]); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("loser claim: err = %v, want ErrNothingToClaim", err)
	}

	wantEvents := []event.Type{
		event.TypeInstanceCreated,
		event.TypePlayerJoined, event.TypePlayerJoined,
		event.TypeGameStarted,
		event.TypeScoreSubmitted, event.TypeScoreSubmitted,
		event.TypeWinnersSet,
		event.TypePrizeDistributed,
		event.TypePrizeClaimed,
	}
	got := env.emitter.types()
	if len(got) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", got, wantEvents)
	}
	for i := range wantEvents {
		if got[i] != wantEvents[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], wantEvents[i])
		}
	}
}

// Ranked shares 60/30/10 over a pure prize pool of 200.00: platform fee
// 10.00, payout pool 190.00 split 114.00 / 57.00 / 19.00.
func TestLifecycleRankedShares(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.baseConfig()
	cfg.EntryFee = 0
	cfg.PrizePool = 20_000
	cfg.MinPlayers = 3
	cfg.Policy = prize.Policy{Kind: prize.RankedShares, BasisPoints: []int64{6_000, 3_000, 1_000}}
	in := env.create(t, cfg)
	players := env.join(t, in, 3)

	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := in.SetWinners(env.creator, []uuid.UUID{players[2], players[0], players[1]}); err != nil {
		t.Fatal(err)
	}
	if err := in.DistributePrize(); err != nil {
		t.Fatal(err)
	}

	want := map[uuid.UUID]int64{
		players[2]: 11_400,
		players[0]: 5_700,
		players[1]: 1_900,
	}
	for id, amount := range want {
		if got := in.Claimable(id); got != amount {
			t.Errorf("claimable(%s) = %d, want %d", id, got, amount)
		}
	}

	if err := in.DistributePrize(); !errors.Is(err, ErrWrongState) {
		t.Fatalf("second distribution: err = %v, want ErrWrongState", err)
	}
}

// Average split leaves the flooring residue unassigned: pool 95.00 over 3
// players gives 31.66 each and 0.02 retained.
func TestDistributionRetainsFlooringResidue(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.baseConfig()
	cfg.EntryFee = 0
	cfg.PrizePool = 10_000
	cfg.MinPlayers = 3
	cfg.Policy = prize.Policy{Kind: prize.AverageSplit}
	in := env.create(t, cfg)
	players := env.join(t, in, 3)

	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := in.SetWinners(env.creator, []uuid.UUID{players[0]}); err != nil {
		t.Fatal(err)
	}
	if err := in.DistributePrize(); err != nil {
		t.Fatal(err)
	}

	// fee 500, pool 9500, share 3166, residue 9500-3*3166 = 2
	for _, p := range players {
		if got := in.Claimable(p); got != 3_166 {
			t.Errorf("claimable = %d, want 3166", got)
		}
	}
	data := in.GameData()
	if data.PlatformFee != 500 {
		t.Errorf("platform fee = %d, want 500", data.PlatformFee)
	}
}

func TestClaimProviderFailureKeepsBalance(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 2)
	env.clock.Advance(time.Hour)
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := in.SetWinners(env.creator, []uuid.UUID{players[0]}); err != nil {
		t.Fatal(err)
	}
	if err := in.DistributePrize(); err != nil {
		t.Fatal(err)
	}

	env.provider.fail = true
	if _, err := in.ClaimPrize(context.Background(), players[0]); !errors.Is(err, ErrFunds) {
		t.Fatalf("err = %v, want ErrFunds", err)
	}
	if got := in.Claimable(players[0]); got != 10_450 {
		t.Fatalf("failed claim consumed balance: claimable = %d", got)
	}

	env.provider.fail = false
	if paid, err := in.ClaimPrize(context.Background(), players[0]); err != nil || paid != 10_450 {
		t.Fatalf("retry: paid = %d, err = %v", paid, err)
	}
}

// ==========================================================================
// Cancellation and refunds
// ==========================================================================

func TestCancelCreatorOnlyBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 2)

	if err := in.Cancel(players[0]); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("non-creator cancel: err = %v, want ErrNotAuthorized", err)
	}
	if err := in.Cancel(env.creator); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if in.Status() != StatusCanceled {
		t.Fatalf("status = %s, want canceled", in.Status())
	}
	if err := in.Cancel(env.creator); !errors.Is(err, ErrWrongState) {
		t.Fatalf("second cancel: err = %v, want ErrWrongState", err)
	}
	if err := in.Join(context.Background(), uuid.New()); !errors.Is(err, ErrWrongState) {
		t.Fatalf("join after cancel: err = %v, want ErrWrongState", err)
	}
}

func TestRefundsClaimOnceAndConserveValue(t *testing.T) {
	env := newTestEnv(t)
	in := env.create(t, env.baseConfig())
	players := env.join(t, in, 2)
	if err := in.Cancel(env.creator); err != nil {
		t.Fatal(err)
	}

	for _, p := range players {
		amount, err := in.ClaimRefund(context.Background(), p)
		if err != nil {
			t.Fatalf("ClaimRefund: %v", err)
		}
		if amount != 500 {
			t.Errorf("refund = %d, want 500", amount)
		}
		if got := env.provider.Balance(p, "GNOT"); got != 10_000 {
			t.Errorf("player balance = %d, want 10000 back", got)
		}
		if _, err := in.ClaimRefund(context.Background(), p); !errors.Is(err, ErrNothingToClaim) {
			t.Fatalf("second refund: err = %v, want ErrNothingToClaim", err)
		}
	}

	amount, err := in.ClaimRefund(context.Background(), env.creator)
	if err != nil {
		t.Fatalf("creator refund: %v", err)
	}
	if amount != 10_000 {
		t.Errorf("creator refund = %d, want 10000", amount)
	}
	if got := env.provider.Balance(in.ID(), "GNOT"); got != 0 {
		t.Errorf("escrow retains %d after full refund", got)
	}
	if got := env.provider.Balance(env.creator, "GNOT"); got != 1_000_000 {
		t.Errorf("creator balance = %d, want fully restored", got)
	}
}

// ==========================================================================
// Registry
// ==========================================================================

func TestListPagesInCreationOrder(t *testing.T) {
	env := newTestEnv(t)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		cfg := env.baseConfig()
		cfg.PrizePool = 0
		in := env.create(t, cfg)
		ids = append(ids, in.ID())
	}

	page := env.registry.List(1, 2)
	if len(page) != 2 || page[0] != ids[1] || page[1] != ids[2] {
		t.Errorf("List(1,2) = %v, want %v", page, ids[1:3])
	}
	if got := env.registry.List(4, 10); len(got) != 1 || got[0] != ids[4] {
		t.Errorf("List(4,10) = %v, want [%s]", got, ids[4])
	}
	if got := env.registry.List(5, 1); got != nil {
		t.Errorf("List past end = %v, want nil", got)
	}
	if got := env.registry.List(-1, 3); got != nil {
		t.Errorf("List negative offset = %v, want nil", got)
	}
	if got := env.registry.List(0, 0); got != nil {
		t.Errorf("List zero count = %v, want nil", got)
	}
}

func TestGetUnknownInstance(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.registry.Get(uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if KindOf(err) != KindNotFound {
		t.Errorf("kind = %s, want not_found", KindOf(err))
	}
}

func TestSweepStartsAndCancelsDueTournaments(t *testing.T) {
	env := newTestEnv(t)

	healthy := env.create(t, env.baseConfig())
	env.join(t, healthy, 3)

	starved := env.create(t, env.baseConfig())
	env.join(t, starved, 1)

	notDue := env.baseConfig()
	notDue.RegistrationEnd = testEpoch.Add(6 * time.Hour)
	notDue.GameStart = testEpoch.Add(7 * time.Hour)
	notDue.GameEnd = testEpoch.Add(8 * time.Hour)
	pending := env.create(t, notDue)

	env.clock.Advance(time.Hour)
	res := env.registry.Sweep(context.Background())

	if res.Started != 1 || res.Canceled != 1 {
		t.Fatalf("sweep = %+v, want 1 started 1 canceled", res)
	}
	if healthy.Status() != StatusOngoing {
		t.Errorf("healthy status = %s, want ongoing", healthy.Status())
	}
	if starved.Status() != StatusCanceled {
		t.Errorf("starved status = %s, want canceled", starved.Status())
	}
	if pending.Status() != StatusCreated {
		t.Errorf("pending status = %s, want created", pending.Status())
	}
}

func TestSweepLeavesImmediateStartUntilCutoff(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.baseConfig()
	cfg.GameStart = cfg.RegistrationEnd
	cfg.GameEnd = cfg.RegistrationEnd.Add(2 * time.Hour)
	in := env.create(t, cfg)
	env.join(t, in, 2)

	// Past the nominal registration deadline: admission still open, so the
	// sweep leaves it alone.
	env.clock.Advance(90 * time.Minute)
	env.registry.Sweep(context.Background())
	if in.Status() != StatusCreated {
		t.Fatalf("status = %s, want created before cutoff", in.Status())
	}

	env.clock.Advance(2 * time.Hour)
	env.registry.Sweep(context.Background())
	if in.Status() != StatusOngoing {
		t.Fatalf("status = %s, want ongoing after cutoff", in.Status())
	}
}

// ==========================================================================
// Concurrency
// ==========================================================================

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.baseConfig()
	cfg.MaxPlayers = 4
	in := env.create(t, cfg)

	const contenders = 16
	players := make([]uuid.UUID, contenders)
	for i := range players {
		players[i] = uuid.New()
		env.provider.Credit(players[i], "GNOT", 10_000)
	}

	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = in.Join(context.Background(), players[i])
		}(i)
	}
	wg.Wait()

	var admitted int
	for i, err := range results {
		if err == nil {
			admitted++
			continue
		}
		if !errors.Is(err, ErrFull) {
			t.Errorf("player %d: err = %v, want ErrFull", i, err)
		}
		// Rejected joiners keep their funds.
		if got := env.provider.Balance(players[i], "GNOT"); got != 10_000 {
			t.Errorf("rejected player %d lost funds: %d", i, got)
		}
	}
	if admitted != 4 {
		t.Fatalf("admitted = %d, want 4", admitted)
	}
	if got := env.provider.Balance(in.ID(), "GNOT"); got != 10_000+4*500 {
		t.Errorf("escrow = %d, want %d", got, 10_000+4*500)
	}
}

// ==========================================================================
// Error taxonomy
// ==========================================================================

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ErrInvalidConfig, KindValidation},
		{ErrInvalidWinners, KindValidation},
		{ErrWrongState, KindState},
		{ErrFull, KindState},
		{ErrNotAParticipant, KindState},
		{ErrRegistrationClosed, KindTiming},
		{ErrRegistrationOpen, KindTiming},
		{ErrNotAuthorized, KindAuthorization},
		{ErrAlreadyJoined, KindDuplicate},
		{ErrAlreadySubmitted, KindDuplicate},
		{ErrNothingToClaim, KindDuplicate},
		{ErrFunds, KindFunds},
		{ErrNotFound, KindNotFound},
		{errors.New("mystery"), KindUnknown},
		{nil, KindUnknown},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
	// Wrapped errors keep their kind.
	wrapped := errors.Join(errors.New("join game"), ErrFull)
	if KindOf(wrapped) != KindState {
		t.Errorf("wrapped kind = %s, want state", KindOf(wrapped))
	}
}
