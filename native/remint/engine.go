package remint

import (
	"time"

	"wayfind/core/events"
	"wayfind/core/types"
)

// epochSeconds is the nominal accounting window bounding weekly emissions.
// Rollover is lazy: it is evaluated only inside DistributeReward, so an idle
// epoch extends past the nominal week until the next distribution lands.
const epochSeconds int64 = 7 * 24 * 60 * 60

const initialReputation = 50

// State describes the record persistence the engine needs from its host.
// Every Get returns a defensive copy; Puts replace the stored record.
type State interface {
	ConfigGet() (*Config, bool, error)
	ConfigPut(cfg *Config) error
	CreditAccountGet(owner [20]byte) (*CreditAccount, bool, error)
	CreditAccountPut(account *CreditAccount) error
	CreatorProfileGet(owner [20]byte) (*CreatorProfile, bool, error)
	CreatorProfilePut(profile *CreatorProfile) error
}

// TokenLedger is the external fungible-token collaborator. Burn destroys
// units, Transfer preserves supply, MintTo creates units under the protocol's
// minting authority. Implementations enforce balance sufficiency; the engine
// only sequences the calls.
type TokenLedger interface {
	Burn(symbol string, from [20]byte, amount uint64) error
	Transfer(symbol string, from [20]byte, to [20]byte, amount uint64) error
	MintTo(symbol string, to [20]byte, amount uint64) error
}

// Engine wires the burn-and-remint economy with persistence, the token ledger
// and event emission. Operations are not internally concurrent; the host
// serializes writers and commits or rolls back each operation as a unit.
type Engine struct {
	state   State
	ledger  TokenLedger
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a remint engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetLedger configures the token ledger invoked by burn, transfer and mint.
func (e *Engine) SetLedger(ledger TokenLedger) { e.ledger = ledger }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) config() (*Config, error) {
	cfg, ok, err := e.state.ConfigGet()
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

// requireAuthority is the single authorization predicate gating the
// privileged operations.
func requireAuthority(cfg *Config, caller [20]byte) error {
	if cfg.Authority != caller {
		return ErrUnauthorized
	}
	return nil
}

// Initialize establishes the protocol configuration singleton. The caller
// becomes the global authority; pool identifies the balance that holds
// recycled tokens awaiting distribution.
func (e *Engine) Initialize(authority [20]byte, tokenSymbol string, pool [20]byte, weeklyCap uint64) (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, ok, err := e.state.ConfigGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}
	cfg := &Config{
		Authority:   authority,
		TokenSymbol: tokenSymbol,
		Pool:        pool,
		WeeklyCap:   weeklyCap,
		EpochStart:  e.now(),
	}
	if err := e.state.ConfigPut(cfg); err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// BurnForCredits converts spent tokens into non-transferable credits. 75% of
// the amount is destroyed, 25% moves to the pool-holding balance, and the
// user is credited 1:1 against the original amount. Both splits floor-round,
// so up to one token of dust per share stays with the ledger untouched.
func (e *Engine) BurnForCredits(user [20]byte, amount uint64) (*BurnReceipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}

	burnAmount, remintAmount, err := splitBurn(amount)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.Burn(cfg.TokenSymbol, user, burnAmount); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(cfg.TokenSymbol, user, cfg.Pool, remintAmount); err != nil {
		return nil, err
	}

	if cfg.RemintPool, err = checkedAdd(cfg.RemintPool, remintAmount); err != nil {
		return nil, err
	}
	if cfg.TotalBurned, err = checkedAdd(cfg.TotalBurned, burnAmount); err != nil {
		return nil, err
	}

	account, ok, err := e.state.CreditAccountGet(user)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		account = &CreditAccount{Owner: user}
	}
	if account.Credits, err = checkedAdd(account.Credits, amount); err != nil {
		return nil, err
	}
	if account.TotalBurned, err = checkedAdd(account.TotalBurned, amount); err != nil {
		return nil, err
	}

	if err := e.state.ConfigPut(cfg); err != nil {
		return nil, err
	}
	if err := e.state.CreditAccountPut(account); err != nil {
		return nil, err
	}

	receipt := &BurnReceipt{
		User:         user,
		Amount:       amount,
		BurnAmount:   burnAmount,
		RemintAmount: remintAmount,
		Credits:      amount,
		Timestamp:    e.now(),
	}
	e.emit(BurnedEvent(receipt))
	return receipt, nil
}

// RegisterCreator creates a creator profile keyed by the registering identity.
// Registration happens exactly once per identity.
func (e *Engine) RegisterCreator(user [20]byte, payout [20]byte) (*CreatorProfile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, ok, err := e.state.CreatorProfileGet(user); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrCreatorExists
	}
	profile := &CreatorProfile{
		Owner:           user,
		Payout:          payout,
		ReputationScore: initialReputation,
		Tier:            TierSilver,
		RegisteredAt:    e.now(),
	}
	if err := e.state.CreatorProfilePut(profile); err != nil {
		return nil, err
	}
	e.emit(CreatorRegisteredEvent(profile))
	return profile.Clone(), nil
}

// RecordViews adds reported views to a creator's lifetime and weekly
// counters. The weekly counter resets only during distribution, never here.
func (e *Engine) RecordViews(caller [20]byte, creator [20]byte, views uint64) (*CreatorProfile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if err := requireAuthority(cfg, caller); err != nil {
		return nil, err
	}
	profile, ok, err := e.state.CreatorProfileGet(creator)
	if err != nil {
		return nil, err
	}
	if !ok || profile == nil {
		return nil, ErrCreatorNotFound
	}
	if profile.TotalViews, err = checkedAdd(profile.TotalViews, views); err != nil {
		return nil, err
	}
	if profile.WeeklyViews, err = checkedAdd(profile.WeeklyViews, views); err != nil {
		return nil, err
	}
	if err := e.state.CreatorProfilePut(profile); err != nil {
		return nil, err
	}
	return profile.Clone(), nil
}

// UpdateReputation sets a creator's reputation score and tier to the values
// computed by the trusted backend. No derivation happens here.
func (e *Engine) UpdateReputation(caller [20]byte, creator [20]byte, score uint8, tier Tier) (*CreatorProfile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if err := requireAuthority(cfg, caller); err != nil {
		return nil, err
	}
	if score > 100 {
		return nil, ErrInvalidScore
	}
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	profile, ok, err := e.state.CreatorProfileGet(creator)
	if err != nil {
		return nil, err
	}
	if !ok || profile == nil {
		return nil, ErrCreatorNotFound
	}
	profile.ReputationScore = score
	profile.Tier = tier
	if err := e.state.CreatorProfilePut(profile); err != nil {
		return nil, err
	}
	return profile.Clone(), nil
}

// DistributeReward accrues a tier-weighted reward to a creator, bounded by
// the weekly cap of the current epoch.
//
// The pool-sufficiency check runs against the pre-multiplier base amount, as
// shipped; when the multiplier exceeds 100% the later checked subtraction of
// the final reward is what actually protects the pool and surfaces
// ErrUnderflow. Tightening the upfront check would change observable
// behaviour, so both stages are kept.
func (e *Engine) DistributeReward(caller [20]byte, creator [20]byte, baseReward uint64) (*Distribution, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if err := requireAuthority(cfg, caller); err != nil {
		return nil, err
	}
	profile, ok, err := e.state.CreatorProfileGet(creator)
	if err != nil {
		return nil, err
	}
	if !ok || profile == nil {
		return nil, ErrCreatorNotFound
	}

	if cfg.RemintPool < baseReward {
		return nil, ErrInsufficientPool
	}

	multiplier := profile.Tier.Multiplier()
	finalReward, err := percentFloor(baseReward, multiplier)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if now-cfg.EpochStart >= epochSeconds {
		cfg.CurrentEpoch++
		cfg.EpochStart = now
		cfg.TotalReminted = 0
	}

	remintedAfter, err := checkedAdd(cfg.TotalReminted, finalReward)
	if err != nil {
		return nil, err
	}
	if remintedAfter > cfg.WeeklyCap {
		return nil, ErrWeeklyCapExceeded
	}

	if profile.PendingRewards, err = checkedAdd(profile.PendingRewards, finalReward); err != nil {
		return nil, err
	}
	profile.WeeklyViews = 0
	if cfg.RemintPool, err = checkedSub(cfg.RemintPool, finalReward); err != nil {
		return nil, err
	}
	cfg.TotalReminted = remintedAfter

	if err := e.state.CreatorProfilePut(profile); err != nil {
		return nil, err
	}
	if err := e.state.ConfigPut(cfg); err != nil {
		return nil, err
	}

	dist := &Distribution{
		Creator:     creator,
		BaseReward:  baseReward,
		Multiplier:  multiplier,
		FinalReward: finalReward,
		Epoch:       cfg.CurrentEpoch,
		Timestamp:   now,
	}
	e.emit(RewardDistributedEvent(dist))
	return dist, nil
}

// ClaimRewards mints a creator's pending rewards to their payout balance and
// clears the pending amount. The profile is addressed by the claiming
// identity, so only that identity's operation can reach it.
func (e *Engine) ClaimRewards(creator [20]byte) (uint64, *CreatorProfile, error) {
	if e == nil || e.state == nil {
		return 0, nil, errNilState
	}
	if e.ledger == nil {
		return 0, nil, errNilLedger
	}
	cfg, err := e.config()
	if err != nil {
		return 0, nil, err
	}
	profile, ok, err := e.state.CreatorProfileGet(creator)
	if err != nil {
		return 0, nil, err
	}
	if !ok || profile == nil {
		return 0, nil, ErrCreatorNotFound
	}
	amount := profile.PendingRewards
	if amount == 0 {
		return 0, nil, ErrNothingToClaim
	}

	if err := e.ledger.MintTo(cfg.TokenSymbol, profile.Payout, amount); err != nil {
		return 0, nil, err
	}

	if profile.TotalEarned, err = checkedAdd(profile.TotalEarned, amount); err != nil {
		return 0, nil, err
	}
	profile.PendingRewards = 0
	if err := e.state.CreatorProfilePut(profile); err != nil {
		return 0, nil, err
	}

	e.emit(RewardClaimedEvent(creator, amount, e.now()))
	return amount, profile.Clone(), nil
}

// Config returns the protocol configuration without mutating state.
func (e *Engine) Config() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.config()
}

// Credits returns the credit account for the supplied user, or a zeroed
// account when the user has never burned.
func (e *Engine) Credits(user [20]byte) (*CreditAccount, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	account, ok, err := e.state.CreditAccountGet(user)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		return &CreditAccount{Owner: user}, nil
	}
	return account.Clone(), nil
}

// Creator returns the profile for the supplied creator.
func (e *Engine) Creator(creator [20]byte) (*CreatorProfile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	profile, ok, err := e.state.CreatorProfileGet(creator)
	if err != nil {
		return nil, err
	}
	if !ok || profile == nil {
		return nil, ErrCreatorNotFound
	}
	return profile.Clone(), nil
}
