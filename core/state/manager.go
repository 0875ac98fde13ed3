package state

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"wayfind/native/remint"
	"wayfind/storage/trie"
)

// Record addressing: every record lives at keccak256(tag [|| identity]),
// giving a deterministic, collision-free derivation any party can recompute.
var (
	configTag     = []byte("wayfind/config")
	poolTag       = []byte("wayfind/pool")
	creditsPrefix = []byte("wayfind/credits/")
	creatorPrefix = []byte("wayfind/creator/")
	tokenPrefix   = []byte("token:")
	balancePrefix = []byte("balance:")
)

// Manager reads and writes protocol records on the state trie. It implements
// both the engine's State interface and its TokenLedger interface, so one
// trie commit covers record mutations and balance moves alike.
type Manager struct {
	trie *trie.Trie

	version uint64
	minter  [20]byte
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

// SetMinter configures the identity allowed to mint through this manager. It
// is derived from the configuration record, which acts as minting authority.
func (m *Manager) SetMinter(addr [20]byte) { m.minter = addr }

// ProtocolAddress derives the protocol's own identity from the configuration
// tag. The configuration record signs mints on behalf of the protocol, and
// this address is what token metadata stores as mint authority.
func ProtocolAddress() [20]byte {
	var out [20]byte
	copy(out[:], ethcrypto.Keccak256(configTag)[:20])
	return out
}

// PoolAddress derives the identity of the pool-holding balance from its
// fixed tag.
func PoolAddress() [20]byte {
	var out [20]byte
	copy(out[:], ethcrypto.Keccak256(poolTag)[:20])
	return out
}

func configKey() []byte {
	return ethcrypto.Keccak256(configTag)
}

func creditsKey(owner [20]byte) []byte {
	buf := make([]byte, 0, len(creditsPrefix)+20)
	buf = append(buf, creditsPrefix...)
	buf = append(buf, owner[:]...)
	return ethcrypto.Keccak256(buf)
}

func creatorKey(owner [20]byte) []byte {
	buf := make([]byte, 0, len(creatorPrefix)+20)
	buf = append(buf, creatorPrefix...)
	buf = append(buf, owner[:]...)
	return ethcrypto.Keccak256(buf)
}

// Commit persists all mutations since the last commit and returns the new
// state root.
func (m *Manager) Commit() ([]byte, error) {
	m.version++
	root, err := m.trie.Commit(m.version)
	if err != nil {
		return nil, err
	}
	return root.Bytes(), nil
}

// Rollback discards all mutations since the last commit.
func (m *Manager) Rollback() error {
	return m.trie.Reset(m.trie.Root())
}

// Root returns the last committed state root.
func (m *Manager) Root() []byte {
	root := m.trie.Root()
	return root.Bytes()
}

// --- protocol configuration ---

// storedConfig is the RLP shape of remint.Config. RLP has no signed integer
// support, so the epoch-start timestamp is widened to uint64 on disk.
type storedConfig struct {
	Authority     [20]byte
	TokenSymbol   string
	Pool          [20]byte
	RemintPool    uint64
	WeeklyCap     uint64
	CurrentEpoch  uint64
	EpochStart    uint64
	TotalBurned   uint64
	TotalReminted uint64
}

// ConfigGet loads the protocol configuration singleton.
func (m *Manager) ConfigGet() (*remint.Config, bool, error) {
	data, err := m.trie.Get(configKey())
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	stored := new(storedConfig)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, fmt.Errorf("state: decode config: %w", err)
	}
	return &remint.Config{
		Authority:     stored.Authority,
		TokenSymbol:   stored.TokenSymbol,
		Pool:          stored.Pool,
		RemintPool:    stored.RemintPool,
		WeeklyCap:     stored.WeeklyCap,
		CurrentEpoch:  stored.CurrentEpoch,
		EpochStart:    int64(stored.EpochStart),
		TotalBurned:   stored.TotalBurned,
		TotalReminted: stored.TotalReminted,
	}, true, nil
}

// ConfigPut stores the protocol configuration singleton.
func (m *Manager) ConfigPut(cfg *remint.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: nil config")
	}
	encoded, err := rlp.EncodeToBytes(&storedConfig{
		Authority:     cfg.Authority,
		TokenSymbol:   cfg.TokenSymbol,
		Pool:          cfg.Pool,
		RemintPool:    cfg.RemintPool,
		WeeklyCap:     cfg.WeeklyCap,
		CurrentEpoch:  cfg.CurrentEpoch,
		EpochStart:    uint64(cfg.EpochStart),
		TotalBurned:   cfg.TotalBurned,
		TotalReminted: cfg.TotalReminted,
	})
	if err != nil {
		return err
	}
	return m.trie.Update(configKey(), encoded)
}

// --- credit accounts ---

type storedCredits struct {
	Owner       [20]byte
	Credits     uint64
	TotalBurned uint64
}

// CreditAccountGet loads the credit account owned by the supplied identity.
func (m *Manager) CreditAccountGet(owner [20]byte) (*remint.CreditAccount, bool, error) {
	data, err := m.trie.Get(creditsKey(owner))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	stored := new(storedCredits)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, fmt.Errorf("state: decode credits: %w", err)
	}
	return &remint.CreditAccount{
		Owner:       stored.Owner,
		Credits:     stored.Credits,
		TotalBurned: stored.TotalBurned,
	}, true, nil
}

// CreditAccountPut stores the credit account keyed by its owner.
func (m *Manager) CreditAccountPut(account *remint.CreditAccount) error {
	if account == nil {
		return fmt.Errorf("state: nil credit account")
	}
	encoded, err := rlp.EncodeToBytes(&storedCredits{
		Owner:       account.Owner,
		Credits:     account.Credits,
		TotalBurned: account.TotalBurned,
	})
	if err != nil {
		return err
	}
	return m.trie.Update(creditsKey(account.Owner), encoded)
}

// --- creator profiles ---

type storedCreator struct {
	Owner           [20]byte
	Payout          [20]byte
	TotalViews      uint64
	WeeklyViews     uint64
	ReputationScore uint8
	Tier            uint8
	TotalEarned     uint64
	PendingRewards  uint64
	RegisteredAt    uint64
}

// CreatorProfileGet loads the creator profile owned by the supplied identity.
func (m *Manager) CreatorProfileGet(owner [20]byte) (*remint.CreatorProfile, bool, error) {
	data, err := m.trie.Get(creatorKey(owner))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	stored := new(storedCreator)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, fmt.Errorf("state: decode creator: %w", err)
	}
	return &remint.CreatorProfile{
		Owner:           stored.Owner,
		Payout:          stored.Payout,
		TotalViews:      stored.TotalViews,
		WeeklyViews:     stored.WeeklyViews,
		ReputationScore: stored.ReputationScore,
		Tier:            remint.Tier(stored.Tier),
		TotalEarned:     stored.TotalEarned,
		PendingRewards:  stored.PendingRewards,
		RegisteredAt:    int64(stored.RegisteredAt),
	}, true, nil
}

// CreatorProfilePut stores the creator profile keyed by its owner.
func (m *Manager) CreatorProfilePut(profile *remint.CreatorProfile) error {
	if profile == nil {
		return fmt.Errorf("state: nil creator profile")
	}
	encoded, err := rlp.EncodeToBytes(&storedCreator{
		Owner:           profile.Owner,
		Payout:          profile.Payout,
		TotalViews:      profile.TotalViews,
		WeeklyViews:     profile.WeeklyViews,
		ReputationScore: profile.ReputationScore,
		Tier:            uint8(profile.Tier),
		TotalEarned:     profile.TotalEarned,
		PendingRewards:  profile.PendingRewards,
		RegisteredAt:    uint64(profile.RegisteredAt),
	})
	if err != nil {
		return err
	}
	return m.trie.Update(creatorKey(profile.Owner), encoded)
}
