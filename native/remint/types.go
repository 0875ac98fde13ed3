package remint

import (
	"fmt"
	"strings"
)

// Tier buckets creators by externally computed standing. The tier decides the
// reward multiplier applied during distribution.
type Tier uint8

const (
	TierBronze Tier = iota
	TierSilver
	TierGold
	TierPlatinum
	TierDiamond
)

var tierNames = map[Tier]string{
	TierBronze:   "Bronze",
	TierSilver:   "Silver",
	TierGold:     "Gold",
	TierPlatinum: "Platinum",
	TierDiamond:  "Diamond",
}

// tierMultipliers maps each tier to its integer-percent reward multiplier.
// The schedule is data, not control flow, so it can be retuned without
// touching the distribution path.
var tierMultipliers = map[Tier]uint64{
	TierBronze:   50,
	TierSilver:   100,
	TierGold:     150,
	TierPlatinum: 200,
	TierDiamond:  250,
}

// Valid reports whether the tier is part of the known schedule.
func (t Tier) Valid() bool {
	_, ok := tierMultipliers[t]
	return ok
}

// Multiplier returns the integer-percent reward multiplier for the tier.
func (t Tier) Multiplier() uint64 {
	return tierMultipliers[t]
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// ParseTier converts a case-insensitive tier name into its Tier value.
func ParseTier(s string) (Tier, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for tier, name := range tierNames {
		if strings.ToLower(name) == normalized {
			return tier, nil
		}
	}
	return 0, fmt.Errorf("remint: unknown tier %q", s)
}

// Config is the protocol configuration singleton. It is created once by
// Initialize and mutated only by burn and distribution operations.
type Config struct {
	Authority     [20]byte `json:"authority"`
	TokenSymbol   string   `json:"tokenSymbol"`
	Pool          [20]byte `json:"pool"`
	RemintPool    uint64   `json:"remintPool"`
	WeeklyCap     uint64   `json:"weeklyCap"`
	CurrentEpoch  uint64   `json:"currentEpoch"`
	EpochStart    int64    `json:"epochStart"`
	TotalBurned   uint64   `json:"totalBurned"`
	TotalReminted uint64   `json:"totalReminted"`
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// CreditAccount tracks the non-transferable credits a user has purchased by
// burning tokens. Credits only ever increase; there is no redemption path.
type CreditAccount struct {
	Owner       [20]byte `json:"owner"`
	Credits     uint64   `json:"credits"`
	TotalBurned uint64   `json:"totalBurned"`
}

// Clone returns a copy of the credit account.
func (a *CreditAccount) Clone() *CreditAccount {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// CreatorProfile tracks engagement, reputation and reward balances for a
// registered creator.
type CreatorProfile struct {
	Owner           [20]byte `json:"owner"`
	Payout          [20]byte `json:"payout"`
	TotalViews      uint64   `json:"totalViews"`
	WeeklyViews     uint64   `json:"weeklyViews"`
	ReputationScore uint8    `json:"reputationScore"`
	Tier            Tier     `json:"tier"`
	TotalEarned     uint64   `json:"totalEarned"`
	PendingRewards  uint64   `json:"pendingRewards"`
	RegisteredAt    int64    `json:"registeredAt"`
}

// Clone returns a copy of the creator profile.
func (p *CreatorProfile) Clone() *CreatorProfile {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// BurnReceipt summarises a completed burn-for-credits operation.
type BurnReceipt struct {
	User         [20]byte `json:"user"`
	Amount       uint64   `json:"amount"`
	BurnAmount   uint64   `json:"burnAmount"`
	RemintAmount uint64   `json:"remintAmount"`
	Credits      uint64   `json:"credits"`
	Timestamp    int64    `json:"timestamp"`
}

// Distribution summarises a completed reward distribution.
type Distribution struct {
	Creator     [20]byte `json:"creator"`
	BaseReward  uint64   `json:"baseReward"`
	Multiplier  uint64   `json:"multiplier"`
	FinalReward uint64   `json:"finalReward"`
	Epoch       uint64   `json:"epoch"`
	Timestamp   int64    `json:"timestamp"`
}
