package remint

import (
	"fmt"

	"wayfind/core/events"
	"wayfind/core/types"
	"wayfind/crypto"
)

const (
	// EventTypeBurned is emitted when a user burns tokens for credits.
	EventTypeBurned = "remint.burned"
	// EventTypeCreatorRegistered is emitted when a creator profile is created.
	EventTypeCreatorRegistered = "remint.creator.registered"
	// EventTypeRewardDistributed is emitted when a reward accrues to a creator.
	EventTypeRewardDistributed = "remint.reward.distributed"
	// EventTypeRewardClaimed is emitted when a creator claims pending rewards.
	EventTypeRewardClaimed = "remint.reward.claimed"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func bech32Addr(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.WayPrefix, addr[:]).String()
}

func formatUint(v uint64) string {
	return fmt.Sprintf("%d", v)
}

func formatInt(v int64) string {
	return fmt.Sprintf("%d", v)
}

// BurnedEvent returns the structured payload describing a completed burn.
func BurnedEvent(receipt *BurnReceipt) *types.Event {
	return &types.Event{
		Type: EventTypeBurned,
		Attributes: map[string]string{
			"user":         bech32Addr(receipt.User),
			"amount":       formatUint(receipt.Amount),
			"burnAmount":   formatUint(receipt.BurnAmount),
			"remintAmount": formatUint(receipt.RemintAmount),
			"credits":      formatUint(receipt.Credits),
			"timestamp":    formatInt(receipt.Timestamp),
		},
	}
}

// CreatorRegisteredEvent returns the structured payload for a registration.
func CreatorRegisteredEvent(profile *CreatorProfile) *types.Event {
	return &types.Event{
		Type: EventTypeCreatorRegistered,
		Attributes: map[string]string{
			"creator":   bech32Addr(profile.Owner),
			"payout":    bech32Addr(profile.Payout),
			"timestamp": formatInt(profile.RegisteredAt),
		},
	}
}

// RewardDistributedEvent returns the structured payload for a distribution.
func RewardDistributedEvent(dist *Distribution) *types.Event {
	return &types.Event{
		Type: EventTypeRewardDistributed,
		Attributes: map[string]string{
			"creator":     bech32Addr(dist.Creator),
			"baseReward":  formatUint(dist.BaseReward),
			"multiplier":  formatUint(dist.Multiplier),
			"finalReward": formatUint(dist.FinalReward),
			"epoch":       formatUint(dist.Epoch),
			"timestamp":   formatInt(dist.Timestamp),
		},
	}
}

// RewardClaimedEvent returns the structured payload for a claim.
func RewardClaimedEvent(creator [20]byte, amount uint64, timestamp int64) *types.Event {
	return &types.Event{
		Type: EventTypeRewardClaimed,
		Attributes: map[string]string{
			"creator":   bech32Addr(creator),
			"amount":    formatUint(amount),
			"timestamp": formatInt(timestamp),
		},
	}
}
