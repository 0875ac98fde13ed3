package remint

import (
	"errors"
	"math"
	"testing"
)

func TestCheckedAdd(t *testing.T) {
	if got, err := checkedAdd(1, 2); err != nil || got != 3 {
		t.Fatalf("checkedAdd(1, 2) = %d, %v", got, err)
	}
	if got, err := checkedAdd(math.MaxUint64, 0); err != nil || got != math.MaxUint64 {
		t.Fatalf("checkedAdd(max, 0) = %d, %v", got, err)
	}
	if _, err := checkedAdd(math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow: %v", err)
	}
}

func TestCheckedSub(t *testing.T) {
	if got, err := checkedSub(5, 3); err != nil || got != 2 {
		t.Fatalf("checkedSub(5, 3) = %d, %v", got, err)
	}
	if got, err := checkedSub(5, 5); err != nil || got != 0 {
		t.Fatalf("checkedSub(5, 5) = %d, %v", got, err)
	}
	if _, err := checkedSub(3, 5); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow: %v", err)
	}
}

func TestPercentFloor(t *testing.T) {
	cases := []struct {
		amount uint64
		pct    uint64
		want   uint64
	}{
		{0, 75, 0},
		{1, 75, 0},
		{4, 25, 1},
		{100, 75, 75},
		{101, 75, 75},
		{1_000, 150, 1_500},
		{3, 50, 1},
		{math.MaxUint64, 100, math.MaxUint64},
		{math.MaxUint64 / 2, 200, math.MaxUint64 - 1},
	}
	for _, tc := range cases {
		got, err := percentFloor(tc.amount, tc.pct)
		if err != nil {
			t.Fatalf("percentFloor(%d, %d) failed: %v", tc.amount, tc.pct, err)
		}
		if got != tc.want {
			t.Fatalf("percentFloor(%d, %d) = %d, want %d", tc.amount, tc.pct, got, tc.want)
		}
	}
	if _, err := percentFloor(math.MaxUint64, 250); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for an unrepresentable quotient: %v", err)
	}
}

func TestSplitBurn(t *testing.T) {
	burn, remint, err := splitBurn(1_000)
	if err != nil {
		t.Fatalf("splitBurn failed: %v", err)
	}
	if burn != 750 || remint != 250 {
		t.Fatalf("splitBurn(1000) = %d, %d", burn, remint)
	}

	// Both shares floor independently; the residual token goes nowhere.
	burn, remint, err = splitBurn(7)
	if err != nil {
		t.Fatalf("splitBurn failed: %v", err)
	}
	if burn != 5 || remint != 1 {
		t.Fatalf("splitBurn(7) = %d, %d", burn, remint)
	}
	if burn+remint >= 7 {
		t.Fatal("expected floor rounding to leave a residual")
	}
}

func TestTierMultipliers(t *testing.T) {
	cases := map[Tier]uint64{
		TierBronze:   50,
		TierSilver:   100,
		TierGold:     150,
		TierPlatinum: 200,
		TierDiamond:  250,
	}
	for tier, want := range cases {
		if got := tier.Multiplier(); got != want {
			t.Fatalf("%s multiplier = %d, want %d", tier, got, want)
		}
	}
	if Tier(99).Valid() {
		t.Fatal("unknown tier should be invalid")
	}
}

func TestParseTier(t *testing.T) {
	for _, name := range []string{"gold", "Gold", " GOLD "} {
		tier, err := ParseTier(name)
		if err != nil {
			t.Fatalf("ParseTier(%q) failed: %v", name, err)
		}
		if tier != TierGold {
			t.Fatalf("ParseTier(%q) = %v", name, tier)
		}
	}
	if _, err := ParseTier("mythril"); err == nil {
		t.Fatal("expected unknown tier name to fail")
	}
}
