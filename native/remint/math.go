package remint

import "math/bits"

const (
	burnRatio   = 75
	remintRatio = 25
)

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// percentFloor computes floor(amount * pct / 100) with full 128-bit
// intermediate precision. The result errors only when the quotient itself
// cannot fit in 64 bits.
func percentFloor(amount, pct uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, pct)
	if hi >= 100 {
		return 0, ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, 100)
	return quo, nil
}

// splitBurn applies the 75/25 split to a burn amount. Both shares floor-round
// independently, so their sum may fall short of amount; the residual is
// neither burned nor pooled and stays with the ledger.
func splitBurn(amount uint64) (burnAmount, remintAmount uint64, err error) {
	if burnAmount, err = percentFloor(amount, burnRatio); err != nil {
		return 0, 0, err
	}
	if remintAmount, err = percentFloor(amount, remintRatio); err != nil {
		return 0, 0, err
	}
	return burnAmount, remintAmount, nil
}
