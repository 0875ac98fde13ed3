package remint

import "errors"

var (
	// ErrInvalidAmount rejects zero-valued burns.
	ErrInvalidAmount = errors.New("remint: amount must be positive")
	// ErrUnauthorized rejects privileged operations from callers other than
	// the protocol authority.
	ErrUnauthorized = errors.New("remint: caller is not the protocol authority")
	// ErrInvalidScore rejects reputation scores above 100.
	ErrInvalidScore = errors.New("remint: reputation score exceeds 100")
	// ErrInsufficientPool rejects distributions whose base reward exceeds the
	// remint pool.
	ErrInsufficientPool = errors.New("remint: insufficient remint pool")
	// ErrWeeklyCapExceeded rejects distributions that would push the epoch
	// total past the weekly cap.
	ErrWeeklyCapExceeded = errors.New("remint: weekly remint cap exceeded")
	// ErrNothingToClaim rejects claims with no pending rewards.
	ErrNothingToClaim = errors.New("remint: nothing to claim")
	// ErrOverflow aborts any operation whose checked addition would wrap.
	ErrOverflow = errors.New("remint: arithmetic overflow")
	// ErrUnderflow aborts any operation whose checked subtraction would wrap.
	ErrUnderflow = errors.New("remint: arithmetic underflow")

	// ErrNotInitialized is returned when an operation runs before Initialize.
	ErrNotInitialized = errors.New("remint: protocol not initialized")
	// ErrAlreadyInitialized is returned on a second Initialize.
	ErrAlreadyInitialized = errors.New("remint: protocol already initialized")
	// ErrCreatorExists rejects duplicate creator registrations.
	ErrCreatorExists = errors.New("remint: creator already registered")
	// ErrCreatorNotFound is returned when the addressed profile does not exist.
	ErrCreatorNotFound = errors.New("remint: creator not found")
	// ErrInvalidTier rejects tiers outside the multiplier schedule.
	ErrInvalidTier = errors.New("remint: unknown creator tier")

	errNilState  = errors.New("remint: state not configured")
	errNilLedger = errors.New("remint: token ledger not configured")
)
