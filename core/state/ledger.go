package state

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	// ErrTokenNotRegistered is returned when a balance operation references an
	// unknown token symbol.
	ErrTokenNotRegistered = errors.New("state: token not registered")
	// ErrInsufficientBalance is returned when a burn or transfer exceeds the
	// source balance.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	// ErrMintUnauthorized is returned when a mint is attempted by an identity
	// other than the token's mint authority.
	ErrMintUnauthorized = errors.New("state: mint authority mismatch")
	// ErrBalanceOverflow is returned when a credit would wrap a balance or the
	// total supply past the uint64 range.
	ErrBalanceOverflow = errors.New("state: balance overflow")
)

func addChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrBalanceOverflow
	}
	return sum, nil
}

func subChecked(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrInsufficientBalance
	}
	return diff, nil
}

// TokenMetadata describes a registered fungible token.
type TokenMetadata struct {
	Symbol        string
	Name          string
	Decimals      uint8
	MintAuthority [20]byte
	TotalSupply   uint64
}

func tokenMetadataKey(symbol string) []byte {
	buf := make([]byte, 0, len(tokenPrefix)+len(symbol))
	buf = append(buf, tokenPrefix...)
	buf = append(buf, symbol...)
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr [20]byte, symbol string) []byte {
	buf := make([]byte, 0, len(balancePrefix)+len(symbol)+1+20)
	buf = append(buf, balancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, ':')
	buf = append(buf, addr[:]...)
	return ethcrypto.Keccak256(buf)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (m *Manager) loadTokenMetadata(symbol string) (*TokenMetadata, error) {
	data, err := m.trie.Get(tokenMetadataKey(symbol))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	meta := new(TokenMetadata)
	if err := rlp.DecodeBytes(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (m *Manager) writeTokenMetadata(meta *TokenMetadata) error {
	encoded, err := rlp.EncodeToBytes(meta)
	if err != nil {
		return err
	}
	return m.trie.Update(tokenMetadataKey(meta.Symbol), encoded)
}

// RegisterToken stores metadata for a fungible token. Duplicate registration
// fails.
func (m *Manager) RegisterToken(symbol, name string, decimals uint8) error {
	normalized := normalizeSymbol(symbol)
	if normalized == "" {
		return fmt.Errorf("state: token symbol must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("state: token %s: name must not be empty", normalized)
	}
	if existing, err := m.loadTokenMetadata(normalized); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("state: token %s already registered", normalized)
	}
	return m.writeTokenMetadata(&TokenMetadata{
		Symbol:   normalized,
		Name:     name,
		Decimals: decimals,
	})
}

// SetTokenMintAuthority configures the mint authority for the given token.
func (m *Manager) SetTokenMintAuthority(symbol string, authority [20]byte) error {
	meta, err := m.loadTokenMetadata(normalizeSymbol(symbol))
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrTokenNotRegistered
	}
	meta.MintAuthority = authority
	return m.writeTokenMetadata(meta)
}

// Token retrieves metadata for a registered token.
func (m *Manager) Token(symbol string) (*TokenMetadata, error) {
	meta, err := m.loadTokenMetadata(normalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrTokenNotRegistered
	}
	return meta, nil
}

// Balance retrieves a token balance for the provided account.
func (m *Manager) Balance(addr [20]byte, symbol string) (uint64, error) {
	data, err := m.trie.Get(balanceKey(addr, normalizeSymbol(symbol)))
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	var amount uint64
	if err := rlp.DecodeBytes(data, &amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// SetBalance stores an account balance for the provided token, adjusting the
// tracked total supply by the delta. Intended for genesis funding and tests;
// regular flow moves balances through Burn, Transfer and MintTo.
func (m *Manager) SetBalance(addr [20]byte, symbol string, amount uint64) error {
	normalized := normalizeSymbol(symbol)
	meta, err := m.loadTokenMetadata(normalized)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrTokenNotRegistered
	}
	previous, err := m.Balance(addr, normalized)
	if err != nil {
		return err
	}
	remaining, err := subChecked(meta.TotalSupply, previous)
	if err != nil {
		return err
	}
	if meta.TotalSupply, err = addChecked(remaining, amount); err != nil {
		return err
	}
	if err := m.writeTokenMetadata(meta); err != nil {
		return err
	}
	return m.storeBalance(addr, normalized, amount)
}

// Burn destroys amount units held by from, shrinking total supply.
func (m *Manager) Burn(symbol string, from [20]byte, amount uint64) error {
	normalized := normalizeSymbol(symbol)
	meta, err := m.loadTokenMetadata(normalized)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrTokenNotRegistered
	}
	balance, err := m.Balance(from, normalized)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientBalance
	}
	if err := m.storeBalance(from, normalized, balance-amount); err != nil {
		return err
	}
	if meta.TotalSupply < amount {
		return ErrInsufficientBalance
	}
	meta.TotalSupply -= amount
	return m.writeTokenMetadata(meta)
}

// Transfer moves amount units from one balance to another, preserving total
// supply.
func (m *Manager) Transfer(symbol string, from [20]byte, to [20]byte, amount uint64) error {
	normalized := normalizeSymbol(symbol)
	if meta, err := m.loadTokenMetadata(normalized); err != nil {
		return err
	} else if meta == nil {
		return ErrTokenNotRegistered
	}
	fromBalance, err := m.Balance(from, normalized)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	toBalance, err := m.Balance(to, normalized)
	if err != nil {
		return err
	}
	credited, err := addChecked(toBalance, amount)
	if err != nil {
		return err
	}
	if err := m.storeBalance(from, normalized, fromBalance-amount); err != nil {
		return err
	}
	return m.storeBalance(to, normalized, credited)
}

// MintTo creates amount new units on the target balance. The manager mints on
// behalf of the protocol identity configured via SetMinter, which must match
// the token's mint authority.
func (m *Manager) MintTo(symbol string, to [20]byte, amount uint64) error {
	normalized := normalizeSymbol(symbol)
	meta, err := m.loadTokenMetadata(normalized)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrTokenNotRegistered
	}
	if meta.MintAuthority != m.minter {
		return ErrMintUnauthorized
	}
	balance, err := m.Balance(to, normalized)
	if err != nil {
		return err
	}
	credited, err := addChecked(balance, amount)
	if err != nil {
		return err
	}
	if meta.TotalSupply, err = addChecked(meta.TotalSupply, amount); err != nil {
		return err
	}
	if err := m.storeBalance(to, normalized, credited); err != nil {
		return err
	}
	return m.writeTokenMetadata(meta)
}

func (m *Manager) storeBalance(addr [20]byte, symbol string, amount uint64) error {
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.trie.Update(balanceKey(addr, symbol), encoded)
}
