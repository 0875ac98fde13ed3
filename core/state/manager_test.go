package state

import (
	"errors"
	"math"
	"testing"

	"wayfind/native/remint"
	"wayfind/storage/trie"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	backend := trie.NewMemoryBackend()
	tr, err := trie.NewTrie(backend, nil)
	if err != nil {
		t.Fatalf("failed to open trie: %v", err)
	}
	return NewManager(tr)
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestConfigRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	if _, ok, err := manager.ConfigGet(); err != nil || ok {
		t.Fatalf("expected no config on a fresh trie: ok=%v err=%v", ok, err)
	}

	cfg := &remint.Config{
		Authority:     addr(0xA0),
		TokenSymbol:   "WAY",
		Pool:          PoolAddress(),
		RemintPool:    250,
		WeeklyCap:     10_000,
		CurrentEpoch:  3,
		EpochStart:    1_700_000_000,
		TotalBurned:   750,
		TotalReminted: 500,
	}
	if err := manager.ConfigPut(cfg); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	loaded, ok, err := manager.ConfigGet()
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if *loaded != *cfg {
		t.Fatalf("config did not round-trip: got %+v want %+v", loaded, cfg)
	}
}

func TestCreditAccountRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	owner := addr(0x01)

	if _, ok, err := manager.CreditAccountGet(owner); err != nil || ok {
		t.Fatalf("expected no account: ok=%v err=%v", ok, err)
	}

	account := &remint.CreditAccount{Owner: owner, Credits: 1_000, TotalBurned: 1_000}
	if err := manager.CreditAccountPut(account); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	loaded, ok, err := manager.CreditAccountGet(owner)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if *loaded != *account {
		t.Fatalf("account did not round-trip: got %+v", loaded)
	}

	// A different identity resolves to a different record.
	if _, ok, _ := manager.CreditAccountGet(addr(0x02)); ok {
		t.Fatal("unexpected account under a different identity")
	}
}

func TestCreatorProfileRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	owner := addr(0x10)

	profile := &remint.CreatorProfile{
		Owner:           owner,
		Payout:          addr(0x11),
		TotalViews:      900,
		WeeklyViews:     100,
		ReputationScore: 85,
		Tier:            remint.TierPlatinum,
		TotalEarned:     5_000,
		PendingRewards:  250,
		RegisteredAt:    1_700_000_000,
	}
	if err := manager.CreatorProfilePut(profile); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	loaded, ok, err := manager.CreatorProfileGet(owner)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if *loaded != *profile {
		t.Fatalf("profile did not round-trip: got %+v", loaded)
	}
}

func TestTokenRegistration(t *testing.T) {
	manager := newTestManager(t)

	if _, err := manager.Token("WAY"); !errors.Is(err, ErrTokenNotRegistered) {
		t.Fatalf("expected ErrTokenNotRegistered: %v", err)
	}
	if err := manager.RegisterToken("way", "Wayfind Token", 6); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := manager.RegisterToken("WAY", "Wayfind Token", 6); err == nil {
		t.Fatal("duplicate registration should fail")
	}

	meta, err := manager.Token("WAY")
	if err != nil {
		t.Fatalf("token lookup failed: %v", err)
	}
	if meta.Symbol != "WAY" || meta.Decimals != 6 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	if err := manager.SetTokenMintAuthority("WAY", ProtocolAddress()); err != nil {
		t.Fatalf("set mint authority failed: %v", err)
	}
	meta, _ = manager.Token("WAY")
	if meta.MintAuthority != ProtocolAddress() {
		t.Fatal("mint authority not persisted")
	}
}

func TestLedgerBurnTransferMint(t *testing.T) {
	manager := newTestManager(t)
	manager.SetMinter(ProtocolAddress())
	if err := manager.RegisterToken("WAY", "Wayfind Token", 6); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := manager.SetTokenMintAuthority("WAY", ProtocolAddress()); err != nil {
		t.Fatalf("set mint authority failed: %v", err)
	}

	user := addr(0x01)
	pool := PoolAddress()
	if err := manager.SetBalance(user, "WAY", 1_000); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}
	meta, _ := manager.Token("WAY")
	if meta.TotalSupply != 1_000 {
		t.Fatalf("seeding did not adjust supply: %d", meta.TotalSupply)
	}

	if err := manager.Burn("WAY", user, 750); err != nil {
		t.Fatalf("burn failed: %v", err)
	}
	if err := manager.Transfer("WAY", user, pool, 250); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if balance, _ := manager.Balance(user, "WAY"); balance != 0 {
		t.Fatalf("unexpected user balance: %d", balance)
	}
	if balance, _ := manager.Balance(pool, "WAY"); balance != 250 {
		t.Fatalf("unexpected pool balance: %d", balance)
	}
	meta, _ = manager.Token("WAY")
	if meta.TotalSupply != 250 {
		t.Fatalf("burn did not shrink supply: %d", meta.TotalSupply)
	}

	if err := manager.MintTo("WAY", user, 100); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if balance, _ := manager.Balance(user, "WAY"); balance != 100 {
		t.Fatalf("mint did not credit the balance: %d", balance)
	}
	meta, _ = manager.Token("WAY")
	if meta.TotalSupply != 350 {
		t.Fatalf("mint did not grow supply: %d", meta.TotalSupply)
	}
}

func TestLedgerRejectsOverdraw(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.RegisterToken("WAY", "Wayfind Token", 6); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	user := addr(0x01)
	if err := manager.SetBalance(user, "WAY", 100); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	if err := manager.Burn("WAY", user, 101); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance on burn: %v", err)
	}
	if err := manager.Transfer("WAY", user, addr(0x02), 101); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance on transfer: %v", err)
	}
	if balance, _ := manager.Balance(user, "WAY"); balance != 100 {
		t.Fatalf("failed operation changed the balance: %d", balance)
	}
}

func TestLedgerSelfTransferIsNoop(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.RegisterToken("WAY", "Wayfind Token", 6); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	user := addr(0x01)
	if err := manager.SetBalance(user, "WAY", 100); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}
	if err := manager.Transfer("WAY", user, user, 60); err != nil {
		t.Fatalf("self transfer failed: %v", err)
	}
	if balance, _ := manager.Balance(user, "WAY"); balance != 100 {
		t.Fatalf("self transfer changed the balance: %d", balance)
	}
}

func TestTransferRejectsRecipientOverflow(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.RegisterToken("WAY", "Wayfind Token", 6); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	sender := addr(0x01)
	recipient := addr(0x02)
	if err := manager.SetBalance(recipient, "WAY", math.MaxUint64); err != nil {
		t.Fatalf("seed recipient failed: %v", err)
	}
	// Write the sender balance directly so the fixture can exceed what the
	// supply accounting would allow.
	if err := manager.storeBalance(sender, "WAY", 5); err != nil {
		t.Fatalf("seed sender failed: %v", err)
	}

	if err := manager.Transfer("WAY", sender, recipient, 5); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow: %v", err)
	}
	if balance, _ := manager.Balance(sender, "WAY"); balance != 5 {
		t.Fatalf("failed transfer debited the sender: %d", balance)
	}
	if balance, _ := manager.Balance(recipient, "WAY"); balance != math.MaxUint64 {
		t.Fatalf("failed transfer changed the recipient: %d", balance)
	}
}

func TestMintRejectsOverflow(t *testing.T) {
	manager := newTestManager(t)
	manager.SetMinter(ProtocolAddress())
	if err := manager.RegisterToken("WAY", "Wayfind Token", 6); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := manager.SetTokenMintAuthority("WAY", ProtocolAddress()); err != nil {
		t.Fatalf("set mint authority failed: %v", err)
	}

	holder := addr(0x01)
	if err := manager.SetBalance(holder, "WAY", math.MaxUint64); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	// The holder's balance cannot absorb another unit.
	if err := manager.MintTo("WAY", holder, 1); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow on balance: %v", err)
	}
	// Neither can the total supply, even onto a fresh account.
	if err := manager.MintTo("WAY", addr(0x02), 1); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow on supply: %v", err)
	}

	if balance, _ := manager.Balance(holder, "WAY"); balance != math.MaxUint64 {
		t.Fatalf("failed mint changed the balance: %d", balance)
	}
	meta, _ := manager.Token("WAY")
	if meta.TotalSupply != math.MaxUint64 {
		t.Fatalf("failed mint changed the supply: %d", meta.TotalSupply)
	}
}

func TestSetBalanceRejectsSupplyOverflow(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.RegisterToken("WAY", "Wayfind Token", 6); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := manager.SetBalance(addr(0x01), "WAY", math.MaxUint64); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}

	if err := manager.SetBalance(addr(0x02), "WAY", 1); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow: %v", err)
	}
	if balance, _ := manager.Balance(addr(0x02), "WAY"); balance != 0 {
		t.Fatalf("failed set changed the balance: %d", balance)
	}
}

func TestMintRequiresAuthority(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.RegisterToken("WAY", "Wayfind Token", 6); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := manager.SetTokenMintAuthority("WAY", ProtocolAddress()); err != nil {
		t.Fatalf("set mint authority failed: %v", err)
	}

	// Minter identity not configured on the manager.
	if err := manager.MintTo("WAY", addr(0x01), 100); !errors.Is(err, ErrMintUnauthorized) {
		t.Fatalf("expected ErrMintUnauthorized: %v", err)
	}

	manager.SetMinter(ProtocolAddress())
	if err := manager.MintTo("WAY", addr(0x01), 100); err != nil {
		t.Fatalf("mint with authority failed: %v", err)
	}
}

func TestCommitAndRollback(t *testing.T) {
	manager := newTestManager(t)
	owner := addr(0x01)

	if err := manager.CreditAccountPut(&remint.CreditAccount{Owner: owner, Credits: 100}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	root, err := manager.Commit()
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if len(root) == 0 {
		t.Fatal("commit returned an empty root")
	}

	// Mutate and roll back to the committed root.
	if err := manager.CreditAccountPut(&remint.CreditAccount{Owner: owner, Credits: 999}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := manager.Rollback(); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}

	account, ok, err := manager.CreditAccountGet(owner)
	if err != nil || !ok {
		t.Fatalf("get after rollback failed: ok=%v err=%v", ok, err)
	}
	if account.Credits != 100 {
		t.Fatalf("rollback did not restore the committed value: %d", account.Credits)
	}
}

func TestReopenFromCommittedRoot(t *testing.T) {
	backend := trie.NewMemoryBackend()
	tr, err := trie.NewTrie(backend, nil)
	if err != nil {
		t.Fatalf("failed to open trie: %v", err)
	}
	manager := NewManager(tr)

	owner := addr(0x01)
	if err := manager.CreditAccountPut(&remint.CreditAccount{Owner: owner, Credits: 42}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	root, err := manager.Commit()
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	reopened, err := trie.NewTrie(backend, root)
	if err != nil {
		t.Fatalf("failed to reopen trie at root: %v", err)
	}
	restarted := NewManager(reopened)
	account, ok, err := restarted.CreditAccountGet(owner)
	if err != nil || !ok {
		t.Fatalf("get after reopen failed: ok=%v err=%v", ok, err)
	}
	if account.Credits != 42 {
		t.Fatalf("reopened trie lost the record: %d", account.Credits)
	}
}
