package ledger

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"reliefchain/core/state"
	"reliefchain/storage"
)

func newTestEngine(t *testing.T) (*Engine, *state.Manager) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	engine := NewEngine(manager)
	engine.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return engine, manager
}

func addr(b byte) []byte {
	out := make([]byte, 20)
	out[0] = b
	return out
}

func seedAdmin(t *testing.T, manager *state.Manager) []byte {
	t.Helper()
	admin := addr(0xA1)
	if err := manager.SetRole(RoleAdmin, admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return admin
}

func seedMinter(t *testing.T, manager *state.Manager) []byte {
	t.Helper()
	minter := addr(0xB1)
	if err := manager.SetRole(RoleMinter, minter); err != nil {
		t.Fatalf("seed minter: %v", err)
	}
	return minter
}

func TestWhitelistRequiresAdmin(t *testing.T) {
	engine, _ := newTestEngine(t)
	outsider := addr(0x01)
	if err := engine.Whitelist(outsider, addr(0x02), "Jordan", "north"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestWhitelistLifecycle(t *testing.T) {
	engine, manager := newTestEngine(t)
	admin := seedAdmin(t, manager)
	recipient := addr(0x10)

	if err := engine.Whitelist(admin, recipient, "Jordan", "north"); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := engine.Whitelist(admin, recipient, "Jordan", "north"); !errors.Is(err, ErrAlreadyWhitelisted) {
		t.Fatalf("expected already whitelisted, got %v", err)
	}
	active, err := engine.IsWhitelisted(recipient)
	if err != nil || !active {
		t.Fatalf("expected active recipient, got %v %v", active, err)
	}
	info, err := engine.WhitelistInfo(recipient)
	if err != nil {
		t.Fatalf("whitelist info: %v", err)
	}
	if info.Name != "Jordan" || info.Region != "north" || !info.Active {
		t.Fatalf("unexpected entry %+v", info)
	}

	if err := engine.Deactivate(admin, recipient, "fraud review"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := engine.Deactivate(admin, recipient, "again"); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected not whitelisted, got %v", err)
	}
	// Deactivated entries may be re-approved.
	if err := engine.Whitelist(admin, recipient, "Jordan", "north"); err != nil {
		t.Fatalf("re-whitelist: %v", err)
	}
}

func TestMintGating(t *testing.T) {
	engine, manager := newTestEngine(t)
	admin := seedAdmin(t, manager)
	minter := seedMinter(t, manager)
	recipient := addr(0x10)
	amount := big.NewInt(10_000_000_000) // 10,000.000000

	if err := engine.Mint(recipient, recipient, amount, 1, "seed"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized mint, got %v", err)
	}
	if err := engine.Mint(minter, recipient, amount, 1, "seed"); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected not whitelisted, got %v", err)
	}
	if err := engine.Whitelist(admin, recipient, "Jordan", "north"); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := engine.Mint(minter, recipient, amount, 1, "seed"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := engine.BalanceOf(recipient)
	if err != nil || balance.Cmp(amount) != 0 {
		t.Fatalf("unexpected balance %v %v", balance, err)
	}
	funds, err := engine.CampaignFundTotal(1)
	if err != nil || funds.Cmp(amount) != 0 {
		t.Fatalf("unexpected campaign funds %v %v", funds, err)
	}
	minted, err := engine.TotalMinted()
	if err != nil || minted.Cmp(amount) != 0 {
		t.Fatalf("unexpected total minted %v %v", minted, err)
	}
	if err := engine.Mint(minter, recipient, big.NewInt(0), 1, "zero"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestMintToMinterAccount(t *testing.T) {
	engine, manager := newTestEngine(t)
	minter := seedMinter(t, manager)
	if err := engine.Mint(minter, minter, big.NewInt(500), 3, "treasury"); err != nil {
		t.Fatalf("mint to minter: %v", err)
	}
}

func TestPauseBlocksMintAndTransfer(t *testing.T) {
	engine, manager := newTestEngine(t)
	admin := seedAdmin(t, manager)
	minter := seedMinter(t, manager)
	pauser := addr(0xC1)
	if err := manager.SetRole(RolePauser, pauser); err != nil {
		t.Fatalf("seed pauser: %v", err)
	}
	recipient := addr(0x10)
	if err := engine.Whitelist(admin, recipient, "Jordan", "north"); err != nil {
		t.Fatalf("whitelist: %v", err)
	}

	if err := engine.Pause(recipient); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized pause, got %v", err)
	}
	if err := engine.Pause(pauser); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := engine.Mint(minter, recipient, big.NewInt(100), 1, "seed"); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected paused mint, got %v", err)
	}
	if err := engine.Transfer(minter, recipient, big.NewInt(1)); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected paused transfer, got %v", err)
	}
	if err := engine.Unpause(pauser); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := engine.Mint(minter, recipient, big.NewInt(100), 1, "seed"); err != nil {
		t.Fatalf("mint after unpause: %v", err)
	}
}

func TestTransferRestrictionPolicy(t *testing.T) {
	engine, manager := newTestEngine(t)
	admin := seedAdmin(t, manager)
	minter := seedMinter(t, manager)
	controller := addr(0xD1)
	if err := manager.SetController(controller); err != nil {
		t.Fatalf("set controller: %v", err)
	}
	first := addr(0x10)
	second := addr(0x11)
	for _, recipient := range [][]byte{first, second} {
		if err := engine.Whitelist(admin, recipient, "r", "x"); err != nil {
			t.Fatalf("whitelist: %v", err)
		}
	}
	if err := engine.Mint(minter, first, big.NewInt(1000), 1, "seed"); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Recipients cannot move value to each other directly.
	if err := engine.Transfer(first, second, big.NewInt(10)); !errors.Is(err, ErrTransferNotAllowed) {
		t.Fatalf("expected transfer not allowed, got %v", err)
	}
	// Recipient -> controller is the approved spend path.
	if err := engine.Transfer(first, controller, big.NewInt(10)); err != nil {
		t.Fatalf("recipient to controller: %v", err)
	}
	// Controller -> merchant payout leg.
	merchant := addr(0x20)
	if err := engine.Transfer(controller, merchant, big.NewInt(10)); err != nil {
		t.Fatalf("controller to merchant: %v", err)
	}
	// Zero amounts are an allowed administrative no-op for any pair.
	if err := engine.Transfer(first, second, big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
	// Balance is conserved by the two-leg move.
	balance, err := engine.BalanceOf(merchant)
	if err != nil || balance.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("unexpected merchant balance %v %v", balance, err)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	engine, manager := newTestEngine(t)
	minter := seedMinter(t, manager)
	if err := engine.Transfer(minter, addr(0x10), big.NewInt(5)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestDistributeFundsRequiresActiveRecipient(t *testing.T) {
	engine, manager := newTestEngine(t)
	admin := seedAdmin(t, manager)
	minter := seedMinter(t, manager)
	recipient := addr(0x10)
	if err := engine.Whitelist(admin, recipient, "Jordan", "north"); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := engine.Mint(minter, minter, big.NewInt(10_000_000_000), 1, "treasury"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.DistributeFunds(minter, recipient, big.NewInt(1_000_000_000), 1); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	balance, err := engine.BalanceOf(recipient)
	if err != nil || balance.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("unexpected balance %v %v", balance, err)
	}

	if err := engine.Deactivate(admin, recipient, "moved away"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := engine.DistributeFunds(minter, recipient, big.NewInt(1), 1); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected not whitelisted, got %v", err)
	}
	// Existing balance is untouched by the rejection.
	balance, err = engine.BalanceOf(recipient)
	if err != nil || balance.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("balance mutated by rejected distribute: %v %v", balance, err)
	}
}

func TestBurnReducesSupply(t *testing.T) {
	engine, manager := newTestEngine(t)
	minter := seedMinter(t, manager)
	if err := engine.Mint(minter, minter, big.NewInt(1000), 1, "treasury"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.Burn(minter, big.NewInt(400), "recall"); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if err := engine.Burn(minter, big.NewInt(700), "too much"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	burned, err := engine.TotalBurned()
	if err != nil || burned.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected burned total %v %v", burned, err)
	}
}

func TestRoleAdministration(t *testing.T) {
	engine, manager := newTestEngine(t)
	admin := seedAdmin(t, manager)
	account := addr(0x42)
	if err := engine.GrantRole(account, RoleMinter, account); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized grant, got %v", err)
	}
	if err := engine.GrantRole(admin, "ROLE_BOGUS", account); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected unknown role, got %v", err)
	}
	if err := engine.GrantRole(admin, RoleMinter, account); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !manager.HasRole(RoleMinter, account) {
		t.Fatalf("expected minter role")
	}
	if err := engine.RevokeRole(admin, RoleMinter, account); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if manager.HasRole(RoleMinter, account) {
		t.Fatalf("expected role revoked")
	}
}

func TestWhitelistBatch(t *testing.T) {
	engine, manager := newTestEngine(t)
	admin := seedAdmin(t, manager)

	if err := engine.Whitelist(admin, addr(0x10), "Jordan", "north"); err != nil {
		t.Fatalf("whitelist: %v", err)
	}

	entries := []BatchEntry{
		{Recipient: addr(0x10), Name: "Jordan", Region: "north"},
		{Recipient: addr(0x11), Name: "Sam", Region: "east"},
		{Recipient: addr(0x12), Name: "Noor", Region: "east"},
	}
	added, skipped, err := engine.WhitelistBatch(admin, entries)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if added != 2 || skipped != 1 {
		t.Fatalf("added=%d skipped=%d, want 2/1", added, skipped)
	}
	for _, b := range []byte{0x10, 0x11, 0x12} {
		ok, err := engine.IsWhitelisted(addr(b))
		if err != nil || !ok {
			t.Fatalf("recipient %#x not whitelisted (%v)", b, err)
		}
	}
	recipients, err := engine.WhitelistedRecipients()
	if err != nil {
		t.Fatalf("recipients: %v", err)
	}
	if len(recipients) != 3 {
		t.Fatalf("index holds %d entries, want 3", len(recipients))
	}
}

func TestWhitelistBatchRejectsBadInput(t *testing.T) {
	engine, manager := newTestEngine(t)
	admin := seedAdmin(t, manager)

	if _, _, err := engine.WhitelistBatch(addr(0x01), []BatchEntry{{Recipient: addr(0x10)}}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, _, err := engine.WhitelistBatch(admin, nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected empty batch, got %v", err)
	}

	// One malformed address aborts the batch before any entry lands.
	entries := []BatchEntry{
		{Recipient: addr(0x11), Name: "Sam", Region: "east"},
		{Recipient: []byte{0x01}, Name: "Bad", Region: "east"},
	}
	if _, _, err := engine.WhitelistBatch(admin, entries); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected invalid address, got %v", err)
	}
	ok, err := engine.IsWhitelisted(addr(0x11))
	if err != nil {
		t.Fatalf("is whitelisted: %v", err)
	}
	if ok {
		t.Fatal("aborted batch must not whitelist anyone")
	}
}
