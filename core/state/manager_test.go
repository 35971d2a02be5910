package state

import (
	"math/big"
	"testing"

	"reliefchain/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestBalanceDefaultsToZero(t *testing.T) {
	manager := newTestManager(t)
	addr := []byte{0x01, 0x02, 0x03}
	balance, err := manager.Balance(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", balance)
	}
	if err := manager.SetBalance(addr, big.NewInt(1_500_000)); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	balance, err = manager.Balance(addr)
	if err != nil {
		t.Fatalf("balance after set: %v", err)
	}
	if balance.Cmp(big.NewInt(1_500_000)) != 0 {
		t.Fatalf("unexpected balance %s", balance)
	}
}

func TestSetBalanceRejectsNegative(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.SetBalance([]byte{0xAA}, big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative balance rejection")
	}
}

func TestRoleMembership(t *testing.T) {
	manager := newTestManager(t)
	admin := []byte{0xAA}
	if manager.HasRole("ROLE_ADMIN", admin) {
		t.Fatalf("unexpected role before assignment")
	}
	if err := manager.SetRole("ROLE_ADMIN", admin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	// Duplicate assignment is a no-op.
	if err := manager.SetRole("ROLE_ADMIN", admin); err != nil {
		t.Fatalf("duplicate set role: %v", err)
	}
	if !manager.HasRole("ROLE_ADMIN", admin) {
		t.Fatalf("expected role after assignment")
	}
	members, err := manager.RoleMembers("ROLE_ADMIN")
	if err != nil {
		t.Fatalf("role members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected one member, got %d", len(members))
	}
	if err := manager.RevokeRole("ROLE_ADMIN", admin); err != nil {
		t.Fatalf("revoke role: %v", err)
	}
	if manager.HasRole("ROLE_ADMIN", admin) {
		t.Fatalf("expected role revoked")
	}
}

func TestPausedFlag(t *testing.T) {
	manager := newTestManager(t)
	paused, err := manager.Paused()
	if err != nil {
		t.Fatalf("paused: %v", err)
	}
	if paused {
		t.Fatalf("fresh state must not be paused")
	}
	if err := manager.SetPaused(true); err != nil {
		t.Fatalf("set paused: %v", err)
	}
	paused, err = manager.Paused()
	if err != nil {
		t.Fatalf("paused after set: %v", err)
	}
	if !paused {
		t.Fatalf("expected paused state")
	}
}

func TestSequencesAreMonotonic(t *testing.T) {
	manager := newTestManager(t)
	first, err := manager.NextSpendTxID()
	if err != nil {
		t.Fatalf("first id: %v", err)
	}
	second, err := manager.NextSpendTxID()
	if err != nil {
		t.Fatalf("second id: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected 1,2 got %d,%d", first, second)
	}
	campaignID, err := manager.NextCampaignID()
	if err != nil {
		t.Fatalf("campaign id: %v", err)
	}
	if campaignID != 1 {
		t.Fatalf("campaign sequence must be independent, got %d", campaignID)
	}
}

func TestCampaignFundCounter(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.AddCampaignFunds(7, big.NewInt(250)); err != nil {
		t.Fatalf("add funds: %v", err)
	}
	if err := manager.AddCampaignFunds(7, big.NewInt(250)); err != nil {
		t.Fatalf("add funds again: %v", err)
	}
	total, err := manager.CampaignFunds(7)
	if err != nil {
		t.Fatalf("campaign funds: %v", err)
	}
	if total.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected total %s", total)
	}
	other, err := manager.CampaignFunds(8)
	if err != nil {
		t.Fatalf("other campaign funds: %v", err)
	}
	if other.Sign() != 0 {
		t.Fatalf("expected zero for unknown campaign, got %s", other)
	}
}

func TestKVListHelpers(t *testing.T) {
	manager := newTestManager(t)
	key := []byte("test/index")
	if err := manager.KVAppend(key, []byte{0x01}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := manager.KVAppend(key, []byte{0x01}); err != nil {
		t.Fatalf("duplicate append: %v", err)
	}
	if err := manager.KVAppend(key, []byte{0x02}); err != nil {
		t.Fatalf("second append: %v", err)
	}
	var list [][]byte
	if err := manager.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected deduplicated list of 2, got %d", len(list))
	}
	var empty [][]byte
	if err := manager.KVGetList([]byte("test/absent"), &empty); err != nil {
		t.Fatalf("get absent list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected initialised empty slice")
	}
}
