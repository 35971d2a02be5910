package campaign

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"reliefchain/core/state"
	"reliefchain/native/ledger"
	"reliefchain/storage"
)

func addr(b byte) []byte {
	out := make([]byte, 20)
	out[0] = b
	return out
}

func newTestManager(t *testing.T) (*Manager, []byte) {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	admin := addr(0xA1)
	if err := st.SetRole(ledger.RoleAdmin, admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	manager := NewManager(st)
	manager.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return manager, admin
}

func validParams() CreateParams {
	return CreateParams{
		Name:         "Flood Relief North",
		Description:  "Emergency support for flooded districts",
		Region:       "north",
		DisasterType: "flood",
		TargetAmount: big.NewInt(50_000_000_000),
		StartDate:    1_700_000_000,
		EndDate:      1_702_592_000,
		MetadataRef:  "ipfs://campaign-1",
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	manager, admin := newTestManager(t)

	if _, err := manager.CreateCampaign(addr(0x01), validParams()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	bad := validParams()
	bad.EndDate = bad.StartDate
	if _, err := manager.CreateCampaign(admin, bad); !errors.Is(err, ErrInvalidCampaignDates) {
		t.Fatalf("expected invalid dates, got %v", err)
	}

	id, err := manager.CreateCampaign(admin, validParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 1 {
		t.Fatalf("rejected creations must not advance the counter, got id %d", id)
	}
	second, err := manager.CreateCampaign(admin, validParams())
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second != 2 {
		t.Fatalf("expected sequential id 2, got %d", second)
	}

	c, err := manager.GetCampaign(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if Status(c.Status) != StatusDraft {
		t.Fatalf("new campaigns start in draft, got %s", Status(c.Status))
	}
}

func TestLifecycleTransitions(t *testing.T) {
	manager, admin := newTestManager(t)
	id, err := manager.CreateCampaign(admin, validParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := manager.Activate(admin, 99); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := manager.Activate(admin, id); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := manager.Pause(admin, id); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := manager.Activate(admin, id); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := manager.Complete(admin, id); err != nil {
		t.Fatalf("complete: %v", err)
	}
	c, err := manager.GetCampaign(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if Status(c.Status) != StatusCompleted {
		t.Fatalf("expected completed, got %s", Status(c.Status))
	}
}

func TestBeneficiaryAllocation(t *testing.T) {
	manager, admin := newTestManager(t)
	id, err := manager.CreateCampaign(admin, validParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	recipient := addr(0x10)

	if err := manager.AddBeneficiary(admin, id, recipient, big.NewInt(1_000_000_000)); err != nil {
		t.Fatalf("add beneficiary: %v", err)
	}
	if err := manager.AddBeneficiary(admin, id, recipient, big.NewInt(2_000_000_000)); !errors.Is(err, ErrBeneficiaryAlreadyInCampaign) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}

	allocation, err := manager.GetBeneficiaryAllocation(id, recipient)
	if err != nil {
		t.Fatalf("allocation: %v", err)
	}
	if allocation.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("unexpected allocation %s", allocation)
	}
	if _, err := manager.GetBeneficiaryAllocation(id, addr(0x11)); !errors.Is(err, ErrBeneficiaryNotInCampaign) {
		t.Fatalf("expected not allocated, got %v", err)
	}

	beneficiaries, err := manager.GetBeneficiaries(id)
	if err != nil {
		t.Fatalf("beneficiaries: %v", err)
	}
	if len(beneficiaries) != 1 {
		t.Fatalf("expected one beneficiary, got %d", len(beneficiaries))
	}
	c, err := manager.GetCampaign(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.BeneficiaryCount != 1 {
		t.Fatalf("expected count 1, got %d", c.BeneficiaryCount)
	}
}

func TestDistributionBookkeeping(t *testing.T) {
	manager, admin := newTestManager(t)
	id, err := manager.CreateCampaign(admin, validParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	recipient := addr(0x10)

	// Distribution requires an active campaign.
	if err := manager.RecordDistribution(admin, id, recipient, big.NewInt(1)); !errors.Is(err, ErrCampaignNotActive) {
		t.Fatalf("expected not active, got %v", err)
	}
	if err := manager.Activate(admin, id); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := manager.RecordFundsRaised(admin, id, big.NewInt(10_000_000_000)); err != nil {
		t.Fatalf("record raised: %v", err)
	}

	if err := manager.RecordDistribution(admin, id, recipient, big.NewInt(4_000_000_000)); err != nil {
		t.Fatalf("first distribution: %v", err)
	}
	if err := manager.RecordDistribution(admin, id, recipient, big.NewInt(7_000_000_000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	stats, err := manager.GetStats(id)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.DistributedAmount.Cmp(big.NewInt(4_000_000_000)) != 0 {
		t.Fatalf("unexpected distributed %s", stats.DistributedAmount)
	}
	if stats.Remaining.Cmp(big.NewInt(6_000_000_000)) != 0 {
		t.Fatalf("unexpected remaining %s", stats.Remaining)
	}
	// Distributed never exceeds raised.
	if stats.DistributedAmount.Cmp(stats.RaisedAmount) > 0 {
		t.Fatalf("distributed %s exceeds raised %s", stats.DistributedAmount, stats.RaisedAmount)
	}
}

func TestTerminalStatusRejectsTransitions(t *testing.T) {
	manager, admin := newTestManager(t)

	completed, err := manager.CreateCampaign(admin, validParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := manager.Activate(admin, completed); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := manager.Complete(admin, completed); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := manager.Activate(admin, completed); !errors.Is(err, ErrCampaignClosed) {
		t.Fatalf("expected closed on reactivate, got %v", err)
	}
	if err := manager.Cancel(admin, completed); !errors.Is(err, ErrCampaignClosed) {
		t.Fatalf("expected closed on cancel, got %v", err)
	}

	cancelled, err := manager.CreateCampaign(admin, validParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := manager.Cancel(admin, cancelled); err != nil {
		t.Fatalf("cancel from draft: %v", err)
	}
	if err := manager.Pause(admin, cancelled); !errors.Is(err, ErrCampaignClosed) {
		t.Fatalf("expected closed on pause, got %v", err)
	}
	c, err := manager.GetCampaign(cancelled)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if Status(c.Status) != StatusCancelled {
		t.Fatalf("status mutated to %s", Status(c.Status))
	}
}
