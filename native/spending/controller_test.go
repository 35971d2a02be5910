package spending

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"reliefchain/core/events"
	"reliefchain/core/state"
	"reliefchain/core/types"
	"reliefchain/native/ledger"
	"reliefchain/storage"
)

type recordingEmitter struct {
	emitted []*types.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.emitted = append(r.emitted, evt.Event())
}

func (r *recordingEmitter) lastOfType(eventType string) *types.Event {
	for i := len(r.emitted) - 1; i >= 0; i-- {
		if r.emitted[i].Type == eventType {
			return r.emitted[i]
		}
	}
	return nil
}

type fixture struct {
	manager    *state.Manager
	ledger     *ledger.Engine
	controller *Controller
	emitter    *recordingEmitter
	clock      *time.Time

	admin          []byte
	minter         []byte
	recipient      []byte
	merchant       []byte
	controllerAddr []byte
}

func addr(b byte) []byte {
	out := make([]byte, 20)
	out[0] = b
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	emitter := &recordingEmitter{}
	start := time.Unix(1_700_000_000, 0)
	clock := &start
	nowFunc := func() time.Time { return *clock }

	ledgerEngine := ledger.NewEngine(manager)
	ledgerEngine.SetEmitter(emitter)
	ledgerEngine.SetNowFunc(nowFunc)

	controller := NewController(manager, ledgerEngine)
	controller.SetEmitter(emitter)
	controller.SetNowFunc(nowFunc)

	f := &fixture{
		manager:        manager,
		ledger:         ledgerEngine,
		controller:     controller,
		emitter:        emitter,
		clock:          clock,
		admin:          addr(0xA1),
		minter:         addr(0xB1),
		recipient:      addr(0x10),
		merchant:       addr(0x20),
		controllerAddr: addr(0xD1),
	}
	if err := manager.SetRole(ledger.RoleAdmin, f.admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := manager.SetRole(ledger.RoleMinter, f.minter); err != nil {
		t.Fatalf("seed minter: %v", err)
	}
	if err := manager.SetController(f.controllerAddr); err != nil {
		t.Fatalf("set controller: %v", err)
	}
	if err := manager.SetDefaultDailyLimit(big.NewInt(1_000_000_000)); err != nil { // 1,000.000000
		t.Fatalf("set default daily limit: %v", err)
	}
	return f
}

// seedSpendReady whitelists the recipient, funds it, and registers an active
// food merchant with a 500.000000 food allowance.
func seedSpendReady(t *testing.T, f *fixture) {
	t.Helper()
	if err := f.ledger.Whitelist(f.admin, f.recipient, "Jordan", "north"); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := f.ledger.Mint(f.minter, f.minter, big.NewInt(10_000_000_000), 1, "treasury"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.ledger.DistributeFunds(f.minter, f.recipient, big.NewInt(1_000_000_000), 1); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if err := f.controller.RegisterMerchant(f.admin, f.merchant, "Corner Grocery", CategoryFood, "north market"); err != nil {
		t.Fatalf("register merchant: %v", err)
	}
	if err := f.controller.SetAllowance(f.admin, f.recipient, CategoryFood, big.NewInt(500_000_000)); err != nil {
		t.Fatalf("set allowance: %v", err)
	}
}

func TestRegisterMerchantGuards(t *testing.T) {
	f := newFixture(t)
	if err := f.controller.RegisterMerchant(f.recipient, f.merchant, "Shop", CategoryFood, "x"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := f.controller.RegisterMerchant(f.admin, f.merchant, "Shop", Category(9), "x"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected invalid category, got %v", err)
	}
	if err := f.controller.RegisterMerchant(f.admin, f.merchant, "Shop", CategoryFood, "x"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.controller.RegisterMerchant(f.admin, f.merchant, "Shop", CategoryFood, "x"); !errors.Is(err, ErrMerchantAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	if err := f.controller.DeactivateMerchant(f.admin, f.merchant, "closed"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := f.controller.DeactivateMerchant(f.admin, f.merchant, "again"); !errors.Is(err, ErrMerchantNotActive) {
		t.Fatalf("expected not active, got %v", err)
	}
	// Retired merchants may re-register.
	if err := f.controller.RegisterMerchant(f.admin, f.merchant, "Shop II", CategoryMedical, "y"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
}

func TestSpendHappyPathAndAllowanceExhaustion(t *testing.T) {
	f := newFixture(t)
	seedSpendReady(t, f)

	first, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(100_000_000), "ref-1")
	if err != nil {
		t.Fatalf("first spend: %v", err)
	}
	second, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(100_000_000), "ref-2")
	if err != nil {
		t.Fatalf("second spend: %v", err)
	}
	if second.TxID != first.TxID+1 {
		t.Fatalf("tx ids must increase monotonically: %d then %d", first.TxID, second.TxID)
	}
	remaining, err := f.controller.GetRemainingAllowance(f.recipient, CategoryFood)
	if err != nil {
		t.Fatalf("remaining allowance: %v", err)
	}
	if remaining.Cmp(big.NewInt(300_000_000)) != 0 {
		t.Fatalf("expected 300.000000 remaining, got %s", remaining)
	}

	// Third attempt exceeds the category allowance and must leave all
	// counters untouched.
	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(400_000_000), "ref-3"); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
	status, err := f.controller.GetBeneficiaryStatus(f.recipient)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Spent[CategoryFood].Cmp(big.NewInt(200_000_000)) != 0 {
		t.Fatalf("rejected spend mutated counters: %s", status.Spent[CategoryFood])
	}
	if status.Balance.Cmp(big.NewInt(800_000_000)) != 0 {
		t.Fatalf("unexpected balance %s", status.Balance)
	}

	// The merchant accumulated both payments.
	record, err := f.controller.GetMerchantInfo(f.merchant)
	if err != nil {
		t.Fatalf("merchant info: %v", err)
	}
	if record.TotalReceived.Cmp(big.NewInt(200_000_000)) != 0 {
		t.Fatalf("unexpected merchant volume %s", record.TotalReceived)
	}
	balance, err := f.ledger.BalanceOf(f.merchant)
	if err != nil || balance.Cmp(big.NewInt(200_000_000)) != 0 {
		t.Fatalf("merchant balance mismatch %v %v", balance, err)
	}
}

func TestSpendValidationOrderAndAudit(t *testing.T) {
	f := newFixture(t)
	seedSpendReady(t, f)

	cases := []struct {
		name   string
		mutate func(t *testing.T)
		amount *big.Int
		reason string
		err    error
	}{
		{
			name:   "zero amount",
			amount: big.NewInt(0),
			reason: "invalid_amount",
			err:    ErrInvalidAmount,
		},
		{
			name: "merchant deactivated",
			mutate: func(t *testing.T) {
				if err := f.controller.DeactivateMerchant(f.admin, f.merchant, "closed"); err != nil {
					t.Fatalf("deactivate merchant: %v", err)
				}
			},
			amount: big.NewInt(1_000_000),
			reason: "merchant_not_active",
			err:    ErrMerchantNotActive,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.mutate != nil {
				tc.mutate(t)
			}
			if _, err := f.controller.Spend(f.recipient, f.merchant, tc.amount, "ref"); !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			evt := f.emitter.lastOfType(events.TypeSpendingRejected)
			if evt == nil {
				t.Fatalf("rejection must be recorded on the audit stream")
			}
			if evt.Attributes["reason"] != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, evt.Attributes["reason"])
			}
		})
	}
}

func TestSpendRejectsDeactivatedRecipient(t *testing.T) {
	f := newFixture(t)
	seedSpendReady(t, f)
	if err := f.ledger.Deactivate(f.admin, f.recipient, "review"); err != nil {
		t.Fatalf("deactivate recipient: %v", err)
	}
	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(1_000_000), "ref"); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected not whitelisted, got %v", err)
	}
}

func TestSpendInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	seedSpendReady(t, f)
	// Allowance is generous but the wallet only holds 1,000.000000.
	if err := f.controller.SetAllowance(f.admin, f.recipient, CategoryFood, big.NewInt(5_000_000_000)); err != nil {
		t.Fatalf("raise allowance: %v", err)
	}
	if err := f.controller.SetDailyLimit(f.admin, f.recipient, big.NewInt(5_000_000_000)); err != nil {
		t.Fatalf("raise daily limit: %v", err)
	}
	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(2_000_000_000), "ref"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestDailyLimitResetsAcrossBuckets(t *testing.T) {
	f := newFixture(t)
	seedSpendReady(t, f)
	if err := f.controller.SetAllowance(f.admin, f.recipient, CategoryFood, big.NewInt(900_000_000)); err != nil {
		t.Fatalf("set allowance: %v", err)
	}
	if err := f.controller.SetDailyLimit(f.admin, f.recipient, big.NewInt(300_000_000)); err != nil {
		t.Fatalf("set daily limit: %v", err)
	}

	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(250_000_000), "day1-a"); err != nil {
		t.Fatalf("first spend: %v", err)
	}
	// Within allowance but over today's remaining daily budget.
	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(100_000_000), "day1-b"); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("expected daily limit exceeded, got %v", err)
	}
	evt := f.emitter.lastOfType(events.TypeSpendingRejected)
	if evt == nil || evt.Attributes["reason"] != "daily_limit_exceeded" {
		t.Fatalf("expected daily limit rejection on audit stream, got %+v", evt)
	}

	// Advancing to the next day bucket clears the meter; day one's usage
	// must never block day two.
	*f.clock = f.clock.Add(24 * time.Hour)
	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(100_000_000), "day2"); err != nil {
		t.Fatalf("spend after bucket advance: %v", err)
	}
}

func TestDailyLimitZeroRestoresDefault(t *testing.T) {
	f := newFixture(t)
	seedSpendReady(t, f)
	if err := f.controller.SetDailyLimit(f.admin, f.recipient, big.NewInt(50_000_000)); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(60_000_000), "over"); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("expected daily limit exceeded, got %v", err)
	}
	if err := f.controller.SetDailyLimit(f.admin, f.recipient, big.NewInt(0)); err != nil {
		t.Fatalf("clear override: %v", err)
	}
	// Back on the 1,000.000000 system default.
	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(60_000_000), "ok"); err != nil {
		t.Fatalf("spend under default: %v", err)
	}
}

func TestAllowanceLoweringBelowSpentFlagsAnomaly(t *testing.T) {
	f := newFixture(t)
	seedSpendReady(t, f)
	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(200_000_000), "ref"); err != nil {
		t.Fatalf("spend: %v", err)
	}
	if err := f.controller.SetAllowance(f.admin, f.recipient, CategoryFood, big.NewInt(100_000_000)); err != nil {
		t.Fatalf("lower allowance: %v", err)
	}
	evt := f.emitter.lastOfType(events.TypeAllowanceBelowSpent)
	if evt == nil {
		t.Fatalf("expected below-spent anomaly on audit stream")
	}
	remaining, err := f.controller.GetRemainingAllowance(f.recipient, CategoryFood)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining.Sign() != 0 {
		t.Fatalf("frozen category must report zero remaining, got %s", remaining)
	}
	// Further spend in the category is blocked.
	if _, err := f.controller.Spend(f.recipient, f.merchant, big.NewInt(1_000_000), "frozen"); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
}

func TestSetAllAllowances(t *testing.T) {
	f := newFixture(t)
	amounts := [NumCategories]*big.Int{
		big.NewInt(100), big.NewInt(200), big.NewInt(300), big.NewInt(400), big.NewInt(500),
	}
	if err := f.controller.SetAllAllowances(f.admin, f.recipient, amounts); err != nil {
		t.Fatalf("set all: %v", err)
	}
	status, err := f.controller.GetBeneficiaryStatus(f.recipient)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for i, want := range amounts {
		if status.Allowances[i].Cmp(want) != 0 {
			t.Fatalf("category %d: expected %s, got %s", i, want, status.Allowances[i])
		}
	}
}

func TestMerchantEnumeration(t *testing.T) {
	f := newFixture(t)
	if err := f.controller.RegisterMerchant(f.admin, addr(0x21), "A", CategoryFood, "x"); err != nil {
		t.Fatalf("register A: %v", err)
	}
	if err := f.controller.RegisterMerchant(f.admin, addr(0x22), "B", CategoryMedical, "y"); err != nil {
		t.Fatalf("register B: %v", err)
	}
	merchants, err := f.controller.Merchants()
	if err != nil {
		t.Fatalf("merchants: %v", err)
	}
	if len(merchants) != 2 {
		t.Fatalf("expected 2 merchants, got %d", len(merchants))
	}
}

func TestIsPolicyRejection(t *testing.T) {
	if !IsPolicyRejection(ErrDailyLimitExceeded) {
		t.Fatalf("daily limit is a policy rejection")
	}
	if IsPolicyRejection(ErrControllerNotSet) {
		t.Fatalf("controller misconfiguration is not a policy rejection")
	}
}
