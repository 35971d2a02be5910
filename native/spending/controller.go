package spending

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"reliefchain/core/events"
	"reliefchain/core/state"
	"reliefchain/native/ledger"
)

const secondsPerDay = 86_400

// State describes the functionality the spending controller needs from the
// surrounding state implementation.
type State interface {
	HasRole(role string, addr []byte) bool
	Controller() ([]byte, error)
	Balance(addr []byte) (*big.Int, error)
	DefaultDailyLimit() (*big.Int, error)
	NextSpendTxID() (uint64, error)
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	KVGetBigInt(key []byte) (*big.Int, error)
	KVPutBigInt(key []byte, amount *big.Int) error
}

// Controller gatekeeps recipient spending against merchant eligibility,
// category allowances, and daily limits, and performs the actual value
// movement through the ledger engine.
type Controller struct {
	st     State
	ledger *ledger.Engine
	events events.Emitter
	now    func() time.Time

	// spendMu serialises the validate-and-execute window of Spend so a
	// nested or concurrent call cannot interleave its balance checks with
	// another's execution.
	spendMu sync.Mutex
}

// NewController constructs a spending controller bound to the ledger engine
// that moves the value.
func NewController(st State, ledgerEngine *ledger.Engine) *Controller {
	return &Controller{
		st:     st,
		ledger: ledgerEngine,
		events: events.NoopEmitter{},
		now:    time.Now,
	}
}

// SetEmitter installs the audit event sink.
func (c *Controller) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	c.events = emitter
}

// SetNowFunc overrides the clock, used by tests to cross day buckets.
func (c *Controller) SetNowFunc(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

func validAddress(addr []byte) bool {
	if len(addr) != 20 {
		return false
	}
	for _, b := range addr {
		if b != 0 {
			return true
		}
	}
	return false
}

func (c *Controller) requireAdmin(caller []byte) error {
	if !validAddress(caller) {
		return ErrInvalidAddress
	}
	if !c.st.HasRole(ledger.RoleAdmin, caller) {
		return fmt.Errorf("%w: caller lacks %s", ErrUnauthorized, ledger.RoleAdmin)
	}
	return nil
}

// RegisterMerchant stores a merchant record and appends it to the merchant
// index. Re-registering an active merchant is rejected; a deactivated one may
// be re-registered with fresh details.
func (c *Controller) RegisterMerchant(caller, merchant []byte, name string, category Category, location string) error {
	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if !validAddress(merchant) {
		return ErrInvalidAddress
	}
	if !category.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCategory, uint8(category))
	}
	var existing MerchantRecord
	exists, err := c.st.KVGet(state.MerchantKey(merchant), &existing)
	if err != nil {
		return err
	}
	if exists && existing.Active {
		return ErrMerchantAlreadyExists
	}
	record := MerchantRecord{
		Name:          name,
		Category:      uint8(category),
		Location:      location,
		Active:        true,
		RegisteredAt:  uint64(c.now().Unix()),
		TotalReceived: big.NewInt(0),
	}
	if exists && existing.TotalReceived != nil {
		// Cumulative volume survives re-registration for audit continuity.
		record.TotalReceived = existing.TotalReceived
	}
	if err := c.st.KVPut(state.MerchantKey(merchant), &record); err != nil {
		return err
	}
	if err := c.st.KVAppend(state.MerchantIndexKey(), merchant); err != nil {
		return err
	}
	c.events.Emit(events.MerchantRegistered{Actor: caller, Merchant: merchant, Name: name, Category: uint8(category), Location: location})
	return nil
}

// DeactivateMerchant retires a merchant from the controlled spend path.
func (c *Controller) DeactivateMerchant(caller, merchant []byte, reason string) error {
	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if !validAddress(merchant) {
		return ErrInvalidAddress
	}
	var record MerchantRecord
	exists, err := c.st.KVGet(state.MerchantKey(merchant), &record)
	if err != nil {
		return err
	}
	if !exists || !record.Active {
		return ErrMerchantNotActive
	}
	record.Active = false
	if err := c.st.KVPut(state.MerchantKey(merchant), &record); err != nil {
		return err
	}
	c.events.Emit(events.MerchantDeactivated{Actor: caller, Merchant: merchant, Reason: reason})
	return nil
}

// SetAllowance overwrites the stored allowance for one category. Lowering the
// allowance below recorded spending is permitted; it freezes further spend in
// that category and is flagged on the audit stream.
func (c *Controller) SetAllowance(caller, recipient []byte, category Category, amount *big.Int) error {
	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if !validAddress(recipient) {
		return ErrInvalidAddress
	}
	if !category.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCategory, uint8(category))
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := c.st.KVPutBigInt(state.AllowanceKey(recipient, uint8(category)), amount); err != nil {
		return err
	}
	c.events.Emit(events.AllowanceUpdated{Actor: caller, Recipient: recipient, Category: uint8(category), Amount: amount})
	spent, err := c.st.KVGetBigInt(state.CategorySpendingKey(recipient, uint8(category)))
	if err != nil {
		return err
	}
	if spent.Cmp(amount) > 0 {
		c.events.Emit(events.AllowanceBelowSpent{Actor: caller, Recipient: recipient, Category: uint8(category), Allowance: amount, Spent: spent})
	}
	return nil
}

// SetAllAllowances overwrites the allowances of all five categories in one
// call, in ordinal order.
func (c *Controller) SetAllAllowances(caller, recipient []byte, amounts [NumCategories]*big.Int) error {
	for i, amount := range amounts {
		if err := c.SetAllowance(caller, recipient, Category(i), amount); err != nil {
			return err
		}
	}
	return nil
}

// SetDailyLimit stores a per-recipient daily limit override. Zero restores
// the system default.
func (c *Controller) SetDailyLimit(caller, recipient []byte, amount *big.Int) error {
	if err := c.requireAdmin(caller); err != nil {
		return err
	}
	if !validAddress(recipient) {
		return ErrInvalidAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := c.st.KVPutBigInt(state.DailyLimitKey(recipient), amount); err != nil {
		return err
	}
	c.events.Emit(events.DailyLimitUpdated{Actor: caller, Recipient: recipient, Amount: amount})
	return nil
}

func (c *Controller) reject(caller, merchant []byte, amount *big.Int, externalRef, reason string, err error) error {
	c.events.Emit(events.SpendingRejected{
		Recipient:   caller,
		Merchant:    merchant,
		Amount:      amount,
		Reason:      reason,
		ExternalRef: externalRef,
	})
	return err
}

// Spend validates and executes a recipient payment to a merchant. Every
// rejection is emitted as its own audit event before the typed error is
// returned; rejected attempts are a fraud signal downstream consumers rely
// on. The whole call runs under a single mutual-exclusion lock so no other
// spend can interleave between validation and execution.
func (c *Controller) Spend(caller, merchant []byte, amount *big.Int, externalRef string) (*Receipt, error) {
	if !validAddress(caller) || !validAddress(merchant) {
		return nil, ErrInvalidAddress
	}

	c.spendMu.Lock()
	defer c.spendMu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return nil, c.reject(caller, merchant, amount, externalRef, "invalid_amount", ErrInvalidAmount)
	}

	var record MerchantRecord
	exists, err := c.st.KVGet(state.MerchantKey(merchant), &record)
	if err != nil {
		return nil, err
	}
	if !exists || !record.Active {
		return nil, c.reject(caller, merchant, amount, externalRef, "merchant_not_active", ErrMerchantNotActive)
	}
	category := Category(record.Category)

	active, err := c.ledger.IsWhitelisted(caller)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, c.reject(caller, merchant, amount, externalRef, "not_whitelisted", ErrNotWhitelisted)
	}

	allowance, err := c.st.KVGetBigInt(state.AllowanceKey(caller, uint8(category)))
	if err != nil {
		return nil, err
	}
	spent, err := c.st.KVGetBigInt(state.CategorySpendingKey(caller, uint8(category)))
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(allowance, spent)
	if amount.Cmp(remaining) > 0 {
		return nil, c.reject(caller, merchant, amount, externalRef, "insufficient_allowance", ErrInsufficientAllowance)
	}

	dayBucket := uint64(c.now().Unix()) / secondsPerDay
	dailyLimit, err := c.effectiveDailyLimit(caller)
	if err != nil {
		return nil, err
	}
	dailySpent, err := c.st.KVGetBigInt(state.DailySpendingKey(caller, dayBucket))
	if err != nil {
		return nil, err
	}
	dailyRemaining := new(big.Int).Sub(dailyLimit, dailySpent)
	if amount.Cmp(dailyRemaining) > 0 {
		return nil, c.reject(caller, merchant, amount, externalRef, "daily_limit_exceeded", ErrDailyLimitExceeded)
	}

	balance, err := c.st.Balance(caller)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(balance) > 0 {
		return nil, c.reject(caller, merchant, amount, externalRef, "insufficient_balance", ErrInsufficientBalance)
	}

	controllerAddr, err := c.st.Controller()
	if err != nil {
		return nil, err
	}
	if len(controllerAddr) == 0 {
		return nil, ErrControllerNotSet
	}
	// Two-leg movement through the controller account: the only transfer
	// shape the ledger's restriction policy allows for recipient spend.
	if err := c.ledger.Transfer(caller, controllerAddr, amount); err != nil {
		return nil, err
	}
	if err := c.ledger.Transfer(controllerAddr, merchant, amount); err != nil {
		return nil, err
	}

	if err := c.st.KVPutBigInt(state.CategorySpendingKey(caller, uint8(category)), new(big.Int).Add(spent, amount)); err != nil {
		return nil, err
	}
	if err := c.st.KVPutBigInt(state.DailySpendingKey(caller, dayBucket), new(big.Int).Add(dailySpent, amount)); err != nil {
		return nil, err
	}
	if record.TotalReceived == nil {
		record.TotalReceived = big.NewInt(0)
	}
	record.TotalReceived = new(big.Int).Add(record.TotalReceived, amount)
	if err := c.st.KVPut(state.MerchantKey(merchant), &record); err != nil {
		return nil, err
	}
	txID, err := c.st.NextSpendTxID()
	if err != nil {
		return nil, err
	}
	c.events.Emit(events.SpendingExecuted{
		TxID:        txID,
		Recipient:   caller,
		Merchant:    merchant,
		Category:    uint8(category),
		Amount:      amount,
		ExternalRef: externalRef,
	})
	return &Receipt{TxID: txID, Category: category, Amount: amount}, nil
}

func (c *Controller) effectiveDailyLimit(recipient []byte) (*big.Int, error) {
	override, err := c.st.KVGetBigInt(state.DailyLimitKey(recipient))
	if err != nil {
		return nil, err
	}
	if override.Sign() > 0 {
		return override, nil
	}
	return c.st.DefaultDailyLimit()
}

// --- Queries ---

// GetRemainingAllowance returns allowance minus recorded spending for one
// category. A frozen category (allowance below spent) reports zero.
func (c *Controller) GetRemainingAllowance(recipient []byte, category Category) (*big.Int, error) {
	if !validAddress(recipient) {
		return nil, ErrInvalidAddress
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, uint8(category))
	}
	allowance, err := c.st.KVGetBigInt(state.AllowanceKey(recipient, uint8(category)))
	if err != nil {
		return nil, err
	}
	spent, err := c.st.KVGetBigInt(state.CategorySpendingKey(recipient, uint8(category)))
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(allowance, spent)
	if remaining.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return remaining, nil
}

// GetBeneficiaryStatus aggregates a recipient's allowances, spending,
// balance, and remaining daily budget for the current day bucket.
func (c *Controller) GetBeneficiaryStatus(recipient []byte) (*BeneficiaryStatus, error) {
	if !validAddress(recipient) {
		return nil, ErrInvalidAddress
	}
	status := &BeneficiaryStatus{}
	for i := 0; i < NumCategories; i++ {
		allowance, err := c.st.KVGetBigInt(state.AllowanceKey(recipient, uint8(i)))
		if err != nil {
			return nil, err
		}
		spent, err := c.st.KVGetBigInt(state.CategorySpendingKey(recipient, uint8(i)))
		if err != nil {
			return nil, err
		}
		status.Allowances[i] = allowance
		status.Spent[i] = spent
	}
	balance, err := c.st.Balance(recipient)
	if err != nil {
		return nil, err
	}
	status.Balance = balance
	dayBucket := uint64(c.now().Unix()) / secondsPerDay
	limit, err := c.effectiveDailyLimit(recipient)
	if err != nil {
		return nil, err
	}
	dailySpent, err := c.st.KVGetBigInt(state.DailySpendingKey(recipient, dayBucket))
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(limit, dailySpent)
	if remaining.Sign() < 0 {
		remaining = big.NewInt(0)
	}
	status.DailyRemaining = remaining
	return status, nil
}

// GetMerchantInfo returns the stored merchant record.
func (c *Controller) GetMerchantInfo(merchant []byte) (*MerchantRecord, error) {
	if !validAddress(merchant) {
		return nil, ErrInvalidAddress
	}
	var record MerchantRecord
	exists, err := c.st.KVGet(state.MerchantKey(merchant), &record)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMerchantNotActive
	}
	if record.TotalReceived == nil {
		record.TotalReceived = big.NewInt(0)
	}
	return &record, nil
}

// Merchants returns every merchant address ever registered.
func (c *Controller) Merchants() ([][]byte, error) {
	var merchants [][]byte
	if err := c.st.KVGetList(state.MerchantIndexKey(), &merchants); err != nil {
		return nil, err
	}
	return merchants, nil
}
