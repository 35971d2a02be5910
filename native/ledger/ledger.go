package ledger

import (
	"fmt"
	"math/big"
	"time"

	"reliefchain/core/events"
	"reliefchain/core/state"
)

// State describes the functionality the ledger engine needs from the
// surrounding state implementation.
type State interface {
	HasRole(role string, addr []byte) bool
	SetRole(role string, addr []byte) error
	RevokeRole(role string, addr []byte) error
	Balance(addr []byte) (*big.Int, error)
	SetBalance(addr []byte, amount *big.Int) error
	Paused() (bool, error)
	SetPaused(paused bool) error
	Controller() ([]byte, error)
	AddTotalMinted(amount *big.Int) error
	TotalMinted() (*big.Int, error)
	AddTotalBurned(amount *big.Int) error
	TotalBurned() (*big.Int, error)
	AddCampaignFunds(id uint64, amount *big.Int) error
	CampaignFunds(id uint64) (*big.Int, error)
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Engine owns balances, the recipient whitelist, and the transfer-restriction
// policy. Every mutating call is expected to run inside one sequencer slot;
// the engine itself does no locking.
type Engine struct {
	st     State
	events events.Emitter
	now    func() time.Time
}

// NewEngine constructs a ledger engine over the provided state.
func NewEngine(st State) *Engine {
	return &Engine{st: st, events: events.NoopEmitter{}, now: time.Now}
}

// SetEmitter installs the audit event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.events = emitter
}

// SetNowFunc overrides the clock, used by tests to pin timestamps.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now != nil {
		e.now = now
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

func (e *Engine) requireRole(caller []byte, role string) error {
	if !validAddress(caller) {
		return ErrInvalidAddress
	}
	if !e.st.HasRole(role, caller) {
		return fmt.Errorf("%w: caller lacks %s", ErrUnauthorized, role)
	}
	return nil
}

func (e *Engine) requireRunning() error {
	paused, err := e.st.Paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

// GrantRole assigns a ledger role. Only an existing admin may grant roles.
func (e *Engine) GrantRole(caller []byte, role string, account []byte) error {
	if err := e.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	if !ValidRole(role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if !validAddress(account) {
		return ErrInvalidAddress
	}
	if err := e.st.SetRole(role, account); err != nil {
		return err
	}
	e.events.Emit(events.RoleGranted{Actor: caller, Role: role, Account: account})
	return nil
}

// RevokeRole removes a ledger role. Only an existing admin may revoke roles.
func (e *Engine) RevokeRole(caller []byte, role string, account []byte) error {
	if err := e.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	if !ValidRole(role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if !validAddress(account) {
		return ErrInvalidAddress
	}
	if err := e.st.RevokeRole(role, account); err != nil {
		return err
	}
	e.events.Emit(events.RoleRevoked{Actor: caller, Role: role, Account: account})
	return nil
}

// Whitelist approves a recipient to hold and spend relief funds. An inactive
// entry may be re-approved; an active one is rejected.
func (e *Engine) Whitelist(caller, recipient []byte, name, region string) error {
	if err := e.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	if !validAddress(recipient) {
		return ErrInvalidAddress
	}
	var entry WhitelistEntry
	exists, err := e.st.KVGet(state.WhitelistKey(recipient), &entry)
	if err != nil {
		return err
	}
	if exists && entry.Active {
		return ErrAlreadyWhitelisted
	}
	entry = WhitelistEntry{
		Name:         name,
		Region:       region,
		RegisteredAt: uint64(e.now().Unix()),
		Active:       true,
	}
	if err := e.st.KVPut(state.WhitelistKey(recipient), &entry); err != nil {
		return err
	}
	if err := e.st.KVAppend(state.WhitelistIndexKey(), recipient); err != nil {
		return err
	}
	e.events.Emit(events.RecipientWhitelisted{Actor: caller, Recipient: recipient, Name: name, Region: region})
	return nil
}

// BatchEntry is one recipient in a bulk whitelist request.
type BatchEntry struct {
	Recipient []byte
	Name      string
	Region    string
}

// WhitelistBatch approves many recipients in one command, typically fed from
// a registration roster import. Entries that are already actively whitelisted
// are skipped and counted; an invalid address or missing authority aborts the
// whole batch so a partial roster never lands.
func (e *Engine) WhitelistBatch(caller []byte, entries []BatchEntry) (added, skipped int, err error) {
	if err := e.requireRole(caller, RoleAdmin); err != nil {
		return 0, 0, err
	}
	if len(entries) == 0 {
		return 0, 0, ErrEmptyBatch
	}
	for _, in := range entries {
		if !validAddress(in.Recipient) {
			return 0, 0, ErrInvalidAddress
		}
	}
	registeredAt := uint64(e.now().Unix())
	for _, in := range entries {
		var entry WhitelistEntry
		exists, err := e.st.KVGet(state.WhitelistKey(in.Recipient), &entry)
		if err != nil {
			return 0, 0, err
		}
		if exists && entry.Active {
			skipped++
			continue
		}
		entry = WhitelistEntry{
			Name:         in.Name,
			Region:       in.Region,
			RegisteredAt: registeredAt,
			Active:       true,
		}
		if err := e.st.KVPut(state.WhitelistKey(in.Recipient), &entry); err != nil {
			return 0, 0, err
		}
		if err := e.st.KVAppend(state.WhitelistIndexKey(), in.Recipient); err != nil {
			return 0, 0, err
		}
		e.events.Emit(events.RecipientWhitelisted{Actor: caller, Recipient: in.Recipient, Name: in.Name, Region: in.Region})
		added++
	}
	return added, skipped, nil
}

// Deactivate marks a recipient ineligible for further funds. The entry stays
// in state to preserve audit history.
func (e *Engine) Deactivate(caller, recipient []byte, reason string) error {
	if err := e.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	if !validAddress(recipient) {
		return ErrInvalidAddress
	}
	var entry WhitelistEntry
	exists, err := e.st.KVGet(state.WhitelistKey(recipient), &entry)
	if err != nil {
		return err
	}
	if !exists || !entry.Active {
		return ErrNotWhitelisted
	}
	entry.Active = false
	if err := e.st.KVPut(state.WhitelistKey(recipient), &entry); err != nil {
		return err
	}
	e.events.Emit(events.RecipientDeactivated{Actor: caller, Recipient: recipient, Reason: reason})
	return nil
}

// Mint issues new balance to an admin, minter, or active whitelisted
// recipient, attributing the amount to the given campaign.
func (e *Engine) Mint(caller, to []byte, amount *big.Int, campaignID uint64, purpose string) error {
	if err := e.requireRole(caller, RoleMinter); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}
	if !validAddress(to) {
		return ErrInvalidAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	eligible := e.st.HasRole(RoleAdmin, to) || e.st.HasRole(RoleMinter, to)
	if !eligible {
		active, err := e.isActiveRecipient(to)
		if err != nil {
			return err
		}
		if !active {
			return ErrNotWhitelisted
		}
	}
	balance, err := e.st.Balance(to)
	if err != nil {
		return err
	}
	if err := e.st.SetBalance(to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	if err := e.st.AddTotalMinted(amount); err != nil {
		return err
	}
	if err := e.st.AddCampaignFunds(campaignID, amount); err != nil {
		return err
	}
	e.events.Emit(events.MintSettled{Actor: caller, Recipient: to, Amount: amount, CampaignID: campaignID, Purpose: purpose})
	return nil
}

// Transfer moves balance under the restriction policy. Value can only move
// recipient -> controller -> merchant or admin/minter -> recipient; direct
// recipient-to-recipient movement is rejected so category controls cannot be
// bypassed. A zero amount is an allowed administrative no-op.
func (e *Engine) Transfer(from, to []byte, amount *big.Int) error {
	if !validAddress(from) || !validAddress(to) {
		return ErrInvalidAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := e.requireRunning(); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		e.events.Emit(events.TransferExecuted{From: from, To: to, Amount: amount})
		return nil
	}
	allowed, err := e.transferAllowed(from, to)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrTransferNotAllowed
	}
	fromBalance, err := e.st.Balance(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := e.st.Balance(to)
	if err != nil {
		return err
	}
	if err := e.st.SetBalance(from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := e.st.SetBalance(to, new(big.Int).Add(toBalance, amount)); err != nil {
		return err
	}
	e.events.Emit(events.TransferExecuted{From: from, To: to, Amount: amount})
	return nil
}

func (e *Engine) transferAllowed(from, to []byte) (bool, error) {
	if e.st.HasRole(RoleAdmin, from) || e.st.HasRole(RoleMinter, from) {
		return true, nil
	}
	controller, err := e.st.Controller()
	if err != nil {
		return false, err
	}
	if len(controller) == 0 {
		return false, nil
	}
	if string(controller) == string(from) || string(controller) == string(to) {
		return true, nil
	}
	return false, nil
}

// DistributeFunds pushes balance from the calling minter to an active
// whitelisted recipient.
func (e *Engine) DistributeFunds(caller, to []byte, amount *big.Int, campaignID uint64) error {
	if err := e.requireRole(caller, RoleMinter); err != nil {
		return err
	}
	if !validAddress(to) {
		return ErrInvalidAddress
	}
	active, err := e.isActiveRecipient(to)
	if err != nil {
		return err
	}
	if !active {
		return ErrNotWhitelisted
	}
	if err := e.Transfer(caller, to, amount); err != nil {
		return err
	}
	e.events.Emit(events.FundsDistributed{Actor: caller, Recipient: to, Amount: amount, CampaignID: campaignID})
	return nil
}

// Burn retires balance from the caller's own holdings, shrinking total
// supply. Used to recall unspent campaign funds.
func (e *Engine) Burn(caller []byte, amount *big.Int, reason string) error {
	if err := e.requireRole(caller, RoleMinter); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.st.Balance(caller)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := e.st.SetBalance(caller, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := e.st.AddTotalBurned(amount); err != nil {
		return err
	}
	e.events.Emit(events.FundsBurned{Actor: caller, Amount: amount, Reason: reason})
	return nil
}

// Pause halts mint and transfer until a pauser lifts it.
func (e *Engine) Pause(caller []byte) error {
	if err := e.requireRole(caller, RolePauser); err != nil {
		return err
	}
	if err := e.st.SetPaused(true); err != nil {
		return err
	}
	e.events.Emit(events.LedgerPaused{Actor: caller})
	return nil
}

// Unpause lifts the global halt.
func (e *Engine) Unpause(caller []byte) error {
	if err := e.requireRole(caller, RolePauser); err != nil {
		return err
	}
	if err := e.st.SetPaused(false); err != nil {
		return err
	}
	e.events.Emit(events.LedgerUnpaused{Actor: caller})
	return nil
}

func (e *Engine) isActiveRecipient(addr []byte) (bool, error) {
	var entry WhitelistEntry
	exists, err := e.st.KVGet(state.WhitelistKey(addr), &entry)
	if err != nil {
		return false, err
	}
	return exists && entry.Active, nil
}

// --- Queries ---

// BalanceOf returns the current balance for the account.
func (e *Engine) BalanceOf(addr []byte) (*big.Int, error) {
	if !validAddress(addr) {
		return nil, ErrInvalidAddress
	}
	return e.st.Balance(addr)
}

// IsWhitelisted reports whether the recipient currently holds an active
// whitelist entry.
func (e *Engine) IsWhitelisted(addr []byte) (bool, error) {
	if !validAddress(addr) {
		return false, ErrInvalidAddress
	}
	return e.isActiveRecipient(addr)
}

// WhitelistInfo returns the stored whitelist entry for a recipient.
func (e *Engine) WhitelistInfo(addr []byte) (*WhitelistEntry, error) {
	if !validAddress(addr) {
		return nil, ErrInvalidAddress
	}
	var entry WhitelistEntry
	exists, err := e.st.KVGet(state.WhitelistKey(addr), &entry)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotWhitelisted
	}
	return &entry, nil
}

// WhitelistedRecipients returns every recipient ever approved, active or not.
func (e *Engine) WhitelistedRecipients() ([][]byte, error) {
	var recipients [][]byte
	if err := e.st.KVGetList(state.WhitelistIndexKey(), &recipients); err != nil {
		return nil, err
	}
	return recipients, nil
}

// CampaignFundTotal returns the cumulative amount minted under the campaign.
func (e *Engine) CampaignFundTotal(campaignID uint64) (*big.Int, error) {
	return e.st.CampaignFunds(campaignID)
}

// TotalMinted returns the cumulative minted supply.
func (e *Engine) TotalMinted() (*big.Int, error) {
	return e.st.TotalMinted()
}

// TotalBurned returns the cumulative burned supply.
func (e *Engine) TotalBurned() (*big.Int, error) {
	return e.st.TotalBurned()
}

// Paused reports whether the ledger is currently halted.
func (e *Engine) Paused() (bool, error) {
	return e.st.Paused()
}
