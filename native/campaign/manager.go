package campaign

import (
	"fmt"
	"math/big"
	"time"

	"reliefchain/core/events"
	"reliefchain/core/state"
	"reliefchain/native/ledger"
)

// State describes the functionality the campaign manager needs from the
// surrounding state implementation.
type State interface {
	HasRole(role string, addr []byte) bool
	NextCampaignID() (uint64, error)
	CampaignFunds(id uint64) (*big.Int, error)
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	KVGetBigInt(key []byte) (*big.Int, error)
	KVPutBigInt(key []byte, amount *big.Int) error
}

// Manager owns the campaign lifecycle state machine and per-recipient
// allocation bookkeeping. It never moves token balances itself; the ledger
// does that in a separate call the node composes for atomicity.
type Manager struct {
	st     State
	events events.Emitter
	now    func() time.Time
}

// NewManager constructs a campaign manager over the provided state.
func NewManager(st State) *Manager {
	return &Manager{st: st, events: events.NoopEmitter{}, now: time.Now}
}

// SetEmitter installs the audit event sink.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	m.events = emitter
}

// SetNowFunc overrides the clock, used by tests to pin timestamps.
func (m *Manager) SetNowFunc(now func() time.Time) {
	if now != nil {
		m.now = now
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

func (m *Manager) requireAdmin(caller []byte) error {
	if !validAddress(caller) {
		return ErrInvalidAddress
	}
	if !m.st.HasRole(ledger.RoleAdmin, caller) {
		return fmt.Errorf("%w: caller lacks %s", ErrUnauthorized, ledger.RoleAdmin)
	}
	return nil
}

func (m *Manager) load(id uint64) (*Campaign, error) {
	var c Campaign
	exists, err := m.st.KVGet(state.CampaignKey(id), &c)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCampaignNotFound
	}
	if c.TargetAmount == nil {
		c.TargetAmount = big.NewInt(0)
	}
	if c.RaisedAmount == nil {
		c.RaisedAmount = big.NewInt(0)
	}
	if c.DistributedAmount == nil {
		c.DistributedAmount = big.NewInt(0)
	}
	return &c, nil
}

func (m *Manager) store(c *Campaign) error {
	return m.st.KVPut(state.CampaignKey(c.ID), c)
}

// CreateCampaign registers a new campaign in Draft status and assigns the
// next sequential identifier.
func (m *Manager) CreateCampaign(caller []byte, params CreateParams) (uint64, error) {
	if err := m.requireAdmin(caller); err != nil {
		return 0, err
	}
	if params.EndDate <= params.StartDate {
		return 0, ErrInvalidCampaignDates
	}
	if params.TargetAmount == nil || params.TargetAmount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	id, err := m.st.NextCampaignID()
	if err != nil {
		return 0, err
	}
	c := &Campaign{
		ID:                id,
		Name:              params.Name,
		Description:       params.Description,
		Region:            params.Region,
		DisasterType:      params.DisasterType,
		Status:            uint8(StatusDraft),
		TargetAmount:      params.TargetAmount,
		RaisedAmount:      big.NewInt(0),
		DistributedAmount: big.NewInt(0),
		CreatedAt:         uint64(m.now().Unix()),
		StartDate:         params.StartDate,
		EndDate:           params.EndDate,
		MetadataRef:       params.MetadataRef,
	}
	if err := m.store(c); err != nil {
		return 0, err
	}
	m.events.Emit(events.CampaignCreated{
		Actor:        caller,
		CampaignID:   id,
		Name:         params.Name,
		Region:       params.Region,
		DisasterType: params.DisasterType,
		TargetAmount: params.TargetAmount,
	})
	return id, nil
}

func (m *Manager) transition(caller []byte, id uint64, next Status) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	c, err := m.load(id)
	if err != nil {
		return err
	}
	old := Status(c.Status)
	if old.Terminal() {
		// Completed and cancelled campaigns are settled records; no status
		// change can reopen them.
		return ErrCampaignClosed
	}
	c.Status = uint8(next)
	if err := m.store(c); err != nil {
		return err
	}
	m.events.Emit(events.CampaignStatusChanged{
		Actor:      caller,
		CampaignID: id,
		OldStatus:  old.String(),
		NewStatus:  next.String(),
	})
	return nil
}

// Activate moves the campaign to Active.
func (m *Manager) Activate(caller []byte, id uint64) error {
	return m.transition(caller, id, StatusActive)
}

// Pause moves the campaign to Paused.
func (m *Manager) Pause(caller []byte, id uint64) error {
	return m.transition(caller, id, StatusPaused)
}

// Complete moves the campaign to the terminal Completed status.
func (m *Manager) Complete(caller []byte, id uint64) error {
	return m.transition(caller, id, StatusCompleted)
}

// Cancel moves the campaign to the terminal Cancelled status.
func (m *Manager) Cancel(caller []byte, id uint64) error {
	return m.transition(caller, id, StatusCancelled)
}

// RecordFundsRaised increments the campaign's raised counter. Called after a
// successful ledger mint attributed to the campaign.
func (m *Manager) RecordFundsRaised(caller []byte, id uint64, amount *big.Int) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	c, err := m.load(id)
	if err != nil {
		return err
	}
	c.RaisedAmount = new(big.Int).Add(c.RaisedAmount, amount)
	if err := m.store(c); err != nil {
		return err
	}
	m.events.Emit(events.CampaignFundsRaised{Actor: caller, CampaignID: id, Amount: amount})
	return nil
}

// AddBeneficiary allocates a recipient to the campaign. An allocation is set
// once per (campaign, recipient) pair; duplicates are rejected.
func (m *Manager) AddBeneficiary(caller []byte, id uint64, recipient []byte, allocation *big.Int) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	if !validAddress(recipient) {
		return ErrInvalidAddress
	}
	if allocation == nil || allocation.Sign() <= 0 {
		return ErrInvalidAmount
	}
	c, err := m.load(id)
	if err != nil {
		return err
	}
	exists, err := m.st.KVGet(state.CampaignBeneficiaryKey(id, recipient), nil)
	if err != nil {
		return err
	}
	if exists {
		return ErrBeneficiaryAlreadyInCampaign
	}
	if err := m.st.KVPutBigInt(state.CampaignBeneficiaryKey(id, recipient), allocation); err != nil {
		return err
	}
	if err := m.st.KVAppend(state.CampaignBeneficiaryIndexKey(id), recipient); err != nil {
		return err
	}
	c.BeneficiaryCount++
	if err := m.store(c); err != nil {
		return err
	}
	m.events.Emit(events.CampaignBeneficiaryAdded{Actor: caller, CampaignID: id, Recipient: recipient, Allocation: allocation})
	return nil
}

// RecordDistribution books a distribution against the campaign. The matching
// ledger movement is a separate call; the node's composed distribute command
// issues both inside one sequencer slot.
func (m *Manager) RecordDistribution(caller []byte, id uint64, recipient []byte, amount *big.Int) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	if !validAddress(recipient) {
		return ErrInvalidAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	c, err := m.load(id)
	if err != nil {
		return err
	}
	if Status(c.Status) != StatusActive {
		return ErrCampaignNotActive
	}
	available := new(big.Int).Sub(c.RaisedAmount, c.DistributedAmount)
	if amount.Cmp(available) > 0 {
		return ErrInsufficientFunds
	}
	c.DistributedAmount = new(big.Int).Add(c.DistributedAmount, amount)
	if err := m.store(c); err != nil {
		return err
	}
	m.events.Emit(events.CampaignDistributionRecorded{Actor: caller, CampaignID: id, Recipient: recipient, Amount: amount})
	return nil
}

// --- Queries ---

// GetCampaign returns the stored campaign.
func (m *Manager) GetCampaign(id uint64) (*Campaign, error) {
	return m.load(id)
}

// GetBeneficiaries returns every recipient allocated to the campaign.
func (m *Manager) GetBeneficiaries(id uint64) ([][]byte, error) {
	if _, err := m.load(id); err != nil {
		return nil, err
	}
	var recipients [][]byte
	if err := m.st.KVGetList(state.CampaignBeneficiaryIndexKey(id), &recipients); err != nil {
		return nil, err
	}
	return recipients, nil
}

// GetBeneficiaryAllocation returns the amount allocated to the recipient.
func (m *Manager) GetBeneficiaryAllocation(id uint64, recipient []byte) (*big.Int, error) {
	if !validAddress(recipient) {
		return nil, ErrInvalidAddress
	}
	if _, err := m.load(id); err != nil {
		return nil, err
	}
	exists, err := m.st.KVGet(state.CampaignBeneficiaryKey(id, recipient), nil)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrBeneficiaryNotInCampaign
	}
	return m.st.KVGetBigInt(state.CampaignBeneficiaryKey(id, recipient))
}

// GetStats returns the campaign's aggregate fund counters.
func (m *Manager) GetStats(id uint64) (*Stats, error) {
	c, err := m.load(id)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TargetAmount:      c.TargetAmount,
		RaisedAmount:      c.RaisedAmount,
		DistributedAmount: c.DistributedAmount,
		BeneficiaryCount:  c.BeneficiaryCount,
		Remaining:         new(big.Int).Sub(c.RaisedAmount, c.DistributedAmount),
	}, nil
}

// MintedFundTotal reports the cumulative amount minted under the campaign on
// the ledger, for reconciling the bookkeeping counters against token supply.
func (m *Manager) MintedFundTotal(id uint64) (*big.Int, error) {
	return m.st.CampaignFunds(id)
}
