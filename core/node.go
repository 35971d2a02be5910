package core

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"reliefchain/core/events"
	"reliefchain/core/state"
	"reliefchain/core/types"
	"reliefchain/native/campaign"
	"reliefchain/native/ledger"
	"reliefchain/native/spending"
	"reliefchain/observability/metrics"
	"reliefchain/storage"
)

// defaultBacklogLimit bounds the in-memory event backlog served to late
// subscribers. Consumers needing full history must persist the stream.
const defaultBacklogLimit = 4096

// Node is the single logical sequencer in front of the state store. Every
// mutating command runs alone, against an overlay that is committed on
// success and discarded on failure, so each call is atomic: it either fully
// applies or has no effect.
type Node struct {
	db  storage.Database
	mu  sync.RWMutex
	now func() time.Time

	feedMu       sync.Mutex
	eventSeq     uint64
	backlog      []*types.Event
	backlogLimit int
	subscribers  map[uint64]chan *types.Event
	nextSubID    uint64
}

// NewNode creates a sequencer over the provided store.
func NewNode(db storage.Database) *Node {
	return &Node{
		db:           db,
		now:          time.Now,
		backlogLimit: defaultBacklogLimit,
		subscribers:  make(map[uint64]chan *types.Event),
	}
}

// SetEventBacklog overrides the retained event backlog size. It must be
// called before the node starts serving; non-positive limits are ignored.
func (n *Node) SetEventBacklog(limit int) {
	if limit > 0 {
		n.backlogLimit = limit
	}
}

// SetNowFunc overrides the clock, used by tests to pin timestamps and cross
// day buckets.
func (n *Node) SetNowFunc(now func() time.Time) {
	if now != nil {
		n.now = now
	}
}

// engines bundles the three components wired over one command overlay.
type engines struct {
	ledger     *ledger.Engine
	controller *spending.Controller
	campaigns  *campaign.Manager
	manager    *state.Manager
}

type bufferEmitter struct {
	buffered []*types.Event
}

func (b *bufferEmitter) Emit(evt events.Event) {
	b.buffered = append(b.buffered, evt.Event())
}

func (n *Node) newEngines(db storage.Database, emitter events.Emitter) *engines {
	manager := state.NewManager(db)
	led := ledger.NewEngine(manager)
	led.SetNowFunc(n.now)
	ctrl := spending.NewController(manager, led)
	ctrl.SetNowFunc(n.now)
	camp := campaign.NewManager(manager)
	camp.SetNowFunc(n.now)
	if emitter != nil {
		led.SetEmitter(emitter)
		ctrl.SetEmitter(emitter)
		camp.SetEmitter(emitter)
	}
	return &engines{ledger: led, controller: ctrl, campaigns: camp, manager: manager}
}

// execute runs one mutating command to completion under the sequencer lock.
// Audit events are buffered and only published once the outcome is known:
// on success they accompany the committed state, on a spend policy rejection
// the rejection record is published alone, and on any other failure nothing
// escapes.
func (n *Node) execute(fn func(env *engines) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	overlay := storage.NewOverlay(n.db)
	buf := &bufferEmitter{}
	env := n.newEngines(overlay, buf)

	err := fn(env)
	if err == nil {
		if cerr := overlay.Commit(); cerr != nil {
			return cerr
		}
		n.publish(buf.buffered)
		return nil
	}
	overlay.Discard()
	if spending.IsPolicyRejection(err) {
		// Rejected spend attempts write no state but their audit record
		// must survive for fraud review.
		n.publish(buf.buffered)
	}
	return err
}

// view opens a read-only snapshot of committed state. The shared lock keeps
// queries from interleaving with an in-flight command and its commit, so a
// reader can never observe a half-applied spend. The returned release func
// must be called once the query is done.
func (n *Node) view() (*engines, func()) {
	n.mu.RLock()
	return n.newEngines(n.db, nil), n.mu.RUnlock
}

func (n *Node) publish(batch []*types.Event) {
	if len(batch) == 0 {
		return
	}
	n.feedMu.Lock()
	defer n.feedMu.Unlock()
	stamp := n.now().Unix()
	for _, evt := range batch {
		n.eventSeq++
		evt.Sequence = n.eventSeq
		evt.Timestamp = stamp
		metrics.Ledger().RecordEventPublished()
		n.backlog = append(n.backlog, evt)
		if len(n.backlog) > n.backlogLimit {
			n.backlog = n.backlog[len(n.backlog)-n.backlogLimit:]
		}
		for _, sub := range n.subscribers {
			select {
			case sub <- evt:
			default:
				// Slow subscribers miss live events; they can reconnect
				// with a cursor and replay from the backlog.
			}
		}
	}
}

// SubscribeEvents registers a live event subscriber. Backlogged events with a
// sequence greater than cursor are returned immediately; subsequent events
// arrive on the channel until cancel is called or the context ends.
func (n *Node) SubscribeEvents(ctx context.Context, cursor uint64) (<-chan *types.Event, func(), []*types.Event, error) {
	n.feedMu.Lock()
	defer n.feedMu.Unlock()

	var replay []*types.Event
	for _, evt := range n.backlog {
		if evt.Sequence > cursor {
			replay = append(replay, evt)
		}
	}
	ch := make(chan *types.Event, 256)
	id := n.nextSubID
	n.nextSubID++
	n.subscribers[id] = ch
	metrics.Ledger().SetSubscribers(len(n.subscribers))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.feedMu.Lock()
			delete(n.subscribers, id)
			metrics.Ledger().SetSubscribers(len(n.subscribers))
			n.feedMu.Unlock()
			close(ch)
		})
	}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return ch, cancel, replay, nil
}

// --- Ledger commands ---

func (n *Node) WhitelistRecipient(caller, recipient []byte, name, region string) error {
	return n.execute(func(env *engines) error {
		return env.ledger.Whitelist(caller, recipient, name, region)
	})
}

// WhitelistBatchRecipients approves a roster of recipients in one atomic
// command and reports how many entries were added versus already active.
func (n *Node) WhitelistBatchRecipients(caller []byte, entries []ledger.BatchEntry) (added, skipped int, err error) {
	err = n.execute(func(env *engines) error {
		var innerErr error
		added, skipped, innerErr = env.ledger.WhitelistBatch(caller, entries)
		return innerErr
	})
	if err != nil {
		return 0, 0, err
	}
	return added, skipped, nil
}

func (n *Node) DeactivateRecipient(caller, recipient []byte, reason string) error {
	return n.execute(func(env *engines) error {
		return env.ledger.Deactivate(caller, recipient, reason)
	})
}

func (n *Node) GrantRole(caller []byte, role string, account []byte) error {
	return n.execute(func(env *engines) error {
		return env.ledger.GrantRole(caller, role, account)
	})
}

func (n *Node) RevokeRole(caller []byte, role string, account []byte) error {
	return n.execute(func(env *engines) error {
		return env.ledger.RevokeRole(caller, role, account)
	})
}

func (n *Node) Mint(caller, to []byte, amount *big.Int, campaignID uint64, purpose string) error {
	err := n.execute(func(env *engines) error {
		return env.ledger.Mint(caller, to, amount, campaignID, purpose)
	})
	if err == nil {
		metrics.Ledger().RecordMint()
	}
	return err
}

func (n *Node) Transfer(from, to []byte, amount *big.Int) error {
	return n.execute(func(env *engines) error {
		return env.ledger.Transfer(from, to, amount)
	})
}

func (n *Node) DistributeFunds(caller, to []byte, amount *big.Int, campaignID uint64) error {
	err := n.execute(func(env *engines) error {
		return env.ledger.DistributeFunds(caller, to, amount, campaignID)
	})
	if err == nil {
		metrics.Ledger().RecordDistribution()
	}
	return err
}

func (n *Node) Burn(caller []byte, amount *big.Int, reason string) error {
	return n.execute(func(env *engines) error {
		return env.ledger.Burn(caller, amount, reason)
	})
}

func (n *Node) PauseLedger(caller []byte) error {
	return n.execute(func(env *engines) error {
		return env.ledger.Pause(caller)
	})
}

func (n *Node) UnpauseLedger(caller []byte) error {
	return n.execute(func(env *engines) error {
		return env.ledger.Unpause(caller)
	})
}

// --- Spending commands ---

func (n *Node) RegisterMerchant(caller, merchant []byte, name string, category spending.Category, location string) error {
	return n.execute(func(env *engines) error {
		return env.controller.RegisterMerchant(caller, merchant, name, category, location)
	})
}

func (n *Node) DeactivateMerchant(caller, merchant []byte, reason string) error {
	return n.execute(func(env *engines) error {
		return env.controller.DeactivateMerchant(caller, merchant, reason)
	})
}

func (n *Node) SetAllowance(caller, recipient []byte, category spending.Category, amount *big.Int) error {
	return n.execute(func(env *engines) error {
		return env.controller.SetAllowance(caller, recipient, category, amount)
	})
}

func (n *Node) SetAllAllowances(caller, recipient []byte, amounts [spending.NumCategories]*big.Int) error {
	return n.execute(func(env *engines) error {
		return env.controller.SetAllAllowances(caller, recipient, amounts)
	})
}

func (n *Node) SetDailyLimit(caller, recipient []byte, amount *big.Int) error {
	return n.execute(func(env *engines) error {
		return env.controller.SetDailyLimit(caller, recipient, amount)
	})
}

func (n *Node) Spend(caller, merchant []byte, amount *big.Int, externalRef string) (*spending.Receipt, error) {
	var receipt *spending.Receipt
	err := n.execute(func(env *engines) error {
		var serr error
		receipt, serr = env.controller.Spend(caller, merchant, amount, externalRef)
		return serr
	})
	switch {
	case err == nil:
		metrics.Ledger().RecordSpend("accepted", "")
	case spending.IsPolicyRejection(err):
		metrics.Ledger().RecordSpend("rejected", rejectionReason(err))
	}
	return receipt, err
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, spending.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, spending.ErrMerchantNotActive):
		return "merchant_not_active"
	case errors.Is(err, spending.ErrNotWhitelisted):
		return "not_whitelisted"
	case errors.Is(err, spending.ErrInsufficientAllowance):
		return "insufficient_allowance"
	case errors.Is(err, spending.ErrDailyLimitExceeded):
		return "daily_limit_exceeded"
	case errors.Is(err, spending.ErrInsufficientBalance):
		return "insufficient_balance"
	}
	return "other"
}

// --- Campaign commands ---

func (n *Node) CreateCampaign(caller []byte, params campaign.CreateParams) (uint64, error) {
	var id uint64
	err := n.execute(func(env *engines) error {
		var cerr error
		id, cerr = env.campaigns.CreateCampaign(caller, params)
		return cerr
	})
	return id, err
}

func (n *Node) ActivateCampaign(caller []byte, id uint64) error {
	return n.execute(func(env *engines) error {
		return env.campaigns.Activate(caller, id)
	})
}

func (n *Node) PauseCampaign(caller []byte, id uint64) error {
	return n.execute(func(env *engines) error {
		return env.campaigns.Pause(caller, id)
	})
}

func (n *Node) CompleteCampaign(caller []byte, id uint64) error {
	return n.execute(func(env *engines) error {
		return env.campaigns.Complete(caller, id)
	})
}

func (n *Node) CancelCampaign(caller []byte, id uint64) error {
	return n.execute(func(env *engines) error {
		return env.campaigns.Cancel(caller, id)
	})
}

func (n *Node) RecordFundsRaised(caller []byte, id uint64, amount *big.Int) error {
	return n.execute(func(env *engines) error {
		return env.campaigns.RecordFundsRaised(caller, id, amount)
	})
}

func (n *Node) AddCampaignBeneficiary(caller []byte, id uint64, recipient []byte, allocation *big.Int) error {
	return n.execute(func(env *engines) error {
		return env.campaigns.AddBeneficiary(caller, id, recipient, allocation)
	})
}

// RecordDistribution books a distribution against the campaign without
// moving balance, for callers that mirror the original two-step choreography.
func (n *Node) RecordDistribution(caller []byte, id uint64, recipient []byte, amount *big.Int) error {
	return n.execute(func(env *engines) error {
		return env.campaigns.RecordDistribution(caller, id, recipient, amount)
	})
}

// DistributeToBeneficiary performs the campaign bookkeeping and the ledger
// movement inside one sequencer slot. Either both apply or neither does, so
// the campaign counters and token balances cannot diverge.
func (n *Node) DistributeToBeneficiary(caller []byte, id uint64, recipient []byte, amount *big.Int) error {
	return n.execute(func(env *engines) error {
		if err := env.campaigns.RecordDistribution(caller, id, recipient, amount); err != nil {
			return err
		}
		return env.ledger.DistributeFunds(caller, recipient, amount, id)
	})
}

// --- Queries ---

func (n *Node) BalanceOf(addr []byte) (*big.Int, error) {
	env, release := n.view()
	defer release()
	return env.ledger.BalanceOf(addr)
}

func (n *Node) IsWhitelisted(addr []byte) (bool, error) {
	env, release := n.view()
	defer release()
	return env.ledger.IsWhitelisted(addr)
}

func (n *Node) WhitelistInfo(addr []byte) (*ledger.WhitelistEntry, error) {
	env, release := n.view()
	defer release()
	return env.ledger.WhitelistInfo(addr)
}

func (n *Node) WhitelistedRecipients() ([][]byte, error) {
	env, release := n.view()
	defer release()
	return env.ledger.WhitelistedRecipients()
}

func (n *Node) CampaignFundTotal(id uint64) (*big.Int, error) {
	env, release := n.view()
	defer release()
	return env.ledger.CampaignFundTotal(id)
}

func (n *Node) TotalMinted() (*big.Int, error) {
	env, release := n.view()
	defer release()
	return env.ledger.TotalMinted()
}

func (n *Node) TotalBurned() (*big.Int, error) {
	env, release := n.view()
	defer release()
	return env.ledger.TotalBurned()
}

func (n *Node) LedgerPaused() (bool, error) {
	env, release := n.view()
	defer release()
	return env.ledger.Paused()
}

func (n *Node) RemainingAllowance(recipient []byte, category spending.Category) (*big.Int, error) {
	env, release := n.view()
	defer release()
	return env.controller.GetRemainingAllowance(recipient, category)
}

func (n *Node) BeneficiaryStatus(recipient []byte) (*spending.BeneficiaryStatus, error) {
	env, release := n.view()
	defer release()
	return env.controller.GetBeneficiaryStatus(recipient)
}

func (n *Node) MerchantInfo(merchant []byte) (*spending.MerchantRecord, error) {
	env, release := n.view()
	defer release()
	return env.controller.GetMerchantInfo(merchant)
}

func (n *Node) Merchants() ([][]byte, error) {
	env, release := n.view()
	defer release()
	return env.controller.Merchants()
}

func (n *Node) GetCampaign(id uint64) (*campaign.Campaign, error) {
	env, release := n.view()
	defer release()
	return env.campaigns.GetCampaign(id)
}

func (n *Node) CampaignStats(id uint64) (*campaign.Stats, error) {
	env, release := n.view()
	defer release()
	return env.campaigns.GetStats(id)
}

func (n *Node) CampaignBeneficiaries(id uint64) ([][]byte, error) {
	env, release := n.view()
	defer release()
	return env.campaigns.GetBeneficiaries(id)
}

func (n *Node) BeneficiaryAllocation(id uint64, recipient []byte) (*big.Int, error) {
	env, release := n.view()
	defer release()
	return env.campaigns.GetBeneficiaryAllocation(id, recipient)
}
