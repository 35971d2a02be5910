package events

import (
	"math/big"
	"strconv"

	"reliefchain/core/types"
)

const (
	// TypeMerchantRegistered is emitted when a merchant joins the registry.
	TypeMerchantRegistered = "spending.merchant.registered"
	// TypeMerchantDeactivated is emitted when a merchant is retired.
	TypeMerchantDeactivated = "spending.merchant.deactivated"
	// TypeAllowanceUpdated is emitted when an admin overwrites a category allowance.
	TypeAllowanceUpdated = "spending.allowance.updated"
	// TypeAllowanceBelowSpent flags an allowance lowered under the recorded
	// spending, which freezes further spend in that category.
	TypeAllowanceBelowSpent = "spending.allowance.below_spent"
	// TypeDailyLimitUpdated is emitted when a recipient's daily limit changes.
	TypeDailyLimitUpdated = "spending.daily_limit.updated"
	// TypeSpendingExecuted is emitted for every accepted spend.
	TypeSpendingExecuted = "spending.executed"
	// TypeSpendingRejected is emitted for every rejected spend attempt. The
	// fraud-review pipeline depends on these records.
	TypeSpendingRejected = "spending.rejected"
)

type MerchantRegistered struct {
	Actor    []byte
	Merchant []byte
	Name     string
	Category uint8
	Location string
}

func (MerchantRegistered) EventType() string { return TypeMerchantRegistered }

func (e MerchantRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeMerchantRegistered,
		Attributes: map[string]string{
			"actor":    addrString(e.Actor),
			"merchant": addrString(e.Merchant),
			"name":     e.Name,
			"category": strconv.FormatUint(uint64(e.Category), 10),
			"location": e.Location,
		},
	}
}

type MerchantDeactivated struct {
	Actor    []byte
	Merchant []byte
	Reason   string
}

func (MerchantDeactivated) EventType() string { return TypeMerchantDeactivated }

func (e MerchantDeactivated) Event() *types.Event {
	return &types.Event{
		Type: TypeMerchantDeactivated,
		Attributes: map[string]string{
			"actor":    addrString(e.Actor),
			"merchant": addrString(e.Merchant),
			"reason":   e.Reason,
		},
	}
}

type AllowanceUpdated struct {
	Actor     []byte
	Recipient []byte
	Category  uint8
	Amount    *big.Int
}

func (AllowanceUpdated) EventType() string { return TypeAllowanceUpdated }

func (e AllowanceUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeAllowanceUpdated,
		Attributes: map[string]string{
			"actor":     addrString(e.Actor),
			"recipient": addrString(e.Recipient),
			"category":  strconv.FormatUint(uint64(e.Category), 10),
			"amount":    amountString(e.Amount),
		},
	}
}

type AllowanceBelowSpent struct {
	Actor     []byte
	Recipient []byte
	Category  uint8
	Allowance *big.Int
	Spent     *big.Int
}

func (AllowanceBelowSpent) EventType() string { return TypeAllowanceBelowSpent }

func (e AllowanceBelowSpent) Event() *types.Event {
	return &types.Event{
		Type: TypeAllowanceBelowSpent,
		Attributes: map[string]string{
			"actor":     addrString(e.Actor),
			"recipient": addrString(e.Recipient),
			"category":  strconv.FormatUint(uint64(e.Category), 10),
			"allowance": amountString(e.Allowance),
			"spent":     amountString(e.Spent),
		},
	}
}

type DailyLimitUpdated struct {
	Actor     []byte
	Recipient []byte
	Amount    *big.Int
}

func (DailyLimitUpdated) EventType() string { return TypeDailyLimitUpdated }

func (e DailyLimitUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeDailyLimitUpdated,
		Attributes: map[string]string{
			"actor":     addrString(e.Actor),
			"recipient": addrString(e.Recipient),
			"amount":    amountString(e.Amount),
		},
	}
}

type SpendingExecuted struct {
	TxID        uint64
	Recipient   []byte
	Merchant    []byte
	Category    uint8
	Amount      *big.Int
	ExternalRef string
}

func (SpendingExecuted) EventType() string { return TypeSpendingExecuted }

func (e SpendingExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeSpendingExecuted,
		Attributes: map[string]string{
			"txId":        strconv.FormatUint(e.TxID, 10),
			"recipient":   addrString(e.Recipient),
			"merchant":    addrString(e.Merchant),
			"category":    strconv.FormatUint(uint64(e.Category), 10),
			"amount":      amountString(e.Amount),
			"externalRef": e.ExternalRef,
			"outcome":     "accepted",
		},
	}
}

type SpendingRejected struct {
	Recipient   []byte
	Merchant    []byte
	Amount      *big.Int
	Reason      string
	ExternalRef string
}

func (SpendingRejected) EventType() string { return TypeSpendingRejected }

func (e SpendingRejected) Event() *types.Event {
	return &types.Event{
		Type: TypeSpendingRejected,
		Attributes: map[string]string{
			"recipient":   addrString(e.Recipient),
			"merchant":    addrString(e.Merchant),
			"amount":      amountString(e.Amount),
			"reason":      e.Reason,
			"externalRef": e.ExternalRef,
			"outcome":     "rejected",
		},
	}
}
