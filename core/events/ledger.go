package events

import (
	"math/big"
	"strconv"

	"reliefchain/core/types"
	"reliefchain/crypto"
)

const (
	// TypeRecipientWhitelisted is emitted when an admin approves a recipient.
	TypeRecipientWhitelisted = "ledger.whitelist.approved"
	// TypeRecipientDeactivated is emitted when an admin deactivates a recipient.
	TypeRecipientDeactivated = "ledger.whitelist.deactivated"
	// TypeRoleGranted is emitted when an admin grants a role.
	TypeRoleGranted = "ledger.role.granted"
	// TypeRoleRevoked is emitted when an admin revokes a role.
	TypeRoleRevoked = "ledger.role.revoked"
	// TypeMintSettled is emitted whenever a campaign-attributed mint completes.
	TypeMintSettled = "ledger.mint.settled"
	// TypeTransferExecuted is emitted for every successful balance movement.
	TypeTransferExecuted = "ledger.transfer.executed"
	// TypeFundsDistributed is emitted when a minter pushes balance to a recipient.
	TypeFundsDistributed = "ledger.funds.distributed"
	// TypeFundsBurned is emitted when a minter retires balance from circulation.
	TypeFundsBurned = "ledger.funds.burned"
	// TypeLedgerPaused is emitted when a pauser halts mint and transfer.
	TypeLedgerPaused = "ledger.paused"
	// TypeLedgerUnpaused is emitted when a pauser lifts the halt.
	TypeLedgerUnpaused = "ledger.unpaused"
)

func addrString(addr []byte) string {
	if len(addr) != 20 {
		return ""
	}
	return crypto.MustNewAddress(crypto.ReliefPrefix, addr).String()
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

type RecipientWhitelisted struct {
	Actor     []byte
	Recipient []byte
	Name      string
	Region    string
}

func (RecipientWhitelisted) EventType() string { return TypeRecipientWhitelisted }

func (e RecipientWhitelisted) Event() *types.Event {
	return &types.Event{
		Type: TypeRecipientWhitelisted,
		Attributes: map[string]string{
			"actor":     addrString(e.Actor),
			"recipient": addrString(e.Recipient),
			"name":      e.Name,
			"region":    e.Region,
		},
	}
}

type RecipientDeactivated struct {
	Actor     []byte
	Recipient []byte
	Reason    string
}

func (RecipientDeactivated) EventType() string { return TypeRecipientDeactivated }

func (e RecipientDeactivated) Event() *types.Event {
	return &types.Event{
		Type: TypeRecipientDeactivated,
		Attributes: map[string]string{
			"actor":     addrString(e.Actor),
			"recipient": addrString(e.Recipient),
			"reason":    e.Reason,
		},
	}
}

type RoleGranted struct {
	Actor   []byte
	Role    string
	Account []byte
}

func (RoleGranted) EventType() string { return TypeRoleGranted }

func (e RoleGranted) Event() *types.Event {
	return &types.Event{
		Type: TypeRoleGranted,
		Attributes: map[string]string{
			"actor":   addrString(e.Actor),
			"role":    e.Role,
			"account": addrString(e.Account),
		},
	}
}

type RoleRevoked struct {
	Actor   []byte
	Role    string
	Account []byte
}

func (RoleRevoked) EventType() string { return TypeRoleRevoked }

func (e RoleRevoked) Event() *types.Event {
	return &types.Event{
		Type: TypeRoleRevoked,
		Attributes: map[string]string{
			"actor":   addrString(e.Actor),
			"role":    e.Role,
			"account": addrString(e.Account),
		},
	}
}

type MintSettled struct {
	Actor      []byte
	Recipient  []byte
	Amount     *big.Int
	CampaignID uint64
	Purpose    string
}

func (MintSettled) EventType() string { return TypeMintSettled }

func (e MintSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeMintSettled,
		Attributes: map[string]string{
			"actor":      addrString(e.Actor),
			"recipient":  addrString(e.Recipient),
			"amount":     amountString(e.Amount),
			"campaignId": strconv.FormatUint(e.CampaignID, 10),
			"purpose":    e.Purpose,
		},
	}
}

type TransferExecuted struct {
	From   []byte
	To     []byte
	Amount *big.Int
}

func (TransferExecuted) EventType() string { return TypeTransferExecuted }

func (e TransferExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeTransferExecuted,
		Attributes: map[string]string{
			"from":   addrString(e.From),
			"to":     addrString(e.To),
			"amount": amountString(e.Amount),
		},
	}
}

type FundsDistributed struct {
	Actor      []byte
	Recipient  []byte
	Amount     *big.Int
	CampaignID uint64
}

func (FundsDistributed) EventType() string { return TypeFundsDistributed }

func (e FundsDistributed) Event() *types.Event {
	return &types.Event{
		Type: TypeFundsDistributed,
		Attributes: map[string]string{
			"actor":      addrString(e.Actor),
			"recipient":  addrString(e.Recipient),
			"amount":     amountString(e.Amount),
			"campaignId": strconv.FormatUint(e.CampaignID, 10),
		},
	}
}

type FundsBurned struct {
	Actor  []byte
	Amount *big.Int
	Reason string
}

func (FundsBurned) EventType() string { return TypeFundsBurned }

func (e FundsBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeFundsBurned,
		Attributes: map[string]string{
			"actor":  addrString(e.Actor),
			"amount": amountString(e.Amount),
			"reason": e.Reason,
		},
	}
}

type LedgerPaused struct {
	Actor []byte
}

func (LedgerPaused) EventType() string { return TypeLedgerPaused }

func (e LedgerPaused) Event() *types.Event {
	return &types.Event{
		Type:       TypeLedgerPaused,
		Attributes: map[string]string{"actor": addrString(e.Actor)},
	}
}

type LedgerUnpaused struct {
	Actor []byte
}

func (LedgerUnpaused) EventType() string { return TypeLedgerUnpaused }

func (e LedgerUnpaused) Event() *types.Event {
	return &types.Event{
		Type:       TypeLedgerUnpaused,
		Attributes: map[string]string{"actor": addrString(e.Actor)},
	}
}
