package events

import (
	"math/big"
	"strconv"

	"reliefchain/core/types"
)

const (
	// TypeCampaignCreated is emitted when an admin registers a new campaign.
	TypeCampaignCreated = "campaign.created"
	// TypeCampaignStatusChanged is emitted on every lifecycle transition.
	TypeCampaignStatusChanged = "campaign.status.changed"
	// TypeCampaignFundsRaised is emitted when raised funds are recorded.
	TypeCampaignFundsRaised = "campaign.funds.raised"
	// TypeCampaignBeneficiaryAdded is emitted when a recipient is allocated.
	TypeCampaignBeneficiaryAdded = "campaign.beneficiary.added"
	// TypeCampaignDistributionRecorded is emitted when distribution bookkeeping
	// is updated for a beneficiary.
	TypeCampaignDistributionRecorded = "campaign.distribution.recorded"
)

type CampaignCreated struct {
	Actor        []byte
	CampaignID   uint64
	Name         string
	Region       string
	DisasterType string
	TargetAmount *big.Int
}

func (CampaignCreated) EventType() string { return TypeCampaignCreated }

func (e CampaignCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignCreated,
		Attributes: map[string]string{
			"actor":        addrString(e.Actor),
			"campaignId":   strconv.FormatUint(e.CampaignID, 10),
			"name":         e.Name,
			"region":       e.Region,
			"disasterType": e.DisasterType,
			"targetAmount": amountString(e.TargetAmount),
		},
	}
}

type CampaignStatusChanged struct {
	Actor      []byte
	CampaignID uint64
	OldStatus  string
	NewStatus  string
}

func (CampaignStatusChanged) EventType() string { return TypeCampaignStatusChanged }

func (e CampaignStatusChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignStatusChanged,
		Attributes: map[string]string{
			"actor":      addrString(e.Actor),
			"campaignId": strconv.FormatUint(e.CampaignID, 10),
			"oldStatus":  e.OldStatus,
			"newStatus":  e.NewStatus,
		},
	}
}

type CampaignFundsRaised struct {
	Actor      []byte
	CampaignID uint64
	Amount     *big.Int
}

func (CampaignFundsRaised) EventType() string { return TypeCampaignFundsRaised }

func (e CampaignFundsRaised) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignFundsRaised,
		Attributes: map[string]string{
			"actor":      addrString(e.Actor),
			"campaignId": strconv.FormatUint(e.CampaignID, 10),
			"amount":     amountString(e.Amount),
		},
	}
}

type CampaignBeneficiaryAdded struct {
	Actor      []byte
	CampaignID uint64
	Recipient  []byte
	Allocation *big.Int
}

func (CampaignBeneficiaryAdded) EventType() string { return TypeCampaignBeneficiaryAdded }

func (e CampaignBeneficiaryAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignBeneficiaryAdded,
		Attributes: map[string]string{
			"actor":      addrString(e.Actor),
			"campaignId": strconv.FormatUint(e.CampaignID, 10),
			"recipient":  addrString(e.Recipient),
			"allocation": amountString(e.Allocation),
		},
	}
}

type CampaignDistributionRecorded struct {
	Actor      []byte
	CampaignID uint64
	Recipient  []byte
	Amount     *big.Int
}

func (CampaignDistributionRecorded) EventType() string { return TypeCampaignDistributionRecorded }

func (e CampaignDistributionRecorded) Event() *types.Event {
	return &types.Event{
		Type: TypeCampaignDistributionRecorded,
		Attributes: map[string]string{
			"actor":      addrString(e.Actor),
			"campaignId": strconv.FormatUint(e.CampaignID, 10),
			"recipient":  addrString(e.Recipient),
			"amount":     amountString(e.Amount),
		},
	}
}
