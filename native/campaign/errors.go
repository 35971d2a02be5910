package campaign

import "errors"

var (
	ErrUnauthorized                 = errors.New("campaign: unauthorized")
	ErrInvalidAddress               = errors.New("campaign: invalid address")
	ErrInvalidAmount                = errors.New("campaign: invalid amount")
	ErrInvalidCampaignDates         = errors.New("campaign: end date must be after start date")
	ErrCampaignNotFound             = errors.New("campaign: not found")
	ErrCampaignNotActive            = errors.New("campaign: not active")
	ErrCampaignClosed               = errors.New("campaign: already completed or cancelled")
	ErrInsufficientFunds            = errors.New("campaign: insufficient raised funds")
	ErrBeneficiaryAlreadyInCampaign = errors.New("campaign: beneficiary already allocated")
	ErrBeneficiaryNotInCampaign     = errors.New("campaign: beneficiary not allocated")
)
