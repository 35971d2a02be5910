package rpc

import (
	"errors"
	"net/http"

	"reliefchain/native/campaign"
	"reliefchain/native/ledger"
	"reliefchain/native/spending"
)

const (
	codeParseError      = -32700
	codeInvalidRequest  = -32600
	codeMethodNotFound  = -32601
	codeInvalidParams   = -32602
	codeServerError     = -32000
	codeUnauthorized    = -32001
	codeNotFound        = -32004
	codeRateLimited     = -32020
	codePolicyRejection = -32030
	codeLedgerPaused    = -32031
)

// mapError translates engine sentinels into JSON-RPC error codes so clients
// can react without parsing message strings.
func mapError(err error) (status int, code int, message string) {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized),
		errors.Is(err, spending.ErrUnauthorized),
		errors.Is(err, campaign.ErrUnauthorized):
		return http.StatusForbidden, codeUnauthorized, err.Error()
	case errors.Is(err, ledger.ErrPaused):
		return http.StatusConflict, codeLedgerPaused, err.Error()
	case errors.Is(err, ledger.ErrNotWhitelisted),
		errors.Is(err, campaign.ErrCampaignNotFound),
		errors.Is(err, campaign.ErrBeneficiaryNotInCampaign):
		return http.StatusNotFound, codeNotFound, err.Error()
	case errors.Is(err, ledger.ErrInvalidAddress),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrUnknownRole),
		errors.Is(err, ledger.ErrEmptyBatch),
		errors.Is(err, spending.ErrInvalidAddress),
		errors.Is(err, spending.ErrInvalidCategory),
		errors.Is(err, campaign.ErrInvalidAddress),
		errors.Is(err, campaign.ErrInvalidAmount),
		errors.Is(err, campaign.ErrInvalidCampaignDates):
		return http.StatusBadRequest, codeInvalidParams, err.Error()
	case spending.IsPolicyRejection(err):
		return http.StatusUnprocessableEntity, codePolicyRejection, err.Error()
	case errors.Is(err, ledger.ErrAlreadyWhitelisted),
		errors.Is(err, ledger.ErrTransferNotAllowed),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, spending.ErrMerchantAlreadyExists),
		errors.Is(err, campaign.ErrInsufficientFunds),
		errors.Is(err, campaign.ErrBeneficiaryAlreadyInCampaign),
		errors.Is(err, campaign.ErrCampaignNotActive),
		errors.Is(err, campaign.ErrCampaignClosed):
		return http.StatusConflict, codePolicyRejection, err.Error()
	}
	return http.StatusInternalServerError, codeServerError, err.Error()
}
