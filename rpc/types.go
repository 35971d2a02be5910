package rpc

import "encoding/json"

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BalanceResult is the response payload for relief_getBalance.
type BalanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// RecipientResult is the response payload for relief_getRecipient.
type RecipientResult struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	Region       string `json:"region"`
	RegisteredAt uint64 `json:"registeredAt"`
	Active       bool   `json:"active"`
}

// WhitelistBatchResult is the response payload for relief_whitelistBatch.
type WhitelistBatchResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// SupplyResult is the response payload for relief_supply.
type SupplyResult struct {
	TotalMinted string `json:"totalMinted"`
	TotalBurned string `json:"totalBurned"`
	Circulating string `json:"circulating"`
	Paused      bool   `json:"paused"`
}

// MerchantResult is the response payload for spending_getMerchant.
type MerchantResult struct {
	Address       string `json:"address"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Location      string `json:"location"`
	Active        bool   `json:"active"`
	RegisteredAt  uint64 `json:"registeredAt"`
	TotalReceived string `json:"totalReceived"`
}

// SpendResult is the response payload for spending_spend.
type SpendResult struct {
	TxID     uint64 `json:"txId"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// BeneficiaryStatusResult is the response payload for spending_beneficiaryStatus.
type BeneficiaryStatusResult struct {
	Address        string            `json:"address"`
	Balance        string            `json:"balance"`
	DailyRemaining string            `json:"dailyRemaining"`
	Allowances     map[string]string `json:"allowances"`
	Spent          map[string]string `json:"spent"`
}

// CampaignResult is the response payload for campaign_get.
type CampaignResult struct {
	ID                uint64 `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Region            string `json:"region"`
	DisasterType      string `json:"disasterType"`
	Status            string `json:"status"`
	TargetAmount      string `json:"targetAmount"`
	RaisedAmount      string `json:"raisedAmount"`
	DistributedAmount string `json:"distributedAmount"`
	BeneficiaryCount  uint64 `json:"beneficiaryCount"`
	CreatedAt         uint64 `json:"createdAt"`
	StartDate         uint64 `json:"startDate"`
	EndDate           uint64 `json:"endDate"`
	MetadataRef       string `json:"metadataRef,omitempty"`
}

// CampaignStatsResult is the response payload for campaign_stats.
type CampaignStatsResult struct {
	ID                uint64 `json:"id"`
	TargetAmount      string `json:"targetAmount"`
	RaisedAmount      string `json:"raisedAmount"`
	DistributedAmount string `json:"distributedAmount"`
	BeneficiaryCount  uint64 `json:"beneficiaryCount"`
	Remaining         string `json:"remaining"`
}
