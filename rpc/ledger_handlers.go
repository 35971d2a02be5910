package rpc

import (
	"log/slog"
	"math/big"
	"net/http"

	"reliefchain/native/ledger"
	"reliefchain/observability/logging"
)

type whitelistParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Region    string `json:"region"`
}

type whitelistBatchEntry struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Region    string `json:"region"`
}

type whitelistBatchParams struct {
	Caller     string                `json:"caller"`
	Recipients []whitelistBatchEntry `json:"recipients"`
}

type deactivateParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason,omitempty"`
}

type roleParams struct {
	Caller  string `json:"caller"`
	Role    string `json:"role"`
	Account string `json:"account"`
}

type mintParams struct {
	Caller     string `json:"caller"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	CampaignID uint64 `json:"campaignId,omitempty"`
	Purpose    string `json:"purpose,omitempty"`
}

type transferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type distributeParams struct {
	Caller     string `json:"caller"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	CampaignID uint64 `json:"campaignId,omitempty"`
}

type burnParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type addressParams struct {
	Address string `json:"address"`
}

type campaignIDParams struct {
	CampaignID uint64 `json:"campaignId"`
}

func (s *Server) handleWhitelistRecipient(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params whitelistParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	recipient, err := decodeBech32(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	if err := s.node.WhitelistRecipient(caller, recipient, params.Name, params.Region); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	// Beneficiary names and regions are personal data and only ever reach
	// the log masked.
	s.logger.Info("recipient whitelisted",
		slog.String("method", "relief_whitelistRecipient"),
		logging.MaskField("name", params.Name),
		logging.MaskField("region", params.Region),
	)
	writeResult(w, req.ID, map[string]bool{"approved": true})
}

func (s *Server) handleWhitelistBatch(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params whitelistBatchParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	entries := make([]ledger.BatchEntry, 0, len(params.Recipients))
	for _, in := range params.Recipients {
		recipient, err := decodeBech32(in.Recipient)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
			return
		}
		entries = append(entries, ledger.BatchEntry{Recipient: recipient, Name: in.Name, Region: in.Region})
	}
	added, skipped, err := s.node.WhitelistBatchRecipients(caller, entries)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.logger.Info("recipient roster whitelisted",
		slog.String("method", "relief_whitelistBatch"),
		slog.Int("added", added),
		slog.Int("skipped", skipped),
	)
	writeResult(w, req.ID, WhitelistBatchResult{Added: added, Skipped: skipped})
}

func (s *Server) handleDeactivateRecipient(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params deactivateParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	recipient, err := decodeBech32(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	if err := s.node.DeactivateRecipient(caller, recipient, params.Reason); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"deactivated": true})
}

func (s *Server) handleGrantRole(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleRoleChange(w, req, s.node.GrantRole)
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleRoleChange(w, req, s.node.RevokeRole)
}

func (s *Server) handleRoleChange(w http.ResponseWriter, req *RPCRequest, apply func([]byte, string, []byte) error) {
	var params roleParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	account, err := decodeBech32(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	if err := apply(caller, params.Role, account); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"applied": true})
}

func (s *Server) handleMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params mintParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	to, err := decodeBech32(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid destination address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Mint(caller, to, amount, params.CampaignID, params.Purpose); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"minted": true})
}

func (s *Server) handleTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params transferParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	from, err := decodeBech32(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid source address", err.Error())
		return
	}
	to, err := decodeBech32(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid destination address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Transfer(from, to, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"transferred": true})
}

func (s *Server) handleDistribute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params distributeParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	to, err := decodeBech32(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid destination address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.DistributeFunds(caller, to, amount, params.CampaignID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"distributed": true})
}

func (s *Server) handleBurn(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params burnParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Burn(caller, amount, params.Reason); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"burned": true})
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handlePauseChange(w, req, s.node.PauseLedger)
}

func (s *Server) handleUnpause(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handlePauseChange(w, req, s.node.UnpauseLedger)
}

func (s *Server) handlePauseChange(w http.ResponseWriter, req *RPCRequest, apply func([]byte) error) {
	var params callerParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := apply(caller); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	paused, err := s.node.LedgerPaused()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"paused": paused})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	balance, err := s.node.BalanceOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, BalanceResult{Address: params.Address, Balance: amountString(balance)})
}

func (s *Server) handleIsWhitelisted(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	active, err := s.node.IsWhitelisted(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"whitelisted": active})
}

func (s *Server) handleGetRecipient(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	entry, err := s.node.WhitelistInfo(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, RecipientResult{
		Address:      params.Address,
		Name:         entry.Name,
		Region:       entry.Region,
		RegisteredAt: entry.RegisteredAt,
		Active:       entry.Active,
	})
}

func (s *Server) handleListRecipients(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	recipients, err := s.node.WhitelistedRecipients()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	encoded := make([]string, 0, len(recipients))
	for _, addr := range recipients {
		encoded = append(encoded, encodeBech32(addr))
	}
	writeResult(w, req.ID, encoded)
}

func (s *Server) handleSupply(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	minted, err := s.node.TotalMinted()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	burned, err := s.node.TotalBurned()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	paused, err := s.node.LedgerPaused()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	circulating := new(big.Int).Sub(minted, burned)
	writeResult(w, req.ID, SupplyResult{
		TotalMinted: amountString(minted),
		TotalBurned: amountString(burned),
		Circulating: amountString(circulating),
		Paused:      paused,
	})
}

func (s *Server) handleCampaignFundTotal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	total, err := s.node.CampaignFundTotal(params.CampaignID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"total": amountString(total)})
}
