package rpc

import (
	"log/slog"
	"math/big"
	"net/http"

	"reliefchain/native/spending"
	"reliefchain/observability/logging"
)

type registerMerchantParams struct {
	Caller   string `json:"caller"`
	Merchant string `json:"merchant"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Location string `json:"location,omitempty"`
}

type deactivateMerchantParams struct {
	Caller   string `json:"caller"`
	Merchant string `json:"merchant"`
	Reason   string `json:"reason,omitempty"`
}

type setAllowanceParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Category  string `json:"category"`
	Amount    string `json:"amount"`
}

type setAllAllowancesParams struct {
	Caller    string            `json:"caller"`
	Recipient string            `json:"recipient"`
	Amounts   map[string]string `json:"amounts"`
}

type setDailyLimitParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type spendParams struct {
	Caller      string `json:"caller"`
	Merchant    string `json:"merchant"`
	Amount      string `json:"amount"`
	ExternalRef string `json:"externalRef,omitempty"`
}

type allowanceQueryParams struct {
	Recipient string `json:"recipient"`
	Category  string `json:"category"`
}

func (s *Server) handleRegisterMerchant(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registerMerchantParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	merchant, err := decodeBech32(params.Merchant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid merchant address", err.Error())
		return
	}
	category, err := spending.CategoryFromName(params.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid category", err.Error())
		return
	}
	if err := s.node.RegisterMerchant(caller, merchant, params.Name, category, params.Location); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.logger.Info("merchant registered",
		slog.String("method", "spending_registerMerchant"),
		slog.String("category", category.String()),
		logging.MaskField("name", params.Name),
		logging.MaskField("location", params.Location),
	)
	writeResult(w, req.ID, map[string]bool{"registered": true})
}

func (s *Server) handleDeactivateMerchant(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params deactivateMerchantParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	merchant, err := decodeBech32(params.Merchant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid merchant address", err.Error())
		return
	}
	if err := s.node.DeactivateMerchant(caller, merchant, params.Reason); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"deactivated": true})
}

func (s *Server) handleSetAllowance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setAllowanceParams
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
	category, err := spending.CategoryFromName(params.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid category", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetAllowance(caller, recipient, category, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"updated": true})
}

func (s *Server) handleSetAllAllowances(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setAllAllowancesParams
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
	var amounts [spending.NumCategories]*big.Int
	for name, value := range params.Amounts {
		category, err := spending.CategoryFromName(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid category", err.Error())
			return
		}
		amount, err := parseAmount(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		amounts[category] = amount
	}
	if err := s.node.SetAllAllowances(caller, recipient, amounts); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"updated": true})
}

func (s *Server) handleSetDailyLimit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setDailyLimitParams
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
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetDailyLimit(caller, recipient, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"updated": true})
}

func (s *Server) handleSpend(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params spendParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	merchant, err := decodeBech32(params.Merchant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid merchant address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.node.Spend(caller, merchant, amount, params.ExternalRef)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	// The external reference is a free-form receipt description supplied by
	// the terminal; it must not land in logs unmasked.
	s.logger.Info("spend executed",
		slog.String("method", "spending_spend"),
		slog.Uint64("txid", receipt.TxID),
		slog.String("category", receipt.Category.String()),
		logging.MaskField("externalRef", params.ExternalRef),
	)
	writeResult(w, req.ID, SpendResult{
		TxID:     receipt.TxID,
		Category: receipt.Category.String(),
		Amount:   amountString(receipt.Amount),
	})
}

func (s *Server) handleRemainingAllowance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params allowanceQueryParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	recipient, err := decodeBech32(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	category, err := spending.CategoryFromName(params.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid category", err.Error())
		return
	}
	remaining, err := s.node.RemainingAllowance(recipient, category)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"remaining": amountString(remaining)})
}

func (s *Server) handleBeneficiaryStatus(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	recipient, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	status, err := s.node.BeneficiaryStatus(recipient)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	allowances := make(map[string]string, spending.NumCategories)
	spent := make(map[string]string, spending.NumCategories)
	for i := 0; i < spending.NumCategories; i++ {
		name := spending.Category(i).String()
		allowances[name] = amountString(status.Allowances[i])
		spent[name] = amountString(status.Spent[i])
	}
	writeResult(w, req.ID, BeneficiaryStatusResult{
		Address:        params.Address,
		Balance:        amountString(status.Balance),
		DailyRemaining: amountString(status.DailyRemaining),
		Allowances:     allowances,
		Spent:          spent,
	})
}

func (s *Server) handleGetMerchant(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	merchant, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	record, err := s.node.MerchantInfo(merchant)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, MerchantResult{
		Address:       params.Address,
		Name:          record.Name,
		Category:      spending.Category(record.Category).String(),
		Location:      record.Location,
		Active:        record.Active,
		RegisteredAt:  record.RegisteredAt,
		TotalReceived: amountString(record.TotalReceived),
	})
}

func (s *Server) handleListMerchants(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	merchants, err := s.node.Merchants()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	encoded := make([]string, 0, len(merchants))
	for _, addr := range merchants {
		encoded = append(encoded, encodeBech32(addr))
	}
	writeResult(w, req.ID, encoded)
}
