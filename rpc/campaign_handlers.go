package rpc

import (
	"net/http"

	"reliefchain/native/campaign"
)

type campaignCreateParams struct {
	Caller       string `json:"caller"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Region       string `json:"region"`
	DisasterType string `json:"disasterType"`
	TargetAmount string `json:"targetAmount"`
	StartDate    uint64 `json:"startDate"`
	EndDate      uint64 `json:"endDate"`
	MetadataRef  string `json:"metadataRef,omitempty"`
}

type campaignLifecycleParams struct {
	Caller     string `json:"caller"`
	CampaignID uint64 `json:"campaignId"`
}

type campaignAmountParams struct {
	Caller     string `json:"caller"`
	CampaignID uint64 `json:"campaignId"`
	Amount     string `json:"amount"`
}

type campaignBeneficiaryParams struct {
	Caller     string `json:"caller"`
	CampaignID uint64 `json:"campaignId"`
	Recipient  string `json:"recipient"`
	Amount     string `json:"amount"`
}

type campaignAllocationParams struct {
	CampaignID uint64 `json:"campaignId"`
	Recipient  string `json:"recipient"`
}

func (s *Server) handleCampaignCreate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignCreateParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	target, err := parseAmount(params.TargetAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := s.node.CreateCampaign(caller, campaign.CreateParams{
		Name:         params.Name,
		Description:  params.Description,
		Region:       params.Region,
		DisasterType: params.DisasterType,
		TargetAmount: target,
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
		MetadataRef:  params.MetadataRef,
	})
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"campaignId": id})
}

func (s *Server) handleCampaignActivate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleCampaignLifecycle(w, req, s.node.ActivateCampaign)
}

func (s *Server) handleCampaignPause(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleCampaignLifecycle(w, req, s.node.PauseCampaign)
}

func (s *Server) handleCampaignComplete(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleCampaignLifecycle(w, req, s.node.CompleteCampaign)
}

func (s *Server) handleCampaignCancel(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleCampaignLifecycle(w, req, s.node.CancelCampaign)
}

func (s *Server) handleCampaignLifecycle(w http.ResponseWriter, req *RPCRequest, apply func([]byte, uint64) error) {
	var params campaignLifecycleParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := apply(caller, params.CampaignID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	c, err := s.node.GetCampaign(params.CampaignID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": campaign.Status(c.Status).String()})
}

func (s *Server) handleCampaignRecordRaised(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignAmountParams
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
	if err := s.node.RecordFundsRaised(caller, params.CampaignID, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"recorded": true})
}

func (s *Server) handleCampaignAddBeneficiary(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignBeneficiaryParams
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
	if err := s.node.AddCampaignBeneficiary(caller, params.CampaignID, recipient, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"added": true})
}

// handleCampaignDistribute books the campaign distribution and moves ledger
// funds in one atomic command.
func (s *Server) handleCampaignDistribute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignBeneficiaryParams
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
	if err := s.node.DistributeToBeneficiary(caller, params.CampaignID, recipient, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"distributed": true})
}

func (s *Server) handleCampaignGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	c, err := s.node.GetCampaign(params.CampaignID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, CampaignResult{
		ID:                c.ID,
		Name:              c.Name,
		Description:       c.Description,
		Region:            c.Region,
		DisasterType:      c.DisasterType,
		Status:            campaign.Status(c.Status).String(),
		TargetAmount:      amountString(c.TargetAmount),
		RaisedAmount:      amountString(c.RaisedAmount),
		DistributedAmount: amountString(c.DistributedAmount),
		BeneficiaryCount:  c.BeneficiaryCount,
		CreatedAt:         c.CreatedAt,
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		MetadataRef:       c.MetadataRef,
	})
}

func (s *Server) handleCampaignStats(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	stats, err := s.node.CampaignStats(params.CampaignID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, CampaignStatsResult{
		ID:                params.CampaignID,
		TargetAmount:      amountString(stats.TargetAmount),
		RaisedAmount:      amountString(stats.RaisedAmount),
		DistributedAmount: amountString(stats.DistributedAmount),
		BeneficiaryCount:  stats.BeneficiaryCount,
		Remaining:         amountString(stats.Remaining),
	})
}

func (s *Server) handleCampaignBeneficiaries(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	beneficiaries, err := s.node.CampaignBeneficiaries(params.CampaignID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	encoded := make([]string, 0, len(beneficiaries))
	for _, addr := range beneficiaries {
		encoded = append(encoded, encodeBech32(addr))
	}
	writeResult(w, req.ID, encoded)
}

func (s *Server) handleCampaignAllocation(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignAllocationParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	recipient, err := decodeBech32(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	allocation, err := s.node.BeneficiaryAllocation(params.CampaignID, recipient)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"allocation": amountString(allocation)})
}
