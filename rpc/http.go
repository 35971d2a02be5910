// Package rpc exposes the node's operator surface as a JSON-RPC 2.0 endpoint
// plus a websocket audit stream.
package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"reliefchain/core"
	"reliefchain/crypto"
	"reliefchain/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	rateLimitWindow = time.Minute
)

type rateLimiter struct {
	count       int
	windowStart time.Time
}

// Options tune the server's admission limits and timeouts. Zero values fall
// back to the defaults used by a standalone node.
type Options struct {
	AuthTokenEnv      string
	MaxBodyBytes      int64
	RequestsPerMin    int
	ReadHeaderTimeout time.Duration
	ShutdownGrace     time.Duration
	Logger            *slog.Logger
}

type Server struct {
	node *core.Node

	authToken         string
	maxBodyBytes      int64
	requestsPerMin    int
	readHeaderTimeout time.Duration
	shutdownGrace     time.Duration
	logger            *slog.Logger

	mu           sync.Mutex
	rateLimiters map[string]*rateLimiter
}

func NewServer(node *core.Node, opts Options) *Server {
	env := opts.AuthTokenEnv
	if env == "" {
		env = "RELIEF_RPC_TOKEN"
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	perMin := opts.RequestsPerMin
	if perMin <= 0 {
		perMin = 600
	}
	readHeader := opts.ReadHeaderTimeout
	if readHeader <= 0 {
		readHeader = 10 * time.Second
	}
	grace := opts.ShutdownGrace
	if grace <= 0 {
		grace = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:              node,
		authToken:         strings.TrimSpace(os.Getenv(env)),
		maxBodyBytes:      maxBody,
		requestsPerMin:    perMin,
		readHeaderTimeout: readHeader,
		shutdownGrace:     grace,
		logger:            logger,
		rateLimiters:      make(map[string]*rateLimiter),
	}
}

// Handler returns the HTTP handler serving the RPC endpoint and the audit
// websocket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.HandleFunc("/ws/events", s.handleEventsWS)
	return mux
}

func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps an engine sentinel onto the wire.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	status, code, message := mapError(err)
	writeError(w, status, id, code, message, nil)
}

// handle is the main request handler that routes to method handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	reader := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	if !s.allowSource(clientSource(r), started) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "request rate exceeded", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.maxBodyBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.dispatch(recorder, r, req)
	outcome := "ok"
	if recorder.status >= 400 {
		outcome = "error"
	}
	metrics.RPC().Observe(req.Method, outcome, time.Since(started))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	handler, ok := s.route(req.Method)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}
	if handler.privileged {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}
	handler.fn(w, r, req)
}

type methodHandler struct {
	fn         func(http.ResponseWriter, *http.Request, *RPCRequest)
	privileged bool
}

func (s *Server) route(method string) (methodHandler, bool) {
	switch method {
	case "relief_whitelistRecipient":
		return methodHandler{s.handleWhitelistRecipient, true}, true
	case "relief_whitelistBatch":
		return methodHandler{s.handleWhitelistBatch, true}, true
	case "relief_deactivateRecipient":
		return methodHandler{s.handleDeactivateRecipient, true}, true
	case "relief_grantRole":
		return methodHandler{s.handleGrantRole, true}, true
	case "relief_revokeRole":
		return methodHandler{s.handleRevokeRole, true}, true
	case "relief_mint":
		return methodHandler{s.handleMint, true}, true
	case "relief_transfer":
		return methodHandler{s.handleTransfer, true}, true
	case "relief_distribute":
		return methodHandler{s.handleDistribute, true}, true
	case "relief_burn":
		return methodHandler{s.handleBurn, true}, true
	case "relief_pause":
		return methodHandler{s.handlePause, true}, true
	case "relief_unpause":
		return methodHandler{s.handleUnpause, true}, true
	case "relief_getBalance":
		return methodHandler{s.handleGetBalance, false}, true
	case "relief_isWhitelisted":
		return methodHandler{s.handleIsWhitelisted, false}, true
	case "relief_getRecipient":
		return methodHandler{s.handleGetRecipient, false}, true
	case "relief_listRecipients":
		return methodHandler{s.handleListRecipients, false}, true
	case "relief_supply":
		return methodHandler{s.handleSupply, false}, true
	case "relief_campaignFundTotal":
		return methodHandler{s.handleCampaignFundTotal, false}, true
	case "spending_registerMerchant":
		return methodHandler{s.handleRegisterMerchant, true}, true
	case "spending_deactivateMerchant":
		return methodHandler{s.handleDeactivateMerchant, true}, true
	case "spending_setAllowance":
		return methodHandler{s.handleSetAllowance, true}, true
	case "spending_setAllAllowances":
		return methodHandler{s.handleSetAllAllowances, true}, true
	case "spending_setDailyLimit":
		return methodHandler{s.handleSetDailyLimit, true}, true
	case "spending_spend":
		return methodHandler{s.handleSpend, true}, true
	case "spending_remainingAllowance":
		return methodHandler{s.handleRemainingAllowance, false}, true
	case "spending_beneficiaryStatus":
		return methodHandler{s.handleBeneficiaryStatus, false}, true
	case "spending_getMerchant":
		return methodHandler{s.handleGetMerchant, false}, true
	case "spending_listMerchants":
		return methodHandler{s.handleListMerchants, false}, true
	case "campaign_create":
		return methodHandler{s.handleCampaignCreate, true}, true
	case "campaign_activate":
		return methodHandler{s.handleCampaignActivate, true}, true
	case "campaign_pause":
		return methodHandler{s.handleCampaignPause, true}, true
	case "campaign_complete":
		return methodHandler{s.handleCampaignComplete, true}, true
	case "campaign_cancel":
		return methodHandler{s.handleCampaignCancel, true}, true
	case "campaign_recordRaised":
		return methodHandler{s.handleCampaignRecordRaised, true}, true
	case "campaign_addBeneficiary":
		return methodHandler{s.handleCampaignAddBeneficiary, true}, true
	case "campaign_distribute":
		return methodHandler{s.handleCampaignDistribute, true}, true
	case "campaign_get":
		return methodHandler{s.handleCampaignGet, false}, true
	case "campaign_stats":
		return methodHandler{s.handleCampaignStats, false}, true
	case "campaign_beneficiaries":
		return methodHandler{s.handleCampaignBeneficiaries, false}, true
	case "campaign_allocation":
		return methodHandler{s.handleCampaignAllocation, false}, true
	}
	return methodHandler{}, false
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string, now time.Time) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.rateLimiters[source]
	if !ok {
		limiter = &rateLimiter{windowStart: now}
		s.rateLimiters[source] = limiter
	}
	if now.Sub(limiter.windowStart) >= rateLimitWindow {
		limiter.windowStart = now
		limiter.count = 0
	}
	if limiter.count >= s.requestsPerMin {
		return false
	}
	limiter.count++
	return true
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- shared parameter helpers ---

func decodeBech32(value string) ([]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	return addr.Bytes(), nil
}

func encodeBech32(raw []byte) string {
	addr := crypto.MustNewAddress(crypto.ReliefPrefix, raw)
	return addr.String()
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// decodeSingleParam unmarshals the single positional parameter object every
// relief method accepts.
func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}
