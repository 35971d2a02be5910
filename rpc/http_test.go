package rpc

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reliefchain/core"
	"reliefchain/core/state"
	"reliefchain/crypto"
	"reliefchain/native/ledger"
	"reliefchain/observability/logging"
	"reliefchain/storage"
)

const testToken = "test-rpc-token"

type rpcFixture struct {
	server *Server
	admin  crypto.Address
	minter crypto.Address
}

func newRPCFixture(t *testing.T) *rpcFixture {
	t.Helper()
	t.Setenv("RELIEF_RPC_TOKEN", testToken)

	db := storage.NewMemDB()
	node := core.NewNode(db)

	adminRaw := bytes.Repeat([]byte{0x01}, 20)
	minterRaw := bytes.Repeat([]byte{0x02}, 20)
	controllerRaw := bytes.Repeat([]byte{0x05}, 20)
	manager := state.NewManager(db)
	if err := manager.SetRole(ledger.RoleAdmin, adminRaw); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := manager.SetRole(ledger.RoleMinter, minterRaw); err != nil {
		t.Fatalf("seed minter: %v", err)
	}
	if err := manager.SetController(controllerRaw); err != nil {
		t.Fatalf("seed controller: %v", err)
	}
	if err := manager.SetDefaultDailyLimit(big.NewInt(1_000_000_000)); err != nil {
		t.Fatalf("seed daily limit: %v", err)
	}

	return &rpcFixture{
		server: NewServer(node, Options{}),
		admin:  crypto.MustNewAddress(crypto.ReliefPrefix, adminRaw),
		minter: crypto.MustNewAddress(crypto.ReliefPrefix, minterRaw),
	}
}

func (fx *rpcFixture) call(t *testing.T, method string, params interface{}, token string) (*httptest.ResponseRecorder, RPCResponse) {
	t.Helper()
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	httpReq := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	httpReq.RemoteAddr = "192.0.2.1:4000"
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	fx.server.handle(rec, httpReq)

	var resp RPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v (%s)", err, rec.Body.String())
	}
	return rec, resp
}

func TestPrivilegedMethodRequiresAuth(t *testing.T) {
	fx := newRPCFixture(t)
	recipient := crypto.MustNewAddress(crypto.ReliefPrefix, bytes.Repeat([]byte{0x03}, 20))

	rec, resp := fx.call(t, "relief_whitelistRecipient", map[string]string{
		"caller":    fx.admin.String(),
		"recipient": recipient.String(),
		"name":      "Amina",
		"region":    "Coastal District",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestWhitelistAndQueryRoundTrip(t *testing.T) {
	fx := newRPCFixture(t)
	recipient := crypto.MustNewAddress(crypto.ReliefPrefix, bytes.Repeat([]byte{0x03}, 20))

	rec, resp := fx.call(t, "relief_whitelistRecipient", map[string]string{
		"caller":    fx.admin.String(),
		"recipient": recipient.String(),
		"name":      "Amina",
		"region":    "Coastal District",
	}, testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	rec, resp = fx.call(t, "relief_isWhitelisted", map[string]string{
		"address": recipient.String(),
	}, "")
	if rec.Code != http.StatusOK || resp.Error != nil {
		t.Fatalf("query failed: %d %+v", rec.Code, resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok || result["whitelisted"] != true {
		t.Fatalf("result = %+v", resp.Result)
	}
}

func TestMintUpdatesBalance(t *testing.T) {
	fx := newRPCFixture(t)

	rec, resp := fx.call(t, "relief_mint", map[string]interface{}{
		"caller":  fx.minter.String(),
		"to":      fx.minter.String(),
		"amount":  "2500000000",
		"purpose": "treasury",
	}, testToken)
	if rec.Code != http.StatusOK || resp.Error != nil {
		t.Fatalf("mint failed: %d %+v", rec.Code, resp.Error)
	}

	_, resp = fx.call(t, "relief_getBalance", map[string]string{"address": fx.minter.String()}, "")
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %+v", resp.Result)
	}
	if result["balance"] != "2500000000" {
		t.Fatalf("balance = %v", result["balance"])
	}

	_, resp = fx.call(t, "relief_supply", nil, "")
	result, ok = resp.Result.(map[string]interface{})
	if !ok || result["totalMinted"] != "2500000000" {
		t.Fatalf("supply = %+v", resp.Result)
	}
}

func TestSpendRejectionMapsToPolicyCode(t *testing.T) {
	fx := newRPCFixture(t)
	recipient := crypto.MustNewAddress(crypto.ReliefPrefix, bytes.Repeat([]byte{0x03}, 20))
	merchant := crypto.MustNewAddress(crypto.ReliefPrefix, bytes.Repeat([]byte{0x04}, 20))

	// Merchant is never registered, so the spend must be rejected.
	rec, resp := fx.call(t, "spending_spend", map[string]string{
		"caller":   recipient.String(),
		"merchant": merchant.String(),
		"amount":   "100",
	}, testToken)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != codePolicyRejection {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestUnknownMethod(t *testing.T) {
	fx := newRPCFixture(t)
	rec, resp := fx.call(t, "relief_doesNotExist", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestInvalidJSONPayload(t *testing.T) {
	fx := newRPCFixture(t)
	httpReq := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	httpReq.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	fx.server.handle(rec, httpReq)
	var resp RPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestRateLimitRejectsFloods(t *testing.T) {
	t.Setenv("RELIEF_RPC_TOKEN", testToken)
	node := core.NewNode(storage.NewMemDB())
	server := NewServer(node, Options{RequestsPerMin: 2})
	fx := &rpcFixture{server: server}

	for i := 0; i < 2; i++ {
		rec, _ := fx.call(t, "relief_supply", nil, "")
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d throttled early", i)
		}
	}
	rec, resp := fx.call(t, "relief_supply", nil, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeRateLimited {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestCampaignLifecycleOverRPC(t *testing.T) {
	fx := newRPCFixture(t)

	_, resp := fx.call(t, "campaign_create", map[string]interface{}{
		"caller":       fx.admin.String(),
		"name":         "Flood Relief",
		"region":       "Coastal District",
		"disasterType": "flood",
		"targetAmount": "5000000000",
		"startDate":    1700000000,
		"endDate":      1710000000,
	}, testToken)
	if resp.Error != nil {
		t.Fatalf("create failed: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %+v", resp.Result)
	}
	id := uint64(result["campaignId"].(float64))
	if id != 1 {
		t.Fatalf("campaign id = %d", id)
	}

	_, resp = fx.call(t, "campaign_activate", map[string]interface{}{
		"caller":     fx.admin.String(),
		"campaignId": id,
	}, testToken)
	if resp.Error != nil {
		t.Fatalf("activate failed: %+v", resp.Error)
	}
	status := resp.Result.(map[string]interface{})["status"]
	if status != "active" {
		t.Fatalf("status = %v", status)
	}

	_, resp = fx.call(t, "campaign_stats", map[string]interface{}{"campaignId": id}, "")
	if resp.Error != nil {
		t.Fatalf("stats failed: %+v", resp.Error)
	}
	stats := resp.Result.(map[string]interface{})
	if stats["targetAmount"] != "5000000000" {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestCampaignNotFoundMapsTo404(t *testing.T) {
	fx := newRPCFixture(t)
	rec, resp := fx.call(t, "campaign_get", map[string]interface{}{"campaignId": 42}, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestHandlerLogsMaskPersonalData(t *testing.T) {
	fx := newRPCFixture(t)
	var logs bytes.Buffer
	fx.server.logger = slog.New(slog.NewJSONHandler(&logs, nil))
	recipient := crypto.MustNewAddress(crypto.ReliefPrefix, bytes.Repeat([]byte{0x03}, 20))
	merchant := crypto.MustNewAddress(crypto.ReliefPrefix, bytes.Repeat([]byte{0x04}, 20))

	_, resp := fx.call(t, "relief_whitelistRecipient", map[string]string{
		"caller":    fx.admin.String(),
		"recipient": recipient.String(),
		"name":      "Amina Hassan",
		"region":    "Coastal District",
	}, testToken)
	if resp.Error != nil {
		t.Fatalf("whitelist: %+v", resp.Error)
	}
	_, resp = fx.call(t, "spending_registerMerchant", map[string]string{
		"caller":   fx.admin.String(),
		"merchant": merchant.String(),
		"name":     "Harbour Grocers",
		"category": "food",
		"location": "Pier Road 12",
	}, testToken)
	if resp.Error != nil {
		t.Fatalf("register merchant: %+v", resp.Error)
	}

	out := logs.String()
	for _, leaked := range []string{"Amina Hassan", "Coastal District", "Harbour Grocers", "Pier Road 12"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log output leaks %q:\n%s", leaked, out)
		}
	}
	if !strings.Contains(out, logging.RedactedValue) {
		t.Fatalf("expected masked fields in log output:\n%s", out)
	}
	// Operational fields stay readable.
	if !strings.Contains(out, `"category":"food"`) {
		t.Fatalf("expected category in log output:\n%s", out)
	}
}

func TestServerOptionsOverrideTimeouts(t *testing.T) {
	fx := newRPCFixture(t)
	srv := NewServer(fx.server.node, Options{
		ReadHeaderTimeout: 3 * time.Second,
		ShutdownGrace:     7 * time.Second,
	})
	if srv.readHeaderTimeout != 3*time.Second {
		t.Fatalf("read header timeout = %v", srv.readHeaderTimeout)
	}
	if srv.shutdownGrace != 7*time.Second {
		t.Fatalf("shutdown grace = %v", srv.shutdownGrace)
	}

	defaults := NewServer(fx.server.node, Options{})
	if defaults.readHeaderTimeout != 10*time.Second || defaults.shutdownGrace != 15*time.Second {
		t.Fatalf("defaults = %v/%v", defaults.readHeaderTimeout, defaults.shutdownGrace)
	}
}

func TestWhitelistBatchOverRPC(t *testing.T) {
	fx := newRPCFixture(t)
	first := crypto.MustNewAddress(crypto.ReliefPrefix, bytes.Repeat([]byte{0x03}, 20))
	second := crypto.MustNewAddress(crypto.ReliefPrefix, bytes.Repeat([]byte{0x06}, 20))

	_, resp := fx.call(t, "relief_whitelistRecipient", map[string]string{
		"caller":    fx.admin.String(),
		"recipient": first.String(),
		"name":      "Amina",
		"region":    "Coastal District",
	}, testToken)
	if resp.Error != nil {
		t.Fatalf("whitelist: %+v", resp.Error)
	}

	rec, resp := fx.call(t, "relief_whitelistBatch", map[string]interface{}{
		"caller": fx.admin.String(),
		"recipients": []map[string]string{
			{"recipient": first.String(), "name": "Amina", "region": "Coastal District"},
			{"recipient": second.String(), "name": "Samir", "region": "Inland District"},
		},
	}, testToken)
	if rec.Code != http.StatusOK || resp.Error != nil {
		t.Fatalf("batch: status=%d error=%+v", rec.Code, resp.Error)
	}
	var result WhitelistBatchResult
	raw, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Added != 1 || result.Skipped != 1 {
		t.Fatalf("added=%d skipped=%d, want 1/1", result.Added, result.Skipped)
	}

	_, resp = fx.call(t, "relief_getRecipient", map[string]string{"address": second.String()}, "")
	if resp.Error != nil {
		t.Fatalf("get recipient: %+v", resp.Error)
	}

	rec, _ = fx.call(t, "relief_whitelistBatch", map[string]interface{}{
		"caller":     fx.admin.String(),
		"recipients": []map[string]string{},
	}, testToken)
	if rec.Code == http.StatusOK {
		t.Fatal("empty batch must be rejected")
	}
}
