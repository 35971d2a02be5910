package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"
)

var rpcEndpoint = defaultRPCEndpoint() // overridden via RELIEF_RPC_URL or --rpc flag
var rpcAuthToken = os.Getenv("RELIEF_RPC_TOKEN")

func main() {
	args := os.Args[1:]
	var err error
	rpcEndpoint = defaultRPCEndpoint()
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		generateKey()
	case "ledger":
		code := runLedgerCommand(args[1:], os.Stdout, os.Stderr)
		if code != 0 {
			os.Exit(code)
		}
	case "spending":
		code := runSpendingCommand(args[1:], os.Stdout, os.Stderr)
		if code != 0 {
			os.Exit(code)
		}
	case "campaign":
		code := runCampaignCommand(args[1:], os.Stdout, os.Stderr)
		if code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println(`Usage: relief-cli [--rpc <url>] <command> ...

Key management:
  generate-key                                  create a new operator key file

Ledger:
  ledger whitelist <caller> <recipient> <name> <region>
  ledger whitelist-batch <caller> <recipient> <name> <region> [...]
  ledger deactivate <caller> <recipient> [reason]
  ledger grant-role <caller> <role> <account>
  ledger revoke-role <caller> <role> <account>
  ledger mint <caller> <to> <amount> [campaignId]
  ledger transfer <from> <to> <amount>
  ledger distribute <caller> <to> <amount> [campaignId]
  ledger burn <caller> <amount> [reason]
  ledger pause <caller>
  ledger unpause <caller>
  ledger balance <address>
  ledger is-whitelisted <address>
  ledger recipient <address>
  ledger recipients
  ledger supply
  ledger fund-total <campaignId>

Spending:
  spending register-merchant <caller> <merchant> <name> <category> [location]
  spending deactivate-merchant <caller> <merchant> [reason]
  spending set-allowance <caller> <recipient> <category> <amount>
  spending set-all-allowances <caller> <recipient> <food> <medical> <shelter> <utilities> <transport>
  spending set-daily-limit <caller> <recipient> <amount>
  spending spend <caller> <merchant> <amount> [externalRef]
  spending allowance <recipient> <category>
  spending status <address>
  spending merchant <address>
  spending merchants

Campaigns:
  campaign create <caller> <name> <region> <disasterType> <target> <start> <end>
  campaign activate|pause|complete|cancel <caller> <campaignId>
  campaign record-raised <caller> <campaignId> <amount>
  campaign add-beneficiary <caller> <campaignId> <recipient> <amount>
  campaign distribute <caller> <campaignId> <recipient> <amount>
  campaign get <campaignId>
  campaign stats <campaignId>
  campaign beneficiaries <campaignId>
  campaign allocation <campaignId> <recipient>

Mutating commands require RELIEF_RPC_TOKEN to be set.`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RELIEF_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func callRPC(method string, param interface{}, requireAuth bool) (json.RawMessage, error) {
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if param != nil {
		payload["params"] = []interface{}{param}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if rpcAuthToken == "" {
			return nil, fmt.Errorf("privileged RPC call requires RELIEF_RPC_TOKEN to be set")
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node")
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("error from node: %s", rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

// formatAmount renders a base-unit decimal string as whole tokens with six
// fractional digits.
func formatAmount(raw string) string {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return raw
	}
	scale := big.NewInt(1_000_000)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(value, scale, frac)
	if frac.Sign() < 0 {
		frac.Neg(frac)
	}
	return fmt.Sprintf("%s.%06d", whole.String(), frac)
}
