package main

import (
	"encoding/json"
	"fmt"
	"io"
)

var ledgerRPCCall = callRPC

func runLedgerCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: relief-cli ledger <subcommand> ...")
		return 1
	}
	switch args[0] {
	case "whitelist":
		if len(args) < 5 {
			fmt.Fprintln(stderr, "Usage: ledger whitelist <caller> <recipient> <name> <region>")
			return 1
		}
		return ledgerMutate(stdout, stderr, "relief_whitelistRecipient", map[string]interface{}{
			"caller": args[1], "recipient": args[2], "name": args[3], "region": args[4],
		})
	case "whitelist-batch":
		if len(args) < 5 || (len(args)-2)%3 != 0 {
			fmt.Fprintln(stderr, "Usage: ledger whitelist-batch <caller> <recipient> <name> <region> [<recipient> <name> <region> ...]")
			return 1
		}
		recipients := make([]map[string]string, 0, (len(args)-2)/3)
		for i := 2; i < len(args); i += 3 {
			recipients = append(recipients, map[string]string{
				"recipient": args[i], "name": args[i+1], "region": args[i+2],
			})
		}
		return ledgerMutate(stdout, stderr, "relief_whitelistBatch", map[string]interface{}{
			"caller": args[1], "recipients": recipients,
		})
	case "deactivate":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: ledger deactivate <caller> <recipient> [reason]")
			return 1
		}
		params := map[string]interface{}{"caller": args[1], "recipient": args[2]}
		if len(args) > 3 {
			params["reason"] = args[3]
		}
		return ledgerMutate(stdout, stderr, "relief_deactivateRecipient", params)
	case "grant-role", "revoke-role":
		if len(args) < 4 {
			fmt.Fprintf(stderr, "Usage: ledger %s <caller> <role> <account>\n", args[0])
			return 1
		}
		method := "relief_grantRole"
		if args[0] == "revoke-role" {
			method = "relief_revokeRole"
		}
		return ledgerMutate(stdout, stderr, method, map[string]interface{}{
			"caller": args[1], "role": args[2], "account": args[3],
		})
	case "mint":
		if len(args) < 4 {
			fmt.Fprintln(stderr, "Usage: ledger mint <caller> <to> <amount> [campaignId]")
			return 1
		}
		params := map[string]interface{}{"caller": args[1], "to": args[2], "amount": args[3]}
		if len(args) > 4 {
			id, err := parseCampaignID(args[4])
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
			params["campaignId"] = id
		}
		return ledgerMutate(stdout, stderr, "relief_mint", params)
	case "transfer":
		if len(args) < 4 {
			fmt.Fprintln(stderr, "Usage: ledger transfer <from> <to> <amount>")
			return 1
		}
		return ledgerMutate(stdout, stderr, "relief_transfer", map[string]interface{}{
			"from": args[1], "to": args[2], "amount": args[3],
		})
	case "distribute":
		if len(args) < 4 {
			fmt.Fprintln(stderr, "Usage: ledger distribute <caller> <to> <amount> [campaignId]")
			return 1
		}
		params := map[string]interface{}{"caller": args[1], "to": args[2], "amount": args[3]}
		if len(args) > 4 {
			id, err := parseCampaignID(args[4])
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
			params["campaignId"] = id
		}
		return ledgerMutate(stdout, stderr, "relief_distribute", params)
	case "burn":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: ledger burn <caller> <amount> [reason]")
			return 1
		}
		params := map[string]interface{}{"caller": args[1], "amount": args[2]}
		if len(args) > 3 {
			params["reason"] = args[3]
		}
		return ledgerMutate(stdout, stderr, "relief_burn", params)
	case "pause", "unpause":
		if len(args) < 2 {
			fmt.Fprintf(stderr, "Usage: ledger %s <caller>\n", args[0])
			return 1
		}
		method := "relief_pause"
		if args[0] == "unpause" {
			method = "relief_unpause"
		}
		return ledgerMutate(stdout, stderr, method, map[string]interface{}{"caller": args[1]})
	case "balance":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: ledger balance <address>")
			return 1
		}
		result, err := ledgerRPCCall("relief_getBalance", map[string]interface{}{"address": args[1]}, false)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		var balance struct {
			Address string `json:"address"`
			Balance string `json:"balance"`
		}
		if err := json.Unmarshal(result, &balance); err != nil {
			writeResult(stdout, result)
			return 0
		}
		fmt.Fprintf(stdout, "Balance for %s: %s tokens (%s base units)\n",
			balance.Address, formatAmount(balance.Balance), balance.Balance)
		return 0
	case "is-whitelisted":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: ledger is-whitelisted <address>")
			return 1
		}
		return ledgerQuery(stdout, stderr, "relief_isWhitelisted", map[string]interface{}{"address": args[1]})
	case "recipient":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: ledger recipient <address>")
			return 1
		}
		return ledgerQuery(stdout, stderr, "relief_getRecipient", map[string]interface{}{"address": args[1]})
	case "recipients":
		return ledgerQuery(stdout, stderr, "relief_listRecipients", nil)
	case "supply":
		return ledgerQuery(stdout, stderr, "relief_supply", nil)
	case "fund-total":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: ledger fund-total <campaignId>")
			return 1
		}
		id, err := parseCampaignID(args[1])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return ledgerQuery(stdout, stderr, "relief_campaignFundTotal", map[string]interface{}{"campaignId": id})
	default:
		fmt.Fprintf(stderr, "Unknown ledger subcommand: %s\n", args[0])
		return 1
	}
}

func ledgerMutate(stdout, stderr io.Writer, method string, params interface{}) int {
	return ledgerCall(stdout, stderr, method, params, true)
}

func ledgerQuery(stdout, stderr io.Writer, method string, params interface{}) int {
	return ledgerCall(stdout, stderr, method, params, false)
}

func ledgerCall(stdout, stderr io.Writer, method string, params interface{}, auth bool) int {
	result, err := ledgerRPCCall(method, params, auth)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	writeResult(stdout, result)
	return 0
}

func writeResult(out io.Writer, raw json.RawMessage) {
	var pretty = raw
	if indented, err := indentJSON(raw); err == nil {
		pretty = indented
	}
	fmt.Fprintln(out, string(pretty))
}

func indentJSON(raw json.RawMessage) (json.RawMessage, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

func parseCampaignID(raw string) (uint64, error) {
	var id uint64
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid campaign id %q", raw)
	}
	return id, nil
}
