package main

import (
	"fmt"
	"io"
)

var spendingRPCCall = callRPC

func runSpendingCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: relief-cli spending <subcommand> ...")
		return 1
	}
	switch args[0] {
	case "register-merchant":
		if len(args) < 5 {
			fmt.Fprintln(stderr, "Usage: spending register-merchant <caller> <merchant> <name> <category> [location]")
			return 1
		}
		params := map[string]interface{}{
			"caller": args[1], "merchant": args[2], "name": args[3], "category": args[4],
		}
		if len(args) > 5 {
			params["location"] = args[5]
		}
		return spendingCall(stdout, stderr, "spending_registerMerchant", params, true)
	case "deactivate-merchant":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: spending deactivate-merchant <caller> <merchant> [reason]")
			return 1
		}
		params := map[string]interface{}{"caller": args[1], "merchant": args[2]}
		if len(args) > 3 {
			params["reason"] = args[3]
		}
		return spendingCall(stdout, stderr, "spending_deactivateMerchant", params, true)
	case "set-allowance":
		if len(args) < 5 {
			fmt.Fprintln(stderr, "Usage: spending set-allowance <caller> <recipient> <category> <amount>")
			return 1
		}
		return spendingCall(stdout, stderr, "spending_setAllowance", map[string]interface{}{
			"caller": args[1], "recipient": args[2], "category": args[3], "amount": args[4],
		}, true)
	case "set-all-allowances":
		if len(args) < 8 {
			fmt.Fprintln(stderr, "Usage: spending set-all-allowances <caller> <recipient> <food> <medical> <shelter> <utilities> <transport>")
			return 1
		}
		return spendingCall(stdout, stderr, "spending_setAllAllowances", map[string]interface{}{
			"caller":    args[1],
			"recipient": args[2],
			"amounts": map[string]string{
				"food":      args[3],
				"medical":   args[4],
				"shelter":   args[5],
				"utilities": args[6],
				"transport": args[7],
			},
		}, true)
	case "set-daily-limit":
		if len(args) < 4 {
			fmt.Fprintln(stderr, "Usage: spending set-daily-limit <caller> <recipient> <amount>")
			return 1
		}
		return spendingCall(stdout, stderr, "spending_setDailyLimit", map[string]interface{}{
			"caller": args[1], "recipient": args[2], "amount": args[3],
		}, true)
	case "spend":
		if len(args) < 4 {
			fmt.Fprintln(stderr, "Usage: spending spend <caller> <merchant> <amount> [externalRef]")
			return 1
		}
		params := map[string]interface{}{"caller": args[1], "merchant": args[2], "amount": args[3]}
		if len(args) > 4 {
			params["externalRef"] = args[4]
		}
		return spendingCall(stdout, stderr, "spending_spend", params, true)
	case "allowance":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: spending allowance <recipient> <category>")
			return 1
		}
		return spendingCall(stdout, stderr, "spending_remainingAllowance", map[string]interface{}{
			"recipient": args[1], "category": args[2],
		}, false)
	case "status":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: spending status <address>")
			return 1
		}
		return spendingCall(stdout, stderr, "spending_beneficiaryStatus", map[string]interface{}{
			"address": args[1],
		}, false)
	case "merchant":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: spending merchant <address>")
			return 1
		}
		return spendingCall(stdout, stderr, "spending_getMerchant", map[string]interface{}{
			"address": args[1],
		}, false)
	case "merchants":
		return spendingCall(stdout, stderr, "spending_listMerchants", nil, false)
	default:
		fmt.Fprintf(stderr, "Unknown spending subcommand: %s\n", args[0])
		return 1
	}
}

func spendingCall(stdout, stderr io.Writer, method string, params interface{}, auth bool) int {
	result, err := spendingRPCCall(method, params, auth)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	writeResult(stdout, result)
	return 0
}
