package main

import (
	"fmt"
	"io"
	"strconv"
)

var campaignRPCCall = callRPC

func runCampaignCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: relief-cli campaign <subcommand> ...")
		return 1
	}
	switch args[0] {
	case "create":
		if len(args) < 8 {
			fmt.Fprintln(stderr, "Usage: campaign create <caller> <name> <region> <disasterType> <target> <start> <end>")
			return 1
		}
		start, err := strconv.ParseUint(args[6], 10, 64)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid start date %q\n", args[6])
			return 1
		}
		end, err := strconv.ParseUint(args[7], 10, 64)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid end date %q\n", args[7])
			return 1
		}
		return campaignCall(stdout, stderr, "campaign_create", map[string]interface{}{
			"caller":       args[1],
			"name":         args[2],
			"region":       args[3],
			"disasterType": args[4],
			"targetAmount": args[5],
			"startDate":    start,
			"endDate":      end,
		}, true)
	case "activate", "pause", "complete", "cancel":
		if len(args) < 3 {
			fmt.Fprintf(stderr, "Usage: campaign %s <caller> <campaignId>\n", args[0])
			return 1
		}
		id, err := parseCampaignID(args[2])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return campaignCall(stdout, stderr, "campaign_"+args[0], map[string]interface{}{
			"caller": args[1], "campaignId": id,
		}, true)
	case "record-raised":
		if len(args) < 4 {
			fmt.Fprintln(stderr, "Usage: campaign record-raised <caller> <campaignId> <amount>")
			return 1
		}
		id, err := parseCampaignID(args[2])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return campaignCall(stdout, stderr, "campaign_recordRaised", map[string]interface{}{
			"caller": args[1], "campaignId": id, "amount": args[3],
		}, true)
	case "add-beneficiary", "distribute":
		if len(args) < 5 {
			fmt.Fprintf(stderr, "Usage: campaign %s <caller> <campaignId> <recipient> <amount>\n", args[0])
			return 1
		}
		id, err := parseCampaignID(args[2])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		method := "campaign_addBeneficiary"
		if args[0] == "distribute" {
			method = "campaign_distribute"
		}
		return campaignCall(stdout, stderr, method, map[string]interface{}{
			"caller": args[1], "campaignId": id, "recipient": args[3], "amount": args[4],
		}, true)
	case "get", "stats", "beneficiaries":
		if len(args) < 2 {
			fmt.Fprintf(stderr, "Usage: campaign %s <campaignId>\n", args[0])
			return 1
		}
		id, err := parseCampaignID(args[1])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return campaignCall(stdout, stderr, "campaign_"+args[0], map[string]interface{}{
			"campaignId": id,
		}, false)
	case "allocation":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: campaign allocation <campaignId> <recipient>")
			return 1
		}
		id, err := parseCampaignID(args[1])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return campaignCall(stdout, stderr, "campaign_allocation", map[string]interface{}{
			"campaignId": id, "recipient": args[2],
		}, false)
	default:
		fmt.Fprintf(stderr, "Unknown campaign subcommand: %s\n", args[0])
		return 1
	}
}

func campaignCall(stdout, stderr io.Writer, method string, params interface{}, auth bool) int {
	result, err := campaignRPCCall(method, params, auth)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	writeResult(stdout, result)
	return 0
}
