package state

import (
	"fmt"
)

// Raw (pre-hash) key builders for the domain records kept by the native
// modules. Keeping them here gives every module a single place to check for
// prefix collisions.

func WhitelistKey(addr []byte) []byte {
	return []byte(fmt.Sprintf("whitelist/%x", addr))
}

func WhitelistIndexKey() []byte {
	return []byte("whitelist/index")
}

func MerchantKey(addr []byte) []byte {
	return []byte(fmt.Sprintf("merchant/%x", addr))
}

func MerchantIndexKey() []byte {
	return []byte("merchant/index")
}

func AllowanceKey(addr []byte, category uint8) []byte {
	return []byte(fmt.Sprintf("allowance/%x/%d", addr, category))
}

func CategorySpendingKey(addr []byte, category uint8) []byte {
	return []byte(fmt.Sprintf("spending/%x/%d", addr, category))
}

func DailySpendingKey(addr []byte, dayBucket uint64) []byte {
	return []byte(fmt.Sprintf("daily-spending/%x/%d", addr, dayBucket))
}

func DailyLimitKey(addr []byte) []byte {
	return []byte(fmt.Sprintf("daily-limit/%x", addr))
}

func CampaignKey(id uint64) []byte {
	return []byte(fmt.Sprintf("campaign/%d", id))
}

func CampaignFundKey(id uint64) []byte {
	return []byte(fmt.Sprintf("campaign-funds/%d", id))
}

func CampaignBeneficiaryKey(id uint64, addr []byte) []byte {
	return []byte(fmt.Sprintf("campaign/%d/beneficiary/%x", id, addr))
}

func CampaignBeneficiaryIndexKey(id uint64) []byte {
	return []byte(fmt.Sprintf("campaign/%d/beneficiaries", id))
}
