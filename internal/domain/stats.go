package domain

import "github.com/shopspring/decimal"

// Stats is the admin dashboard summary.
type Stats struct {
	Users              int64           `json:"users"`
	VIPUsers           int64           `json:"vip_users"`
	ActiveCrops        int64           `json:"active_crops"`
	ReadyCrops         int64           `json:"ready_crops"`
	SBRInCirculation   int64           `json:"sbr_in_circulation"`
	USDTInCirculation  decimal.Decimal `json:"usdt_in_circulation"`
	PendingWithdrawals int64           `json:"pending_withdrawals"`
	PendingDeposits    int64           `json:"pending_deposits"`
}
