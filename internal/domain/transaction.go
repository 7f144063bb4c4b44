package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry journals one balance mutation.
type LedgerEntry struct {
	ID           int64                  `db:"id" json:"id"`
	UserID       int64                  `db:"user_id" json:"user_id"`
	Resource     Resource               `db:"resource" json:"resource"`
	Delta        decimal.Decimal        `db:"delta" json:"delta"`
	BalanceAfter decimal.Decimal        `db:"balance_after" json:"balance_after"`
	Reason       string                 `db:"reason" json:"reason"`
	Meta         map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
}

// Ledger reasons
const (
	ReasonAdmin          = "admin_adjust"
	ReasonConvert        = "convert"
	ReasonPlant          = "plant"
	ReasonBoost          = "boost"
	ReasonHarvest        = "harvest"
	ReasonVIPBenefit     = "vip_benefit"
	ReasonVIPPurchase    = "vip_purchase"
	ReasonContestEntry   = "contest_entry"
	ReasonContestPrize   = "contest_prize"
	ReasonShop           = "shop"
	ReasonDailyLogin     = "daily_login"
	ReasonAdWatch        = "ad_watch"
	ReasonDeposit        = "deposit"
	ReasonWithdrawal     = "withdrawal"
	ReasonWithdrawRefund = "withdrawal_refund"
)
