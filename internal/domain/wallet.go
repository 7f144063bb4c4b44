package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentKind separates money coming in from money going out.
type PaymentKind string

const (
	PaymentDeposit    PaymentKind = "deposit"
	PaymentWithdrawal PaymentKind = "withdrawal"
)

// PaymentMethod is the external rail a payment moves over.
type PaymentMethod string

const (
	MethodBinance PaymentMethod = "binance"
	MethodTRC20   PaymentMethod = "trc20"
	MethodTON     PaymentMethod = "ton"
)

// Currency returns the ledger resource a method settles in.
func (m PaymentMethod) Currency() (Resource, bool) {
	switch m {
	case MethodBinance, MethodTRC20:
		return ResourceUSDT, true
	case MethodTON:
		return ResourceTON, true
	}
	return "", false
}

// PaymentStatus represents admin processing status
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// Payment is a deposit or withdrawal awaiting or past admin review. Reserved is
// set when the withdrawal amount was debited at request time.
type Payment struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	Kind        PaymentKind     `db:"kind" json:"kind"`
	Currency    Resource        `db:"currency" json:"currency"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Method      PaymentMethod   `db:"method" json:"method"`
	Address     string          `db:"address" json:"address,omitempty"`
	TxHash      string          `db:"tx_hash" json:"tx_hash,omitempty"`
	Status      PaymentStatus   `db:"status" json:"status"`
	Reserved    bool            `db:"reserved" json:"reserved"`
	AdminNotes  string          `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// WithdrawRequest represents a withdrawal request from user
type WithdrawRequest struct {
	Method  PaymentMethod   `json:"method" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Address string          `json:"address" binding:"required"`
}

// DepositRequest records an externally confirmed deposit for admin review.
type DepositRequest struct {
	Method PaymentMethod   `json:"method" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
	TxHash string          `json:"tx_hash" binding:"required"`
}
