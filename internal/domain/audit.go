package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	Actor     string                 `db:"actor" json:"actor,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAdmin   = "admin"
	AuditCategoryPayment = "payment"
	AuditCategoryContest = "contest"
)

// Audit actions
const (
	AuditActionAdjustResource  = "adjust_resource"
	AuditActionSetVIPTier      = "set_vip_tier"
	AuditActionDepositApprove  = "deposit_approve"
	AuditActionDepositReject   = "deposit_reject"
	AuditActionWithdrawApprove = "withdraw_approve"
	AuditActionWithdrawReject  = "withdraw_reject"
	AuditActionContestEnded    = "contest_ended"
)
