package domain

import "time"

// MaxVIPTier is the highest purchasable tier; tier 0 means no subscription.
const MaxVIPTier = 4

// VIPBenefitGrant is an append-only fact: BenefitType was granted to UserID on
// GrantedOn (a UTC calendar day).
type VIPBenefitGrant struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Tier        int       `db:"tier" json:"tier"`
	BenefitType string    `db:"benefit_type" json:"benefit_type"`
	Amount      int64     `db:"amount" json:"amount"`
	GrantedOn   time.Time `db:"granted_on" json:"granted_on"`
}
