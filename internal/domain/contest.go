package domain

import "time"

type ContestType string

const (
	ContestDaily   ContestType = "daily"
	ContestWeekly  ContestType = "weekly"
	ContestMonthly ContestType = "monthly"
)

// ContestTypes lists every type in rollover order.
var ContestTypes = []ContestType{ContestDaily, ContestWeekly, ContestMonthly}

func ParseContestType(s string) (ContestType, bool) {
	switch t := ContestType(s); t {
	case ContestDaily, ContestWeekly, ContestMonthly:
		return t, true
	}
	return "", false
}

type ContestStatus string

const (
	ContestActive    ContestStatus = "active"
	ContestEnded     ContestStatus = "ended"
	ContestCancelled ContestStatus = "cancelled"
)

type Contest struct {
	ID          int64         `db:"id" json:"id"`
	Type        ContestType   `db:"type" json:"type"`
	EntryCost   int64         `db:"entry_cost" json:"entry_cost"`
	AdsRequired int           `db:"ads_required" json:"ads_required"`
	PrizeSpec   string        `db:"prize_spec" json:"prize_spec"`
	StartAt     time.Time     `db:"start_at" json:"start_at"`
	EndAt       time.Time     `db:"end_at" json:"end_at"`
	Status      ContestStatus `db:"status" json:"status"`
}

type ContestEntry struct {
	ID         int64     `db:"id" json:"id"`
	ContestID  int64     `db:"contest_id" json:"contest_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	AdsWatched int       `db:"ads_watched" json:"ads_watched"`
	EnteredAt  time.Time `db:"entered_at" json:"entered_at"`
}

// Qualifies reports whether the entry is in the winner pool of c.
func (e *ContestEntry) Qualifies(c *Contest) bool {
	return e.AdsWatched >= c.AdsRequired
}

// PrizeKind is what a contest winner receives.
type PrizeKind string

const (
	PrizeSBR   PrizeKind = "sbr"
	PrizeWater PrizeKind = "water"
	PrizeVIP   PrizeKind = "vip"
)

type Prize struct {
	Kind   PrizeKind `json:"kind" yaml:"kind"`
	Amount int64     `json:"amount" yaml:"amount"`
}

// ContestWinner is drawn when a contest ends and settled separately, so a
// failed payout can be retried without drawing again.
type ContestWinner struct {
	ID        int64      `db:"id" json:"id"`
	ContestID int64      `db:"contest_id" json:"contest_id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	PrizeKind PrizeKind  `db:"prize_kind" json:"prize_kind"`
	Amount    int64      `db:"amount" json:"amount"`
	Settled   bool       `db:"settled" json:"settled"`
	SettledAt *time.Time `db:"settled_at" json:"settled_at,omitempty"`
}

// PendingContest is the query model for pendingContest.
type PendingContest struct {
	Contest *Contest `json:"contest"`
	Entries int      `json:"entries"`
}
