package repository

import (
	"context"
	"time"

	"sbr_farm/internal/domain"
)

// Store runs units of work. Every mutating operation in the services goes
// through InTx; fn sees a context carrying the store deadline.
//
// Implementations return domain errors from fn unchanged and wrap anything
// else in domain.ErrStore. Lookups that find nothing return domain.ErrNotFound.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the row-level API available inside a transaction. Methods with a
// ForUpdate suffix lock the row until the transaction ends.
type Tx interface {
	Users
	Inventory
	Crops
	Contests
	Grants
	Payments
	Journal
	Stats(ctx context.Context, now time.Time) (domain.Stats, error)
}

type Users interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UserForUpdate(ctx context.Context, id int64) (*domain.User, error)
	UserByTgID(ctx context.Context, tgID int64) (*domain.User, error)
	// CreateUser fails with domain.ErrConflict when tg_id is taken.
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateUser(ctx context.Context, u *domain.User) error
	ActiveVIPUserIDs(ctx context.Context, now time.Time) ([]int64, error)
}

type Inventory interface {
	// AddItem upserts the key and increments it by qty, returning the new count.
	AddItem(ctx context.Context, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error)
	// TakeItem decrements the key, failing with domain.ErrInsufficientResource
	// when fewer than qty are held.
	TakeItem(ctx context.Context, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error)
	ListItems(ctx context.Context, userID int64) ([]domain.InventoryEntry, error)
}

type Crops interface {
	InsertCrop(ctx context.Context, c *domain.Crop) error
	CropForUpdate(ctx context.Context, id int64) (*domain.Crop, error)
	UpdateCrop(ctx context.Context, c *domain.Crop) error
	// ActiveCrops lists the user's non-harvested crops ordered by patch.
	ActiveCrops(ctx context.Context, userID int64) ([]*domain.Crop, error)
	CountReadyCrops(ctx context.Context, now time.Time) (int64, error)
}

type Contests interface {
	ActiveContest(ctx context.Context, t domain.ContestType) (*domain.Contest, error)
	ContestForUpdate(ctx context.Context, id int64) (*domain.Contest, error)
	// InsertContest fails with domain.ErrConflict if an active contest of the
	// same type exists.
	InsertContest(ctx context.Context, c *domain.Contest) error
	UpdateContest(ctx context.Context, c *domain.Contest) error

	// InsertEntry inserts unless (contest, user) exists; ok reports whether a
	// row was written.
	InsertEntry(ctx context.Context, e *domain.ContestEntry) (ok bool, err error)
	EntryForUpdate(ctx context.Context, contestID, userID int64) (*domain.ContestEntry, error)
	UpdateEntry(ctx context.Context, e *domain.ContestEntry) error
	QualifyingEntries(ctx context.Context, contestID int64, minAds int) ([]*domain.ContestEntry, error)
	CountEntries(ctx context.Context, contestID int64) (int, error)

	InsertWinner(ctx context.Context, w *domain.ContestWinner) error
	WinnerForUpdate(ctx context.Context, id int64) (*domain.ContestWinner, error)
	UpdateWinner(ctx context.Context, w *domain.ContestWinner) error
	UnsettledWinners(ctx context.Context, limit int) ([]*domain.ContestWinner, error)
}

type Grants interface {
	// InsertGrant writes the grant unless (user, benefit, day) exists.
	InsertGrant(ctx context.Context, g *domain.VIPBenefitGrant) (ok bool, err error)
	ListGrants(ctx context.Context, userID int64, limit int) ([]*domain.VIPBenefitGrant, error)
}

type Payments interface {
	InsertPayment(ctx context.Context, p *domain.Payment) error
	PaymentForUpdate(ctx context.Context, id int64) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, p *domain.Payment) error
	PendingPayments(ctx context.Context) ([]*domain.Payment, error)
	UserPayments(ctx context.Context, userID int64, limit int) ([]*domain.Payment, error)
}

type Journal interface {
	InsertLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error
	LedgerEntries(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error)
	InsertAudit(ctx context.Context, a *domain.AuditLog) error
	RecentAudit(ctx context.Context, limit int) ([]*domain.AuditLog, error)
}
