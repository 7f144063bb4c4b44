// Package memory is an in-process repository.Store for tests and local runs.
// Transactions are serialized by one mutex and work on a copy of the state
// that replaces the committed state only when fn returns nil.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"sbr_farm/internal/domain"
	"sbr_farm/internal/repository"

	"github.com/shopspring/decimal"
)

type itemKey struct {
	userID   int64
	itemType domain.ItemType
	name     string
}

type grantKey struct {
	userID  int64
	benefit string
	day     string
}

type state struct {
	seq      int64
	users    map[int64]domain.User
	tgIndex  map[int64]int64
	items    map[itemKey]int64
	crops    map[int64]domain.Crop
	contests map[int64]domain.Contest
	entries  map[int64]domain.ContestEntry
	winners  map[int64]domain.ContestWinner
	grants   map[grantKey]domain.VIPBenefitGrant
	payments map[int64]domain.Payment
	ledger   []domain.LedgerEntry
	audit    []domain.AuditLog
}

func newState() *state {
	return &state{
		users:    map[int64]domain.User{},
		tgIndex:  map[int64]int64{},
		items:    map[itemKey]int64{},
		crops:    map[int64]domain.Crop{},
		contests: map[int64]domain.Contest{},
		entries:  map[int64]domain.ContestEntry{},
		winners:  map[int64]domain.ContestWinner{},
		grants:   map[grantKey]domain.VIPBenefitGrant{},
		payments: map[int64]domain.Payment{},
	}
}

func (s *state) clone() *state {
	return &state{
		seq:      s.seq,
		users:    maps.Clone(s.users),
		tgIndex:  maps.Clone(s.tgIndex),
		items:    maps.Clone(s.items),
		crops:    maps.Clone(s.crops),
		contests: maps.Clone(s.contests),
		entries:  maps.Clone(s.entries),
		winners:  maps.Clone(s.winners),
		grants:   maps.Clone(s.grants),
		payments: maps.Clone(s.payments),
		ledger:   slices.Clip(s.ledger),
		audit:    slices.Clip(s.audit),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store implements repository.Store.
type Store struct {
	mu    sync.Mutex
	state *state

	hookMu sync.Mutex
	hook   func(op string, args ...any) error
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

// FailWhen installs a hook consulted before every Tx method. A non-nil return
// aborts that call with the returned error. Pass nil to remove it.
func (s *Store) FailWhen(hook func(op string, args ...any) error) {
	s.hookMu.Lock()
	s.hook = hook
	s.hookMu.Unlock()
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work, store: s}); err != nil {
		if domain.IsKnown(err) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	s.state = work
	return nil
}

type tx struct {
	st    *state
	store *Store
}

func (t *tx) check(op string, args ...any) error {
	t.store.hookMu.Lock()
	hook := t.store.hook
	t.store.hookMu.Unlock()
	if hook == nil {
		return nil
	}
	return hook(op, args...)
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrNotFound}, args...)...)
}

// Users

func (t *tx) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	if err := t.check("GetUser", id); err != nil {
		return nil, err
	}
	u, ok := t.st.users[id]
	if !ok {
		return nil, notFound("user %d", id)
	}
	return &u, nil
}

func (t *tx) UserForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	if err := t.check("UserForUpdate", id); err != nil {
		return nil, err
	}
	u, ok := t.st.users[id]
	if !ok {
		return nil, notFound("user %d", id)
	}
	return &u, nil
}

func (t *tx) UserByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	if err := t.check("UserByTgID", tgID); err != nil {
		return nil, err
	}
	id, ok := t.st.tgIndex[tgID]
	if !ok {
		return nil, notFound("tg user %d", tgID)
	}
	u := t.st.users[id]
	return &u, nil
}

func (t *tx) CreateUser(ctx context.Context, u *domain.User) error {
	if err := t.check("CreateUser", u.TgID); err != nil {
		return err
	}
	if _, ok := t.st.tgIndex[u.TgID]; ok {
		return fmt.Errorf("%w: user with tg_id %d exists", domain.ErrConflict, u.TgID)
	}
	u.ID = t.st.nextID()
	u.UpdatedAt = u.CreatedAt
	t.st.users[u.ID] = *u
	t.st.tgIndex[u.TgID] = u.ID
	return nil
}

func (t *tx) UpdateUser(ctx context.Context, u *domain.User) error {
	if err := t.check("UpdateUser", u.ID); err != nil {
		return err
	}
	old, ok := t.st.users[u.ID]
	if !ok {
		return notFound("user %d", u.ID)
	}
	// identity columns are immutable, as in the SQL UPDATE
	nu := *u
	nu.TgID, nu.Username, nu.FirstName, nu.ReferralCode, nu.CreatedAt = old.TgID, old.Username, old.FirstName, old.ReferralCode, old.CreatedAt
	t.st.users[u.ID] = nu
	return nil
}

func (t *tx) ActiveVIPUserIDs(ctx context.Context, now time.Time) ([]int64, error) {
	if err := t.check("ActiveVIPUserIDs"); err != nil {
		return nil, err
	}
	var ids []int64
	for id, u := range t.st.users {
		if u.VIPActive(now) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Inventory

func (t *tx) AddItem(ctx context.Context, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error) {
	if err := t.check("AddItem", userID, itemType, name); err != nil {
		return 0, err
	}
	k := itemKey{userID, itemType, name}
	t.st.items[k] += qty
	return t.st.items[k], nil
}

func (t *tx) TakeItem(ctx context.Context, userID int64, itemType domain.ItemType, name string, qty int64) (int64, error) {
	if err := t.check("TakeItem", userID, itemType, name); err != nil {
		return 0, err
	}
	k := itemKey{userID, itemType, name}
	if t.st.items[k] < qty {
		return 0, fmt.Errorf("%w: %s %s", domain.ErrInsufficientResource, name, itemType)
	}
	t.st.items[k] -= qty
	return t.st.items[k], nil
}

func (t *tx) ListItems(ctx context.Context, userID int64) ([]domain.InventoryEntry, error) {
	if err := t.check("ListItems", userID); err != nil {
		return nil, err
	}
	var out []domain.InventoryEntry
	for k, q := range t.st.items {
		if k.userID == userID && q > 0 {
			out = append(out, domain.InventoryEntry{UserID: userID, ItemType: k.itemType, ItemName: k.name, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemType != out[j].ItemType {
			return out[i].ItemType < out[j].ItemType
		}
		return out[i].ItemName < out[j].ItemName
	})
	return out, nil
}

// Crops

func (t *tx) InsertCrop(ctx context.Context, c *domain.Crop) error {
	if err := t.check("InsertCrop", c.UserID, c.PatchNumber); err != nil {
		return err
	}
	for _, o := range t.st.crops {
		if o.UserID == c.UserID && o.PatchNumber == c.PatchNumber && !o.Harvested {
			return fmt.Errorf("%w: patch %d is occupied", domain.ErrInvalidState, c.PatchNumber)
		}
	}
	c.ID = t.st.nextID()
	t.st.crops[c.ID] = *c
	return nil
}

func (t *tx) CropForUpdate(ctx context.Context, id int64) (*domain.Crop, error) {
	if err := t.check("CropForUpdate", id); err != nil {
		return nil, err
	}
	c, ok := t.st.crops[id]
	if !ok {
		return nil, notFound("crop %d", id)
	}
	return &c, nil
}

func (t *tx) UpdateCrop(ctx context.Context, c *domain.Crop) error {
	if err := t.check("UpdateCrop", c.ID); err != nil {
		return err
	}
	if _, ok := t.st.crops[c.ID]; !ok {
		return notFound("crop %d", c.ID)
	}
	t.st.crops[c.ID] = *c
	return nil
}

func (t *tx) ActiveCrops(ctx context.Context, userID int64) ([]*domain.Crop, error) {
	if err := t.check("ActiveCrops", userID); err != nil {
		return nil, err
	}
	var out []*domain.Crop
	for _, c := range t.st.crops {
		if c.UserID == userID && !c.Harvested {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatchNumber < out[j].PatchNumber })
	return out, nil
}

func (t *tx) CountReadyCrops(ctx context.Context, now time.Time) (int64, error) {
	if err := t.check("CountReadyCrops"); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range t.st.crops {
		if c.State(now) == domain.CropReady {
			n++
		}
	}
	return n, nil
}

// Contests

func (t *tx) ActiveContest(ctx context.Context, typ domain.ContestType) (*domain.Contest, error) {
	if err := t.check("ActiveContest", typ); err != nil {
		return nil, err
	}
	for _, c := range t.st.contests {
		if c.Type == typ && c.Status == domain.ContestActive {
			return &c, nil
		}
	}
	return nil, notFound("active %s contest", typ)
}

func (t *tx) ContestForUpdate(ctx context.Context, id int64) (*domain.Contest, error) {
	if err := t.check("ContestForUpdate", id); err != nil {
		return nil, err
	}
	c, ok := t.st.contests[id]
	if !ok {
		return nil, notFound("contest %d", id)
	}
	return &c, nil
}

func (t *tx) InsertContest(ctx context.Context, c *domain.Contest) error {
	if err := t.check("InsertContest", c.Type); err != nil {
		return err
	}
	if c.Status == domain.ContestActive {
		for _, o := range t.st.contests {
			if o.Type == c.Type && o.Status == domain.ContestActive {
				return fmt.Errorf("%w: %s contest already active", domain.ErrConflict, c.Type)
			}
		}
	}
	c.ID = t.st.nextID()
	t.st.contests[c.ID] = *c
	return nil
}

func (t *tx) UpdateContest(ctx context.Context, c *domain.Contest) error {
	if err := t.check("UpdateContest", c.ID); err != nil {
		return err
	}
	t.st.contests[c.ID] = *c
	return nil
}

func (t *tx) findEntry(contestID, userID int64) (domain.ContestEntry, bool) {
	for _, e := range t.st.entries {
		if e.ContestID == contestID && e.UserID == userID {
			return e, true
		}
	}
	return domain.ContestEntry{}, false
}

func (t *tx) InsertEntry(ctx context.Context, e *domain.ContestEntry) (bool, error) {
	if err := t.check("InsertEntry", e.ContestID, e.UserID); err != nil {
		return false, err
	}
	if _, ok := t.findEntry(e.ContestID, e.UserID); ok {
		return false, nil
	}
	e.ID = t.st.nextID()
	t.st.entries[e.ID] = *e
	return true, nil
}

func (t *tx) EntryForUpdate(ctx context.Context, contestID, userID int64) (*domain.ContestEntry, error) {
	if err := t.check("EntryForUpdate", contestID, userID); err != nil {
		return nil, err
	}
	e, ok := t.findEntry(contestID, userID)
	if !ok {
		return nil, notFound("entry of user %d in contest %d", userID, contestID)
	}
	return &e, nil
}

func (t *tx) UpdateEntry(ctx context.Context, e *domain.ContestEntry) error {
	if err := t.check("UpdateEntry", e.ID); err != nil {
		return err
	}
	t.st.entries[e.ID] = *e
	return nil
}

func (t *tx) QualifyingEntries(ctx context.Context, contestID int64, minAds int) ([]*domain.ContestEntry, error) {
	if err := t.check("QualifyingEntries", contestID); err != nil {
		return nil, err
	}
	var out []*domain.ContestEntry
	for _, e := range t.st.entries {
		if e.ContestID == contestID && e.AdsWatched >= minAds {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) CountEntries(ctx context.Context, contestID int64) (int, error) {
	if err := t.check("CountEntries", contestID); err != nil {
		return 0, err
	}
	n := 0
	for _, e := range t.st.entries {
		if e.ContestID == contestID {
			n++
		}
	}
	return n, nil
}

func (t *tx) InsertWinner(ctx context.Context, w *domain.ContestWinner) error {
	if err := t.check("InsertWinner", w.ContestID, w.UserID); err != nil {
		return err
	}
	w.ID = t.st.nextID()
	t.st.winners[w.ID] = *w
	return nil
}

func (t *tx) WinnerForUpdate(ctx context.Context, id int64) (*domain.ContestWinner, error) {
	if err := t.check("WinnerForUpdate", id); err != nil {
		return nil, err
	}
	w, ok := t.st.winners[id]
	if !ok {
		return nil, notFound("winner %d", id)
	}
	return &w, nil
}

func (t *tx) UpdateWinner(ctx context.Context, w *domain.ContestWinner) error {
	if err := t.check("UpdateWinner", w.ID); err != nil {
		return err
	}
	t.st.winners[w.ID] = *w
	return nil
}

func (t *tx) UnsettledWinners(ctx context.Context, limit int) ([]*domain.ContestWinner, error) {
	if err := t.check("UnsettledWinners"); err != nil {
		return nil, err
	}
	var out []*domain.ContestWinner
	for _, w := range t.st.winners {
		if !w.Settled {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Grants

func (t *tx) InsertGrant(ctx context.Context, g *domain.VIPBenefitGrant) (bool, error) {
	if err := t.check("InsertGrant", g.UserID, g.BenefitType); err != nil {
		return false, err
	}
	k := grantKey{g.UserID, g.BenefitType, g.GrantedOn.UTC().Format(time.DateOnly)}
	if _, ok := t.st.grants[k]; ok {
		return false, nil
	}
	g.ID = t.st.nextID()
	t.st.grants[k] = *g
	return true, nil
}

func (t *tx) ListGrants(ctx context.Context, userID int64, limit int) ([]*domain.VIPBenefitGrant, error) {
	if err := t.check("ListGrants", userID); err != nil {
		return nil, err
	}
	var out []*domain.VIPBenefitGrant
	for _, g := range t.st.grants {
		if g.UserID == userID {
			g := g
			out = append(out, &g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Payments

func (t *tx) InsertPayment(ctx context.Context, p *domain.Payment) error {
	if err := t.check("InsertPayment", p.UserID); err != nil {
		return err
	}
	p.ID = t.st.nextID()
	t.st.payments[p.ID] = *p
	return nil
}

func (t *tx) PaymentForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	if err := t.check("PaymentForUpdate", id); err != nil {
		return nil, err
	}
	p, ok := t.st.payments[id]
	if !ok {
		return nil, notFound("payment %d", id)
	}
	return &p, nil
}

func (t *tx) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	if err := t.check("UpdatePayment", p.ID); err != nil {
		return err
	}
	t.st.payments[p.ID] = *p
	return nil
}

func (t *tx) listPayments(match func(domain.Payment) bool) []*domain.Payment {
	var out []*domain.Payment
	for _, p := range t.st.payments {
		if match(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tx) PendingPayments(ctx context.Context) ([]*domain.Payment, error) {
	if err := t.check("PendingPayments"); err != nil {
		return nil, err
	}
	return t.listPayments(func(p domain.Payment) bool { return p.Status == domain.PaymentPending }), nil
}

func (t *tx) UserPayments(ctx context.Context, userID int64, limit int) ([]*domain.Payment, error) {
	if err := t.check("UserPayments", userID); err != nil {
		return nil, err
	}
	out := t.listPayments(func(p domain.Payment) bool { return p.UserID == userID })
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Journal

func (t *tx) InsertLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	if err := t.check("InsertLedgerEntry", e.UserID, e.Resource); err != nil {
		return err
	}
	e.ID = t.st.nextID()
	t.st.ledger = append(t.st.ledger, *e)
	return nil
}

func (t *tx) LedgerEntries(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	if err := t.check("LedgerEntries", userID); err != nil {
		return nil, err
	}
	var out []*domain.LedgerEntry
	for i := len(t.st.ledger) - 1; i >= 0; i-- {
		if e := t.st.ledger[i]; e.UserID == userID {
			out = append(out, &e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (t *tx) InsertAudit(ctx context.Context, a *domain.AuditLog) error {
	if err := t.check("InsertAudit", a.Action); err != nil {
		return err
	}
	a.ID = t.st.nextID()
	t.st.audit = append(t.st.audit, *a)
	return nil
}

func (t *tx) RecentAudit(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	if err := t.check("RecentAudit"); err != nil {
		return nil, err
	}
	var out []*domain.AuditLog
	for i := len(t.st.audit) - 1; i >= 0; i-- {
		a := t.st.audit[i]
		out = append(out, &a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (t *tx) Stats(ctx context.Context, now time.Time) (domain.Stats, error) {
	if err := t.check("Stats"); err != nil {
		return domain.Stats{}, err
	}
	s := domain.Stats{USDTInCirculation: decimal.Zero}
	for _, u := range t.st.users {
		s.Users++
		if u.VIPActive(now) {
			s.VIPUsers++
		}
		s.SBRInCirculation += u.SBRCoins
		s.USDTInCirculation = s.USDTInCirculation.Add(u.USDTBalance)
	}
	for _, c := range t.st.crops {
		if !c.Harvested {
			s.ActiveCrops++
			if c.State(now) == domain.CropReady {
				s.ReadyCrops++
			}
		}
	}
	for _, p := range t.st.payments {
		if p.Status != domain.PaymentPending {
			continue
		}
		if p.Kind == domain.PaymentWithdrawal {
			s.PendingWithdrawals++
		} else {
			s.PendingDeposits++
		}
	}
	return s, nil
}
