package service

import (
	"strconv"
	"testing"
	"time"

	"sbr_farm/internal/domain"
)

func TestAdjustResource(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, nil)

	bal, err := f.admin.AdjustResource(f.ctx, "ops", u.ID, domain.ResourceSBR, dec("300"))
	if err != nil || !bal.Equal(dec("300")) {
		t.Fatalf("credit: %s %v", bal, err)
	}
	bal, err = f.admin.AdjustResource(f.ctx, "ops", u.ID, domain.ResourceSBR, dec("-120"))
	if err != nil || !bal.Equal(dec("180")) {
		t.Fatalf("debit: %s %v", bal, err)
	}
	_, err = f.admin.AdjustResource(f.ctx, "ops", u.ID, domain.ResourceSBR, dec("-181"))
	wantKind(t, err, domain.ErrInsufficientResource)
	_, err = f.admin.AdjustResource(f.ctx, "ops", u.ID, domain.ResourceSBR, dec("0"))
	wantKind(t, err, domain.ErrValidation)

	logs, err := f.admin.AuditLog(f.ctx, 10)
	if err != nil || len(logs) != 2 {
		t.Fatalf("audit rows = %d (%v), want 2", len(logs), err)
	}
	if logs[0].Actor != "ops" || logs[0].Action != domain.AuditActionAdjustResource || logs[0].UserID != u.ID {
		t.Fatalf("audit = %+v", logs[0])
	}
}

func TestAdminVipAndPayments(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.USDTBalance = dec("10") })

	exp := t0.Add(48 * time.Hour)
	got, err := f.admin.SetVipTier(f.ctx, "ops", u.ID, 4, &exp)
	if err != nil || got.VIPTier != 4 || !got.VIPExpiresAt.Equal(exp) {
		t.Fatalf("set tier: %+v %v", got, err)
	}

	p, _ := f.payments.RequestWithdrawal(f.ctx, u.ID, domain.ResourceUSDT, dec("6"), domain.MethodBinance, "id")
	if _, err := f.admin.ApprovePayment(f.ctx, "ops", p.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = f.admin.RejectPayment(f.ctx, "ops", p.ID, "late")
	wantKind(t, err, domain.ErrInvalidState)

	st, err := f.admin.Stats(f.ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Users != 1 || st.VIPUsers != 1 || st.PendingWithdrawals != 0 || !st.USDTInCirculation.Equal(dec("4")) {
		t.Fatalf("stats = %+v", st)
	}

	logs, _ := f.admin.AuditLog(f.ctx, 10)
	if len(logs) != 2 || logs[0].Action != domain.AuditActionWithdrawApprove || logs[1].Action != domain.AuditActionSetVIPTier {
		t.Fatalf("audit = %+v", logs)
	}

	found, err := f.admin.FindUser(f.ctx, strconv.FormatInt(u.TgID, 10))
	if err != nil || found.ID != u.ID {
		t.Fatalf("find by tg id: %+v %v", found, err)
	}
	_, err = f.admin.FindUser(f.ctx, "bob")
	wantKind(t, err, domain.ErrValidation)
}
