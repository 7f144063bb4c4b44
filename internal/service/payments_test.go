package service

import (
	"strings"
	"testing"

	"sbr_farm/internal/config"
	"sbr_farm/internal/domain"
)

var tonAddr = "0:" + strings.Repeat("5e", 32)

func TestWithdrawalReservedOnRequest(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.USDTBalance = dec("20") })

	p, err := f.payments.RequestWithdrawal(f.ctx, u.ID, domain.ResourceUSDT, dec("12.5"), domain.MethodBinance, "binance-id-1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !p.Reserved || !f.user(t, u.ID).USDTBalance.Equal(dec("7.5")) {
		t.Fatalf("amount not reserved: %+v balance %s", p, f.user(t, u.ID).USDTBalance)
	}

	if _, err := f.payments.Reject(f.ctx, p.ID, "wrong address"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if !f.user(t, u.ID).USDTBalance.Equal(dec("20")) {
		t.Fatalf("reject did not refund: %s", f.user(t, u.ID).USDTBalance)
	}
	_, err = f.payments.Approve(f.ctx, p.ID)
	wantKind(t, err, domain.ErrInvalidState)

	p, _ = f.payments.RequestWithdrawal(f.ctx, u.ID, domain.ResourceUSDT, dec("5"), domain.MethodTRC20, "T123")
	if _, err := f.payments.Approve(f.ctx, p.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !f.user(t, u.ID).USDTBalance.Equal(dec("15")) {
		t.Fatalf("approve debited twice: %s", f.user(t, u.ID).USDTBalance)
	}
}

func TestWithdrawalDebitedOnApproval(t *testing.T) {
	f := newFixtureWith(t, config.ReserveOnApproval)
	u := f.newUser(t, func(u *domain.User) { u.TONBalance = dec("3") })

	p, err := f.payments.RequestWithdrawal(f.ctx, u.ID, domain.ResourceTON, dec("2"), domain.MethodTON, tonAddr)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if p.Reserved || !f.user(t, u.ID).TONBalance.Equal(dec("3")) {
		t.Fatalf("request should not debit under approval policy")
	}
	if _, err := f.payments.Approve(f.ctx, p.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !f.user(t, u.ID).TONBalance.Equal(dec("1")) {
		t.Fatalf("ton = %s, want 1", f.user(t, u.ID).TONBalance)
	}

	p, _ = f.payments.RequestWithdrawal(f.ctx, u.ID, domain.ResourceTON, dec("1"), domain.MethodTON, tonAddr)
	f.update(t, u.ID, func(u *domain.User) { u.TONBalance = dec("0.5") })
	_, err = f.payments.Approve(f.ctx, p.ID)
	wantKind(t, err, domain.ErrInsufficientResource)
	if _, err := f.payments.Reject(f.ctx, p.ID, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if !f.user(t, u.ID).TONBalance.Equal(dec("0.5")) {
		t.Fatalf("reject changed balance under approval policy")
	}
}

func TestWithdrawalValidation(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, func(u *domain.User) { u.USDTBalance = dec("100") })

	cases := []struct {
		name     string
		currency domain.Resource
		amount   string
		method   domain.PaymentMethod
		kind     error
	}{
		{"below binance minimum", domain.ResourceUSDT, "4.99", domain.MethodBinance, domain.ErrValidation},
		{"below trc20 minimum", domain.ResourceUSDT, "3", domain.MethodTRC20, domain.ErrValidation},
		{"ton method for usdt", domain.ResourceUSDT, "10", domain.MethodTON, domain.ErrValidation},
		{"malformed ton address", domain.ResourceTON, "2", domain.MethodTON, domain.ErrValidation},
		{"unknown method", domain.ResourceUSDT, "10", domain.PaymentMethod("paypal"), domain.ErrValidation},
		{"more than balance", domain.ResourceUSDT, "100.01", domain.MethodBinance, domain.ErrInsufficientResource},
	}
	for _, tc := range cases {
		_, err := f.payments.RequestWithdrawal(f.ctx, u.ID, tc.currency, dec(tc.amount), tc.method, "addr")
		if domain.KindOf(err) != domain.KindOf(tc.kind) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.kind, err)
		}
	}
}

func TestDepositCreditedOnApproval(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, nil)

	p, err := f.payments.RecordDeposit(f.ctx, u.ID, domain.ResourceUSDT, dec("25"), domain.MethodTRC20, "0xabc")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !f.user(t, u.ID).USDTBalance.IsZero() {
		t.Fatalf("deposit credited before approval")
	}
	pending, _ := f.payments.Pending(f.ctx)
	if len(pending) != 1 || pending[0].ID != p.ID {
		t.Fatalf("pending = %+v", pending)
	}
	if _, err := f.payments.Approve(f.ctx, p.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !f.user(t, u.ID).USDTBalance.Equal(dec("25")) {
		t.Fatalf("usdt = %s, want 25", f.user(t, u.ID).USDTBalance)
	}
	hist, _ := f.payments.History(f.ctx, u.ID, 10)
	if len(hist) != 1 || hist[0].Status != domain.PaymentApproved {
		t.Fatalf("history = %+v", hist)
	}
}
