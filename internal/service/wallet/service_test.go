package wallet

import (
	"context"
	"errors"
	"testing"

	"monopolyx-service/internal/model"
	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.InitLogger("debug")
	m.Run()
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Wallet{}, &model.BillingLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewService(db)
}

func TestCreditAndDebit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if err := svc.Credit(ctx, 1, 1000, "adjust"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Debit(ctx, 1, 400, "poker buy-in"); err != nil {
		t.Fatal(err)
	}

	w, err := svc.GetWallet(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if w.BalanceAvailable != 600 || w.TotalBuyIn != 400 {
		t.Fatalf("wallet = %+v", w)
	}

	logs, err := svc.History(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 || logs[0].Delta != -400 || logs[0].BalanceAfter != 600 {
		t.Fatalf("logs = %+v", logs)
	}
}

func TestDebitInsufficientLeavesBalance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if err := svc.Credit(ctx, 2, 100, "adjust"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Debit(ctx, 2, 500, "poker buy-in"); !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("debit err = %v", err)
	}

	w, _ := svc.GetWallet(ctx, 2)
	if w.BalanceAvailable != 100 {
		t.Fatalf("balance = %d", w.BalanceAvailable)
	}
	logs, _ := svc.History(ctx, 2, 10)
	if len(logs) != 1 {
		t.Fatalf("failed debit must not log: %+v", logs)
	}
}

func TestAmountValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if err := svc.Debit(ctx, 3, 0, "poker buy-in"); !errors.Is(err, appErr.ErrInvalidAmount) {
		t.Fatalf("zero debit err = %v", err)
	}
	if err := svc.Credit(ctx, 3, -5, "adjust"); !errors.Is(err, appErr.ErrInvalidAmount) {
		t.Fatalf("negative credit err = %v", err)
	}
}

func TestGetWalletMissingUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	w, err := svc.GetWallet(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if w.UserID != 42 || w.BalanceAvailable != 0 {
		t.Fatalf("wallet = %+v", w)
	}
}
