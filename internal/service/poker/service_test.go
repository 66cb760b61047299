package poker

import (
	"context"
	"errors"
	"sync"
	"testing"

	appErr "monopolyx-service/pkg/errors"
)

// fakeLedger is an in-memory wallet for tests.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[int64]int64
}

func newFakeLedger(balances map[int64]int64) *fakeLedger {
	return &fakeLedger{balances: balances}
}

func (f *fakeLedger) Debit(_ context.Context, userID int64, amount int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[userID] < amount {
		return appErr.ErrInsufficientBalance
	}
	f.balances[userID] -= amount
	return nil
}

func (f *fakeLedger) Credit(_ context.Context, userID int64, amount int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] += amount
	return nil
}

func (f *fakeLedger) balance(userID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID]
}

func newTestPokerService(balances map[int64]int64) (*Service, *fakeLedger) {
	ledger := newFakeLedger(balances)
	svc := NewService(ledger, Options{SmallBlind: 5, BigBlind: 10, MinBuyInBB: 40, MaxBuyInBB: 200})
	return svc, ledger
}

func TestJoinDebitsWallet(t *testing.T) {
	ctx := context.Background()
	svc, ledger := newTestPokerService(map[int64]int64{1: 5000, 2: 100})

	tbl := svc.CreateTable(1, CreateParams{Name: "NL10"})
	if tbl.minBuyIn != 400 || tbl.maxBuyIn != 2000 {
		t.Fatalf("buy-in bounds = %d/%d", tbl.minBuyIn, tbl.maxBuyIn)
	}

	if _, err := svc.Join(ctx, tbl.ID(), 1, "Alice", 300); !errors.Is(err, appErr.ErrInvalidBuyIn) {
		t.Fatalf("below-min err = %v", err)
	}
	if _, err := svc.Join(ctx, tbl.ID(), 2, "Bob", 500); !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("broke join err = %v", err)
	}
	if _, err := svc.Join(ctx, tbl.ID(), 1, "Alice", 500); err != nil {
		t.Fatal(err)
	}
	if ledger.balance(1) != 4500 {
		t.Fatalf("balance = %d", ledger.balance(1))
	}
	if _, err := svc.Join(ctx, tbl.ID(), 1, "Alice", 500); !errors.Is(err, appErr.ErrAlreadySeated) {
		t.Fatalf("double join err = %v", err)
	}
	// The failed re-join must not eat the second debit.
	if ledger.balance(1) != 4500 {
		t.Fatalf("balance after refund = %d", ledger.balance(1))
	}
}

func TestLeaveCreditsStack(t *testing.T) {
	ctx := context.Background()
	svc, ledger := newTestPokerService(map[int64]int64{1: 5000})

	tbl := svc.CreateTable(1, CreateParams{})
	if _, err := svc.Join(ctx, tbl.ID(), 1, "Alice", 500); err != nil {
		t.Fatal(err)
	}
	chips, err := svc.Leave(ctx, tbl.ID(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if chips != 500 || ledger.balance(1) != 5000 {
		t.Fatalf("chips=%d balance=%d", chips, ledger.balance(1))
	}
}

func TestAddBotNeedsSeat(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPokerService(map[int64]int64{1: 5000})

	tbl := svc.CreateTable(1, CreateParams{})
	if err := svc.AddBot(tbl.ID(), 1); !errors.Is(err, appErr.ErrUnauthorized) {
		t.Fatalf("unseated add-bot err = %v", err)
	}
	if _, err := svc.Join(ctx, tbl.ID(), 1, "Alice", 500); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddBot(tbl.ID(), 1); err != nil {
		t.Fatal(err)
	}

	seated := 0
	for _, st := range tbl.Snapshot(1).Seats {
		if st != nil {
			seated++
		}
	}
	if seated != 2 {
		t.Fatalf("seated = %d", seated)
	}
}

func TestRemoveBot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPokerService(map[int64]int64{1: 5000})

	tbl := svc.CreateTable(1, CreateParams{})
	if _, err := svc.Join(ctx, tbl.ID(), 1, "Alice", 500); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddBot(tbl.ID(), 1); err != nil {
		t.Fatal(err)
	}
	if err := svc.RemoveBot(tbl.ID(), 1); err != nil {
		t.Fatal(err)
	}
	// Only the human is left.
	if err := svc.RemoveBot(tbl.ID(), 1); !errors.Is(err, appErr.ErrInvalidTarget) {
		t.Fatalf("no-bot remove err = %v", err)
	}

	seated := 0
	for _, st := range tbl.Snapshot(1).Seats {
		if st != nil {
			seated++
		}
	}
	if seated != 1 {
		t.Fatalf("seated = %d", seated)
	}
}

func TestListAndGet(t *testing.T) {
	svc, _ := newTestPokerService(map[int64]int64{})

	tbl := svc.CreateTable(1, CreateParams{Name: "NL10"})
	list := svc.List()
	if len(list) != 1 || list[0].TableID != tbl.ID() || list[0].Name != "NL10" {
		t.Fatalf("list = %+v", list)
	}
	if _, err := svc.Get("nope"); !errors.Is(err, appErr.ErrTableNotFound) {
		t.Fatalf("missing table err = %v", err)
	}
}
