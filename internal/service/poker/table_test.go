package poker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("debug")
	m.Run()
}

// newTestTable seats one human per stack (user ids 1..n) at a 5/10 table
// with no act deadline.
func newTestTable(t *testing.T, stacks ...int64) *Table {
	t.Helper()
	tbl := newTable(TableOptions{
		ID:         "t1",
		Name:       "Test",
		SmallBlind: 5,
		BigBlind:   10,
		MinBuyIn:   100,
		MaxBuyIn:   2000,
		MaxSeats:   6,
	})
	for i, chips := range stacks {
		if _, err := tbl.Sit(int64(i+1), fmt.Sprintf("P%d", i+1), false, chips); err != nil {
			t.Fatal(err)
		}
	}
	return tbl
}

func totalChips(tbl *Table) int64 {
	var sum int64
	for _, st := range tbl.seats {
		if st != nil {
			sum += st.Chips + st.HandBet
		}
	}
	return sum
}

func TestHeadsUpBlindsAndOrder(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	// Heads-up: the dealer posts the small blind and acts first preflop.
	if tbl.street != StreetPreflop || tbl.dealerSeat != 0 {
		t.Fatalf("street=%s dealer=%d", tbl.street, tbl.dealerSeat)
	}
	if tbl.seats[0].StreetBet != 5 || tbl.seats[1].StreetBet != 10 {
		t.Fatalf("blinds = %d/%d", tbl.seats[0].StreetBet, tbl.seats[1].StreetBet)
	}
	if tbl.currentBet != 10 || tbl.minRaise != 10 || tbl.actingSeat != 0 {
		t.Fatalf("currentBet=%d minRaise=%d acting=%d", tbl.currentBet, tbl.minRaise, tbl.actingSeat)
	}
	if len(tbl.seats[0].Hole) != 2 || len(tbl.seats[1].Hole) != 2 {
		t.Fatal("hole cards not dealt")
	}
	if tbl.StartHand(1) == nil {
		t.Fatal("starting over a running hand must fail")
	}
}

func TestCheckCallAdvancesStreet(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	if err := tbl.Call(1); err != nil {
		t.Fatal(err)
	}
	// Big blind still has the option; the street is not over.
	if tbl.street != StreetPreflop || tbl.actingSeat != 1 {
		t.Fatalf("street=%s acting=%d", tbl.street, tbl.actingSeat)
	}
	if err := tbl.Check(2); err != nil {
		t.Fatal(err)
	}

	if tbl.street != StreetFlop || len(tbl.community) != 3 {
		t.Fatalf("street=%s community=%v", tbl.street, tbl.community)
	}
	if tbl.currentBet != 0 || tbl.seats[0].StreetBet != 0 || tbl.seats[0].Acted {
		t.Fatal("street state not reset")
	}
	// Postflop the non-dealer acts first.
	if tbl.actingSeat != 1 {
		t.Fatalf("acting = %d", tbl.actingSeat)
	}
}

func TestOutOfTurnAndBadChecks(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	if err := tbl.Call(2); !errors.Is(err, appErr.ErrNotYourTurn) {
		t.Fatalf("out of turn err = %v", err)
	}
	if err := tbl.Check(1); !errors.Is(err, appErr.ErrIllegalAction) {
		t.Fatalf("check facing a bet err = %v", err)
	}
	if err := tbl.Fold(99); !errors.Is(err, appErr.ErrUnauthorized) {
		t.Fatalf("stranger err = %v", err)
	}
}

func TestFoldEndsHandUncontested(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	if err := tbl.Fold(1); err != nil {
		t.Fatal(err)
	}
	if tbl.street != StreetShowdown {
		t.Fatalf("street = %s", tbl.street)
	}
	// The blind above the small blind returns uncalled, so the winner nets
	// exactly the small blind.
	if tbl.seats[1].Chips != 1005 || tbl.seats[0].Chips != 995 {
		t.Fatalf("chips = %d/%d", tbl.seats[1].Chips, tbl.seats[0].Chips)
	}
	res := tbl.lastResult
	if res == nil || len(res.Winners) != 1 || res.Winners[0].Seat != 1 || res.Winners[0].Amount != 10 {
		t.Fatalf("result = %+v", res)
	}
	if totalChips(tbl) != 2000 {
		t.Fatalf("chips not conserved: %d", totalChips(tbl))
	}
}

func TestMinRaiseEnforced(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}
	// Three-handed: dealer 0, blinds 1 and 2, seat 0 opens.
	if tbl.actingSeat != 0 {
		t.Fatalf("acting = %d", tbl.actingSeat)
	}

	if err := tbl.Raise(1, 15); !errors.Is(err, appErr.ErrInvalidAmount) {
		t.Fatalf("short raise err = %v", err)
	}
	if err := tbl.Raise(1, 30); err != nil {
		t.Fatal(err)
	}
	if tbl.minRaise != 20 || tbl.currentBet != 30 {
		t.Fatalf("minRaise=%d currentBet=%d", tbl.minRaise, tbl.currentBet)
	}
	if tbl.seats[1].Acted || tbl.seats[2].Acted {
		t.Fatal("a full raise must reopen the betting")
	}

	if err := tbl.Call(2); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Call(3); err != nil {
		t.Fatal(err)
	}
	if tbl.street != StreetFlop {
		t.Fatalf("street = %s", tbl.street)
	}
	if got := tbl.Snapshot(1).Pot; got != 90 {
		t.Fatalf("pot = %d", got)
	}
}

func TestShortAllInDoesNotReopen(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000, 35)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	if err := tbl.Raise(1, 30); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Call(2); err != nil {
		t.Fatal(err)
	}
	// Seat 2 shoves 35 total: short of the 50 minimum, legal only all-in.
	if err := tbl.Raise(3, 35); err != nil {
		t.Fatal(err)
	}
	if !tbl.seats[2].AllIn {
		t.Fatal("short shove must be all-in")
	}
	if tbl.minRaise != 20 || tbl.currentBet != 35 {
		t.Fatalf("minRaise=%d currentBet=%d", tbl.minRaise, tbl.currentBet)
	}
	if !tbl.seats[0].Acted {
		t.Fatal("short all-in must not reset acted flags")
	}

	if err := tbl.Call(1); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Call(2); err != nil {
		t.Fatal(err)
	}
	if tbl.street != StreetFlop {
		t.Fatalf("street = %s", tbl.street)
	}
}

func TestUncalledRaiseReturned(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	if err := tbl.Raise(1, 100); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Fold(2); err != nil {
		t.Fatal(err)
	}
	// 90 uncalled returns; the winner nets only the big blind.
	if tbl.seats[0].Chips != 1010 || tbl.seats[1].Chips != 990 {
		t.Fatalf("chips = %d/%d", tbl.seats[0].Chips, tbl.seats[1].Chips)
	}
	if totalChips(tbl) != 2000 {
		t.Fatalf("chips not conserved: %d", totalChips(tbl))
	}
}

func TestAllInCallRunsOut(t *testing.T) {
	tbl := newTestTable(t, 200, 200)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	if err := tbl.Raise(1, 200); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Call(2); err != nil {
		t.Fatal(err)
	}

	// Nobody can act, so the board runs out and the hand settles.
	if tbl.street != StreetShowdown || len(tbl.community) != 5 {
		t.Fatalf("street=%s community=%v", tbl.street, tbl.community)
	}
	if tbl.lastResult == nil || len(tbl.lastResult.Winners) == 0 {
		t.Fatalf("result = %+v", tbl.lastResult)
	}
	if totalChips(tbl) != 400 {
		t.Fatalf("chips not conserved: %d", totalChips(tbl))
	}
	// Showdown reveals both hands.
	snap := tbl.Snapshot(0)
	for _, ss := range snap.Seats {
		if ss != nil && ss.InHand && len(ss.Hole) != 2 {
			t.Fatalf("showdown hand hidden: %+v", ss)
		}
	}
}

func TestShowdownSidePots(t *testing.T) {
	tbl := newTestTable(t, 50, 100, 100)

	// Rig a river spot: seat 0 all-in for 50 with aces, the others in for
	// 100 each. Aces win the main pot, kings take the side pot.
	tbl.street = StreetRiver
	tbl.community = cards("2s", "5d", "9h", "Jc", "3c")
	holes := [][]Card{cards("Ah", "As"), cards("Kh", "Ks"), cards("7d", "8c")}
	bets := []int64{50, 100, 100}
	for i, st := range tbl.seats[:3] {
		st.Folded = false
		st.Hole = holes[i]
		st.HandBet = bets[i]
		st.Chips = 0
	}
	tbl.seats[0].AllIn = true

	tbl.mu.Lock()
	tbl.showdownLocked()
	tbl.mu.Unlock()

	if tbl.seats[0].Chips != 150 {
		t.Fatalf("main pot winner chips = %d", tbl.seats[0].Chips)
	}
	if tbl.seats[1].Chips != 100 {
		t.Fatalf("side pot winner chips = %d", tbl.seats[1].Chips)
	}
	if tbl.seats[2].Chips != 0 {
		t.Fatalf("loser chips = %d", tbl.seats[2].Chips)
	}
	if len(tbl.lastResult.Winners) != 2 {
		t.Fatalf("winners = %+v", tbl.lastResult.Winners)
	}
}

func TestShowdownSplitsTies(t *testing.T) {
	tbl := newTestTable(t, 100, 100)

	// Both play the board straight; the pot splits.
	tbl.street = StreetRiver
	tbl.community = cards("5s", "6d", "7h", "8c", "9c")
	holes := [][]Card{cards("2h", "3s"), cards("2d", "3c")}
	for i, st := range tbl.seats[:2] {
		st.Folded = false
		st.Hole = holes[i]
		st.HandBet = 100
		st.Chips = 0
	}

	tbl.mu.Lock()
	tbl.showdownLocked()
	tbl.mu.Unlock()

	if tbl.seats[0].Chips != 100 || tbl.seats[1].Chips != 100 {
		t.Fatalf("chips = %d/%d", tbl.seats[0].Chips, tbl.seats[1].Chips)
	}
}

func TestHoleCardsHiddenFromOthers(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	snap := tbl.Snapshot(1)
	if snap.MySeat != 0 || len(snap.Seats[0].Hole) != 2 {
		t.Fatalf("own cards missing: %+v", snap.Seats[0])
	}
	if len(snap.Seats[1].Hole) != 0 {
		t.Fatal("opponent cards leaked")
	}
}

func TestTimeoutFoldsAndStrikes(t *testing.T) {
	tbl := newTable(TableOptions{
		ID: "t1", Name: "Test",
		SmallBlind: 5, BigBlind: 10,
		MinBuyIn: 100, MaxBuyIn: 2000,
		MaxSeats: 6, ActSeconds: 30,
	})
	tbl.Sit(1, "P1", false, 1000)
	tbl.Sit(2, "P2", false, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	// Past the deadline the small blind owes chips and is folded; the sweep
	// then restarts the next hand in the same pass.
	if ej := tbl.Sweep(time.Now().Add(time.Minute)); len(ej) != 0 {
		t.Fatalf("ejections = %+v", ej)
	}
	if tbl.seats[0].Strikes != 1 {
		t.Fatalf("strikes = %d", tbl.seats[0].Strikes)
	}
	if tbl.handID != 2 {
		t.Fatalf("handID = %d", tbl.handID)
	}
}

func TestStrikedOutSeatEjected(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000)
	tbl.street = StreetShowdown
	tbl.handEndedAt = time.Now().Add(-time.Minute)
	tbl.seats[0].Strikes = maxTimeoutStrikes

	ej := tbl.Sweep(time.Now())
	if len(ej) != 1 || ej[0].UserID != 1 || ej[0].Chips != 1000 {
		t.Fatalf("ejections = %+v", ej)
	}
	if tbl.seats[0] != nil {
		t.Fatal("seat not freed")
	}
	if _, ok := tbl.byUser[1]; ok {
		t.Fatal("user mapping not cleared")
	}
}

func TestSweepAutoStartsHand(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000)
	if ej := tbl.Sweep(time.Now()); len(ej) != 0 {
		t.Fatalf("ejections = %+v", ej)
	}
	if tbl.street != StreetPreflop || tbl.handID != 1 {
		t.Fatalf("street=%s handID=%d", tbl.street, tbl.handID)
	}
}

func TestStandMidHandFoldsAndRefunds(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	// The big blind walks away mid-hand: five of their ten come back
	// uncalled, the rest goes to the small blind.
	chips, err := tbl.Stand(2)
	if err != nil {
		t.Fatal(err)
	}
	if chips != 995 {
		t.Fatalf("refund = %d", chips)
	}
	if tbl.seats[0].Chips != 1005 {
		t.Fatalf("winner chips = %d", tbl.seats[0].Chips)
	}
	if tbl.seats[1] != nil {
		t.Fatal("seat not freed after settlement")
	}
	if _, err := tbl.Stand(2); !errors.Is(err, appErr.ErrInvalidTarget) {
		t.Fatalf("double stand err = %v", err)
	}
}

func TestLeaverUncalledBetRefundedOnSweep(t *testing.T) {
	tbl := newTestTable(t, 1000, 1000, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	// Three-handed: seat 0 opens to 100, then walks away. The hand is still
	// live, so the refund excludes the wager and the chair stays as a husk.
	if err := tbl.Raise(1, 100); err != nil {
		t.Fatal(err)
	}
	chips, err := tbl.Stand(1)
	if err != nil {
		t.Fatal(err)
	}
	if chips != 900 {
		t.Fatalf("refund = %d", chips)
	}

	// The fold-around settles: 90 of the raise was never called and returns
	// to the husk seat, the big blind takes the 25 pot.
	if err := tbl.Fold(2); err != nil {
		t.Fatal(err)
	}
	if tbl.street != StreetShowdown {
		t.Fatalf("street = %s", tbl.street)
	}
	if tbl.seats[0].Chips != 90 {
		t.Fatalf("husk chips = %d", tbl.seats[0].Chips)
	}
	if tbl.seats[2].Chips != 1015 {
		t.Fatalf("winner chips = %d", tbl.seats[2].Chips)
	}

	// The sweep frees the husk and hands the returned bet back for a wallet
	// refund.
	ej := tbl.Sweep(time.Now().Add(restartDelay + time.Second))
	if len(ej) != 1 || ej[0].UserID != 1 || ej[0].Chips != 90 {
		t.Fatalf("ejections = %+v", ej)
	}
	if tbl.seats[0] != nil {
		t.Fatal("husk seat not freed")
	}
	if tbl.handID != 2 {
		t.Fatalf("handID = %d", tbl.handID)
	}
	// Every chip is accounted for: refund, ejection, and the two live stacks.
	if sum := chips + ej[0].Chips + totalChips(tbl); sum != 3000 {
		t.Fatalf("chips not conserved: %d", sum)
	}
}

func TestBotsPlayToCompletion(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Sit(0, "Bot A", true, 500)
	tbl.Sit(0, "Bot B", true, 500)
	tbl.Sit(1, "P1", false, 1000)
	if err := tbl.StartHand(1); err != nil {
		t.Fatal(err)
	}

	// Fold the human whenever the action reaches them; the bots must finish
	// the hand on their own without stalling.
	for i := 0; i < 20 && tbl.street != StreetShowdown; i++ {
		if tbl.actingSeat >= 0 && tbl.seats[tbl.actingSeat].UserID == 1 {
			if err := tbl.Fold(1); err != nil {
				t.Fatal(err)
			}
		} else if tbl.bettingLocked() {
			t.Fatalf("action stalled on bot seat %d", tbl.actingSeat)
		}
	}
	if tbl.street != StreetShowdown {
		t.Fatalf("street = %s", tbl.street)
	}
	if totalChips(tbl) != 2000 {
		t.Fatalf("chips not conserved: %d", totalChips(tbl))
	}
}
