package board

import (
	"errors"
	"testing"

	appErr "monopolyx-service/pkg/errors"
)

func landOn(s *Session, p *Player, tileIndex int) *RollResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Position = tileIndex
	res := &RollResult{PlayerID: p.ID, TileIndex: tileIndex, LandedOn: s.board[tileIndex].Name}
	s.resolveLandingLocked(p, s.board[tileIndex], res, 0)
	return res
}

func TestLandingGoToJail(t *testing.T) {
	s, a, _ := newTestGame(t)
	res := landOn(s, a, 30)
	if res.Action != "go_to_jail" {
		t.Fatalf("action = %s", res.Action)
	}
	if !a.Jailed || a.Position != 10 {
		t.Fatalf("jailed=%v pos=%d", a.Jailed, a.Position)
	}
}

func TestLandingFreeParkingCollectsPot(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.pot = 450

	res := landOn(s, a, 20)
	if res.Action != "collect_pot" || res.Amount != 450 {
		t.Fatalf("action=%s amount=%d", res.Action, res.Amount)
	}
	if a.Money != 1950 || s.pot != 0 {
		t.Fatalf("money=%d pot=%d", a.Money, s.pot)
	}

	// Empty pot: nothing happens.
	res = landOn(s, a, 20)
	if res.Action != "safe" {
		t.Fatalf("empty-pot action = %s", res.Action)
	}
}

func TestLandingTaxAccruesOnce(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.chanceDraw = func() chanceCard { return chanceCard{kind: "money", amount: 0, text: "nothing"} }

	// Landing only books the debt; the money moves when it is paid.
	res := landOn(s, a, 4) // income tax, $200
	if res.Amount != -200 || a.Money != 1500 || s.pot != 0 {
		t.Fatalf("amount=%d money=%d pot=%d", res.Amount, a.Money, s.pot)
	}
	if s.taxDue != 200 {
		t.Fatalf("taxDue = %d", s.taxDue)
	}
	if res.Action != "chance" {
		t.Fatalf("action = %s", res.Action)
	}

	paid, err := s.PayTax(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paid != 200 || a.Money != 1300 || s.pot != 200 {
		t.Fatalf("paid=%d money=%d pot=%d", paid, a.Money, s.pot)
	}
	// The debt settles exactly once.
	if _, err := s.PayTax(a.ID); !errors.Is(err, appErr.ErrAlreadyResolved) {
		t.Fatalf("double pay err = %v", err)
	}
	if err := s.EndTurn(a.ID); err != nil {
		t.Fatal(err)
	}
	if a.Money != 1300 || s.pot != 200 {
		t.Fatalf("turn end recollected: money=%d pot=%d", a.Money, s.pot)
	}
}

func TestUnpaidTaxCollectedAtTurnEnd(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.chanceDraw = func() chanceCard { return chanceCard{kind: "money", amount: 0, text: "nothing"} }

	landOn(s, a, 4)
	if err := s.EndTurn(a.ID); err != nil {
		t.Fatal(err)
	}
	if a.Money != 1300 || s.pot != 200 || s.taxDue != 0 {
		t.Fatalf("money=%d pot=%d taxDue=%d", a.Money, s.pot, s.taxDue)
	}
}

func TestChanceRelocationResolvesOnce(t *testing.T) {
	s, a, _ := newTestGame(t)
	calls := 0
	s.chanceDraw = func() chanceCard {
		calls++
		if calls == 1 {
			return chanceCard{kind: "move_random", text: "run"}
		}
		// Any follow-up draw must come from the non-moving cards.
		return chanceCard{kind: "money", amount: 0, text: "nothing"}
	}

	landOn(s, a, 22)
	if a.Position == 22 {
		t.Fatal("relocation card did not move the player")
	}
	if a.Position < 10 && !a.Jailed {
		t.Fatalf("pos = %d without wrapping or jail", a.Position)
	}
}

func TestLandingUnownedOffersBuy(t *testing.T) {
	s, a, _ := newTestGame(t)
	res := landOn(s, a, 39)
	if res.Action != "can_buy" || res.Amount != 400 {
		t.Fatalf("action=%s amount=%d", res.Action, res.Amount)
	}
}

func TestLandingOwnedSignalsRent(t *testing.T) {
	s, a, b := newTestGame(t)
	s.board[39].OwnerID = b.ID

	res := landOn(s, a, 39)
	if res.Action != "pay_rent" || res.Amount != 50 || res.OwnerID != b.ID {
		t.Fatalf("res = %+v", res)
	}

	// Mortgaged tiles ask for nothing.
	s.board[39].Mortgaged = true
	res = landOn(s, a, 39)
	if res.Action != "safe" {
		t.Fatalf("mortgaged action = %s", res.Action)
	}

	// Ruins neither rent nor sale.
	s.board[39].Mortgaged = false
	s.board[39].Destroyed = true
	res = landOn(s, a, 39)
	if res.Action != "destroyed" {
		t.Fatalf("ruins action = %s", res.Action)
	}
}

func TestLandingStartPaysBonus(t *testing.T) {
	s, a, _ := newTestGame(t)
	res := landOn(s, a, 0)
	if res.Action != "safe" || a.Money != 1500+landingBonus {
		t.Fatalf("action=%s money=%d", res.Action, a.Money)
	}
}

func TestChanceMoneyCard(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.mu.Lock()
	moved := s.applyChanceLocked(a, &RollResult{}, chanceCard{kind: "money", amount: -300, text: "casino"})
	s.mu.Unlock()
	if moved || a.Money != 1200 {
		t.Fatalf("moved=%v money=%d", moved, a.Money)
	}
}

func TestChanceTeleportToStart(t *testing.T) {
	s, a, _ := newTestGame(t)
	a.Position = 22
	s.mu.Lock()
	moved := s.applyChanceLocked(a, &RollResult{}, chanceCard{kind: "move_to_start", text: "hq"})
	s.mu.Unlock()
	if !moved || a.Position != 0 {
		t.Fatalf("moved=%v pos=%d", moved, a.Position)
	}
}

func TestChanceJailCard(t *testing.T) {
	s, a, _ := newTestGame(t)
	res := &RollResult{}
	s.mu.Lock()
	moved := s.applyChanceLocked(a, res, chanceCard{kind: "move_to_jail", text: "committee"})
	s.mu.Unlock()
	if moved {
		t.Fatal("jail card must not trigger another landing pass")
	}
	if !a.Jailed || a.Position != 10 || res.Action != "go_to_jail" {
		t.Fatalf("jailed=%v pos=%d action=%s", a.Jailed, a.Position, res.Action)
	}
}

func TestChanceRepairLevy(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.board[1].OwnerID = a.ID
	s.board[1].Houses = 3
	s.board[3].OwnerID = a.ID
	s.board[3].Houses = 1
	a.Properties = []int{1, 3}

	s.mu.Lock()
	s.applyChanceLocked(a, &RollResult{}, chanceCard{kind: "repair", text: "repairs"})
	s.mu.Unlock()
	if a.Money != 1500-4*houseRepairLevy {
		t.Fatalf("money = %d", a.Money)
	}
}

func TestChanceRandomMovePaysGoBonus(t *testing.T) {
	s, a, _ := newTestGame(t)
	a.Position = 38 // any random 3..12 hop wraps past START

	s.mu.Lock()
	moved := s.applyChanceLocked(a, &RollResult{}, chanceCard{kind: "move_random", text: "run"})
	s.mu.Unlock()
	if !moved {
		t.Fatal("expected relocation")
	}
	if a.Position >= 38 || a.Position > 10 {
		t.Fatalf("pos = %d, want wrapped position in [1,10]", a.Position)
	}
	if a.Money != 1500+s.mapDef.GoBonus {
		t.Fatalf("money = %d, want GO bonus credited", a.Money)
	}
}

func TestRollMovesAndConsumesTurn(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.chanceDraw = func() chanceCard { return chanceCard{kind: "money", amount: 0, text: "nothing"} }

	res, err := s.Roll(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Dice[0] < 1 || res.Dice[0] > 6 || res.Dice[1] < 1 || res.Dice[1] > 6 {
		t.Fatalf("dice = %v", res.Dice)
	}
	if res.Skipped {
		t.Fatal("unexpected skip")
	}
	if !res.Doubles && !s.hasRolled {
		t.Fatal("non-doubles roll must consume the turn")
	}
	if res.Doubles && s.hasRolled && !a.Jailed {
		t.Fatal("doubles must leave the turn open for another roll")
	}
}

func TestJailThirdFailureForcesBail(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.chanceDraw = func() chanceCard { return chanceCard{kind: "money", amount: 0, text: "nothing"} }
	s.mu.Lock()
	s.sendToJailLocked(a)
	s.mu.Unlock()
	a.JailTurns = 2

	res, err := s.Roll(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	// Doubles escape free; a third failed attempt pays bail. Either way
	// the player leaves jail and moves.
	if a.Jailed || a.JailTurns != 0 {
		t.Fatalf("jailed=%v turns=%d", a.Jailed, a.JailTurns)
	}
	if a.Position == 10 {
		t.Fatalf("player did not move: %+v", res)
	}
}

func TestPayBail(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.mu.Lock()
	s.sendToJailLocked(a)
	s.mu.Unlock()

	if err := s.PayBail(a.ID); err != nil {
		t.Fatal(err)
	}
	if a.Jailed || a.Money != 1500-jailBail {
		t.Fatalf("jailed=%v money=%d", a.Jailed, a.Money)
	}
}

func TestThreeDoublesJails(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.mu.Lock()
	s.doublesCount = 2
	s.mu.Unlock()

	// Roll until doubles come up; the third consecutive pair jails.
	for i := 0; i < 500; i++ {
		s.mu.Lock()
		s.hasRolled = false
		s.doublesCount = 2
		a.Jailed = false
		a.Position = 0
		s.mu.Unlock()
		res, err := s.Roll(a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if res.Doubles {
			if !a.Jailed || res.Action != "go_to_jail" {
				t.Fatalf("jailed=%v action=%s", a.Jailed, res.Action)
			}
			return
		}
	}
	t.Skip("no doubles in 500 rolls")
}

func TestIsolatedTileNotBuyable(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.board[6].IsolationTurns = 2
	res := landOn(s, a, 6)
	if res.Action != "safe" {
		t.Fatalf("isolated landing action = %s", res.Action)
	}
	a.Position = 6
	if err := s.Buy(a.ID, 6); err == nil {
		t.Fatal("isolated tile must not be buyable")
	}
}
