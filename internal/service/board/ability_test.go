package board

import (
	"errors"
	"testing"

	appErr "monopolyx-service/pkg/errors"
)

func TestAbilityCooldownAndModeGates(t *testing.T) {
	s, a, _ := newTestGame(t)

	// Wrong ability name for the character.
	if _, err := s.UseAbility(a.ID, "BUYOUT", "", 1); !errors.Is(err, appErr.ErrInvalidTarget) {
		t.Fatalf("wrong ability err = %v", err)
	}

	a.AbilityCooldown = 3
	if _, err := s.UseAbility(a.ID, "ORESHNIK", "", 1); !errors.Is(err, appErr.ErrIllegalAction) {
		t.Fatalf("cooldown err = %v", err)
	}
	a.AbilityCooldown = 0

	s.mode = ModeClassic
	if _, err := s.UseAbility(a.ID, "ORESHNIK", "", 1); !errors.Is(err, appErr.ErrIllegalAction) {
		t.Fatalf("classic mode err = %v", err)
	}
}

func TestOreshnikDestroysTile(t *testing.T) {
	s, a, b := newTestGame(t)
	s.board[6].OwnerID = b.ID
	b.Properties = append(b.Properties, 6)

	res, err := s.UseAbility(a.ID, "ORESHNIK", "", 6)
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != "ORESHNIK" || !s.board[6].Destroyed {
		t.Fatalf("res=%+v destroyed=%v", res, s.board[6].Destroyed)
	}
	if a.AbilityCooldown != 5 {
		t.Fatalf("cooldown = %d, want 5", a.AbilityCooldown)
	}
	if got := s.rentLocked(s.board[6], a); got != 0 {
		t.Fatalf("ruins rent = %d", got)
	}

	// START and jail are off limits.
	a.AbilityCooldown = 0
	if _, err := s.UseAbility(a.ID, "ORESHNIK", "", 0); !errors.Is(err, appErr.ErrInvalidTarget) {
		t.Fatalf("destroy START err = %v", err)
	}
	if _, err := s.UseAbility(a.ID, "ORESHNIK", "", 10); !errors.Is(err, appErr.ErrInvalidTarget) {
		t.Fatalf("destroy jail err = %v", err)
	}
}

func TestBuyoutTransfersAtPremium(t *testing.T) {
	s, a, b := newTestGame(t)
	if err := s.EndTurn(a.ID); err != nil {
		t.Fatal(err)
	}
	tile := s.board[6] // price 100
	tile.OwnerID = a.ID
	a.Properties = append(a.Properties, 6)
	b.Money = 150

	res, err := s.UseAbility(b.ID, "BUYOUT", "", 6)
	if err != nil {
		t.Fatal(err)
	}
	if res.Amount != 150 || tile.OwnerID != b.ID {
		t.Fatalf("amount=%d owner=%s", res.Amount, tile.OwnerID)
	}
	if b.Money != 0 || a.Money != 1650 {
		t.Fatalf("b=%d a=%d", b.Money, a.Money)
	}
	if !ownsProperty(b, 6) || ownsProperty(a, 6) {
		t.Fatal("property lists not updated")
	}
}

func TestBuyoutGreenlandDiscount(t *testing.T) {
	s, a, b := newTestGame(t)
	if err := s.EndTurn(a.ID); err != nil {
		t.Fatal(err)
	}
	greenland := s.board[37] // price 706
	greenland.OwnerID = a.ID
	a.Properties = append(a.Properties, 37)

	res, err := s.UseAbility(b.ID, "BUYOUT", "", 37)
	if err != nil {
		t.Fatal(err)
	}
	if res.Amount != 353 {
		t.Fatalf("discounted price = %d, want 353", res.Amount)
	}
}

func TestAidSkimsOpponents(t *testing.T) {
	s, a, b := newTestGame(t)
	a.Character = "Zelensky"
	b.Money = 990

	res, err := s.UseAbility(a.ID, "AID", "", -1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Amount != 99 || b.Money != 891 || a.Money != 1599 {
		t.Fatalf("amount=%d b=%d a=%d", res.Amount, b.Money, a.Money)
	}
}

func TestIsolationBlocksTile(t *testing.T) {
	s, a, b := newTestGame(t)
	a.Character = "Kim"
	s.board[6].OwnerID = b.ID

	if _, err := s.UseAbility(a.ID, "ISOLATION", "", 10); !errors.Is(err, appErr.ErrInvalidTarget) {
		t.Fatalf("isolate jail err = %v", err)
	}
	if _, err := s.UseAbility(a.ID, "ISOLATION", "", 6); err != nil {
		t.Fatal(err)
	}
	if s.board[6].IsolationTurns != 3 {
		t.Fatalf("isolation = %d", s.board[6].IsolationTurns)
	}
}

func TestSanctionsMarkTarget(t *testing.T) {
	s, a, b := newTestGame(t)
	a.Character = "Biden"

	if _, err := s.UseAbility(a.ID, "SANCTIONS", b.ID, -1); err != nil {
		t.Fatal(err)
	}
	if b.SkippedTurns != 1 {
		t.Fatalf("skippedTurns = %d", b.SkippedTurns)
	}
	// Self-targeting is invalid.
	a.AbilityCooldown = 0
	if _, err := s.UseAbility(a.ID, "SANCTIONS", a.ID, -1); !errors.Is(err, appErr.ErrInvalidTarget) {
		t.Fatalf("self sanction err = %v", err)
	}
}

func TestBeltRoadBonus(t *testing.T) {
	s, a, _ := newTestGame(t)
	a.Character = "Xi"

	res, err := s.UseAbility(a.ID, "BELT_ROAD", "", -1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Amount != 100 {
		t.Fatalf("empty-handed bonus = %d, want minimum 100", res.Amount)
	}

	a.AbilityCooldown = 0
	a.Properties = []int{1, 3, 6}
	res, err = s.UseAbility(a.ID, "BELT_ROAD", "", -1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Amount != 150 {
		t.Fatalf("bonus = %d, want 150", res.Amount)
	}
}

func TestOreshnikAllMode(t *testing.T) {
	s, a, _ := newTestGame(t)
	s.mode = ModeOreshnikAll
	a.Character = "Xi"
	s.board[6].OwnerID = "someone"

	if _, err := s.UseAbility(a.ID, "BELT_ROAD", "", -1); !errors.Is(err, appErr.ErrInvalidTarget) {
		t.Fatalf("own ability in oreshnik_all err = %v", err)
	}
	if _, err := s.UseAbility(a.ID, "ORESHNIK", "", 6); err != nil {
		t.Fatal(err)
	}
}
