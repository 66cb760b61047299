package board

import (
	"monopolyx-service/internal/catalog"
	appErr "monopolyx-service/pkg/errors"
)

func houseCost(t *catalog.Tile) int64 { return t.Price/2 + 50 }

// Buy purchases the tile the player is standing on.
func (s *Session) Buy(playerID string, tileIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.buyLocked(playerID, tileIndex); err != nil {
		return err
	}
	s.broadcastStateLocked()
	return nil
}

func (s *Session) buyLocked(playerID string, tileIndex int) error {
	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return err
	}
	if tileIndex < 0 || tileIndex >= len(s.board) {
		return appErr.ErrInvalidTarget
	}
	if p.Position != tileIndex {
		return appErr.ErrInvalidTarget
	}
	tile := s.board[tileIndex]
	switch {
	case !tile.Purchasable():
		return appErr.ErrInvalidTarget
	case tile.OwnerID != "":
		return appErr.ErrAlreadyResolved
	case tile.Destroyed, tile.IsolationTurns > 0:
		return appErr.ErrIllegalAction
	case p.Money < tile.Price:
		return appErr.ErrInsufficientFunds
	}

	p.Money -= tile.Price
	tile.OwnerID = p.ID
	p.Properties = append(p.Properties, tileIndex)
	s.appendLogLocked("%s bought %s for $%d", p.Name, tile.Name, tile.Price)

	s.refreshMonopolyLocked(tile.Group)
	if tile.Monopoly {
		s.appendLogLocked("%s completed the %s monopoly!", p.Name, tile.Group)
	}
	s.resetDeadlineLocked()
	return nil
}

// PayRent settles the rent owed on a tile owned by another player. A
// shortfall leaves the game untouched so the payer can liquidate first.
func (s *Session) PayRent(playerID string, tileIndex int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, err := s.payRentLocked(playerID, tileIndex)
	if err != nil {
		return 0, err
	}
	s.broadcastStateLocked()
	return amount, nil
}

func (s *Session) payRentLocked(playerID string, tileIndex int) (int64, error) {
	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return 0, err
	}
	if tileIndex < 0 || tileIndex >= len(s.board) {
		return 0, appErr.ErrInvalidTarget
	}
	tile := s.board[tileIndex]
	if tile.OwnerID == "" || tile.OwnerID == playerID {
		return 0, appErr.ErrInvalidTarget
	}
	owner := s.players[tile.OwnerID]
	if owner == nil {
		return 0, appErr.ErrInvalidTarget
	}

	rent := s.rentLocked(tile, p)
	if p.Money < rent {
		return 0, appErr.ErrInsufficientFunds
	}

	p.Money -= rent
	owner.Money += rent
	s.appendLogLocked("%s paid $%d rent to %s", p.Name, rent, owner.Name)
	s.resetDeadlineLocked()
	return rent, nil
}

// PayTax settles the tax the landing accrued into the pot. The debt is
// collected once: paying again, or after the turn-end collection, fails.
func (s *Session) PayTax(playerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return 0, err
	}
	if s.taxDue == 0 {
		return 0, appErr.ErrAlreadyResolved
	}
	amount := s.taxDue
	s.taxDue = 0
	p.Money -= amount
	s.pot += amount
	s.appendLogLocked("%s paid $%d tax into the pot", p.Name, amount)
	s.broadcastStateLocked()
	return amount, nil
}

// PayBail buys the jailed player out before rolling.
func (s *Session) PayBail(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return err
	}
	if !p.Jailed {
		return appErr.ErrIllegalAction
	}
	if s.hasRolled {
		return appErr.ErrAlreadyResolved
	}
	if p.Money < jailBail {
		return appErr.ErrInsufficientFunds
	}
	p.Money -= jailBail
	p.Jailed = false
	p.JailTurns = 0
	s.appendLogLocked("%s paid $%d bail and is free", p.Name, jailBail)
	s.broadcastStateLocked()
	return nil
}

// Mortgage pawns a tile for half its price. Houses must be sold first, and
// pawning any tile breaks the group's monopoly.
func (s *Session) Mortgage(playerID string, tileIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mortgageLocked(playerID, tileIndex); err != nil {
		return err
	}
	s.broadcastStateLocked()
	return nil
}

func (s *Session) mortgageLocked(playerID string, tileIndex int) error {
	p, ok := s.players[playerID]
	if !ok || p.Bankrupt {
		return appErr.ErrInvalidTarget
	}
	if tileIndex < 0 || tileIndex >= len(s.board) {
		return appErr.ErrInvalidTarget
	}
	tile := s.board[tileIndex]
	if tile.OwnerID != playerID {
		return appErr.ErrInvalidTarget
	}
	if tile.Mortgaged {
		return appErr.ErrAlreadyResolved
	}
	if tile.Houses > 0 {
		return appErr.ErrIllegalAction
	}

	value := tile.Price / 2
	tile.Mortgaged = true
	p.Money += value
	s.refreshMonopolyLocked(tile.Group)
	s.appendLogLocked("%s mortgaged %s for $%d", p.Name, tile.Name, value)
	return nil
}

// Unmortgage redeems a pawned tile at half price plus a 10 percent surcharge.
func (s *Session) Unmortgage(playerID string, tileIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok || p.Bankrupt {
		return appErr.ErrInvalidTarget
	}
	if tileIndex < 0 || tileIndex >= len(s.board) {
		return appErr.ErrInvalidTarget
	}
	tile := s.board[tileIndex]
	if tile.OwnerID != playerID {
		return appErr.ErrInvalidTarget
	}
	if !tile.Mortgaged {
		return appErr.ErrAlreadyResolved
	}

	cost := tile.Price / 2 * 11 / 10
	if p.Money < cost {
		return appErr.ErrInsufficientFunds
	}
	p.Money -= cost
	tile.Mortgaged = false
	s.refreshMonopolyLocked(tile.Group)
	s.appendLogLocked("%s unmortgaged %s for $%d", p.Name, tile.Name, cost)
	s.broadcastStateLocked()
	return nil
}

// BuildHouse adds one house (fifth is the hotel) to a monopoly street,
// keeping the group evenly developed.
func (s *Session) BuildHouse(playerID string, tileIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.buildHouseLocked(playerID, tileIndex); err != nil {
		return err
	}
	s.broadcastStateLocked()
	return nil
}

func (s *Session) buildHouseLocked(playerID string, tileIndex int) error {
	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return err
	}
	if tileIndex < 0 || tileIndex >= len(s.board) {
		return appErr.ErrInvalidTarget
	}
	tile := s.board[tileIndex]
	switch {
	case tile.OwnerID != playerID:
		return appErr.ErrInvalidTarget
	case !tile.Street():
		return appErr.ErrInvalidTarget
	case tile.Destroyed, tile.Mortgaged:
		return appErr.ErrIllegalAction
	case !tile.Monopoly:
		return appErr.ErrIllegalAction
	case tile.Houses >= 5:
		return appErr.ErrIllegalAction
	}

	// Even building: only the least developed tiles of the group may grow.
	minHouses := 5
	for _, t := range s.board {
		if t.Group == tile.Group && t.Houses < minHouses {
			minHouses = t.Houses
		}
	}
	if tile.Houses > minHouses {
		return appErr.ErrIllegalAction
	}

	cost := houseCost(tile)
	if p.Money < cost {
		return appErr.ErrInsufficientFunds
	}
	p.Money -= cost
	tile.Houses++

	what := "house"
	if tile.Houses == 5 {
		what = "hotel"
	}
	s.appendLogLocked("%s built a %s on %s for $%d", p.Name, what, tile.Name, cost)
	return nil
}

// SellHouse removes one house from a group-maximum tile at half build cost.
func (s *Session) SellHouse(playerID string, tileIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sellHouseLocked(playerID, tileIndex); err != nil {
		return err
	}
	s.broadcastStateLocked()
	return nil
}

func (s *Session) sellHouseLocked(playerID string, tileIndex int) error {
	p, ok := s.players[playerID]
	if !ok || p.Bankrupt {
		return appErr.ErrInvalidTarget
	}
	if tileIndex < 0 || tileIndex >= len(s.board) {
		return appErr.ErrInvalidTarget
	}
	tile := s.board[tileIndex]
	if tile.OwnerID != playerID || tile.Houses == 0 {
		return appErr.ErrInvalidTarget
	}

	maxHouses := 0
	for _, t := range s.board {
		if t.Group == tile.Group && t.Houses > maxHouses {
			maxHouses = t.Houses
		}
	}
	if tile.Houses < maxHouses {
		return appErr.ErrIllegalAction
	}

	refund := houseCost(tile) / 2
	tile.Houses--
	p.Money += refund
	s.appendLogLocked("%s sold a house on %s for $%d", p.Name, tile.Name, refund)
	return nil
}
