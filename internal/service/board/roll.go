package board

import (
	"monopolyx-service/internal/catalog"
	appErr "monopolyx-service/pkg/errors"
)

// RollResult reports what a dice roll did, for the caller and for the
// broadcast payload.
type RollResult struct {
	PlayerID  string `json:"playerId"`
	Dice      [2]int `json:"dice"`
	Doubles   bool   `json:"doubles"`
	PassedGo  bool   `json:"passedGo"`
	Skipped   bool   `json:"skipped"`
	LandedOn  string `json:"landedOn,omitempty"`
	TileIndex int    `json:"tileIndex"`

	// Action describes what landing requires or produced:
	// can_buy, pay_rent, go_to_jail, still_jailed, collect_pot, chance,
	// destroyed, safe, skipped_turn.
	Action  string `json:"action,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	OwnerID string `json:"ownerId,omitempty"`
	Chance  string `json:"chanceCard,omitempty"`
}

// Roll throws the dice for the current player and resolves the landing.
func (s *Session) Roll(playerID string) (*RollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.rollLocked(playerID)
	if err != nil {
		return nil, err
	}
	s.runBotsLocked()
	s.broadcastStateLocked()
	return res, nil
}

func (s *Session) rollLocked(playerID string) (*RollResult, error) {
	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return nil, err
	}
	if s.hasRolled {
		return nil, appErr.ErrAlreadyResolved
	}
	if s.auction != nil {
		return nil, appErr.ErrIllegalAction
	}

	// Sanctioned players lose the whole turn.
	if p.SkippedTurns > 0 {
		p.SkippedTurns--
		s.appendLogLocked("%s is under sanctions and skips this turn", p.Name)
		s.nextTurnLocked()
		return &RollResult{PlayerID: p.ID, Skipped: true, Action: "skipped_turn"}, nil
	}

	d1 := s.rng.Intn(6) + 1
	d2 := s.rng.Intn(6) + 1
	s.dice = [2]int{d1, d2}
	doubles := d1 == d2

	res := &RollResult{PlayerID: p.ID, Dice: s.dice, Doubles: doubles}
	s.resetDeadlineLocked()

	if p.Jailed {
		if doubles {
			p.Jailed = false
			p.JailTurns = 0
			s.appendLogLocked("%s rolled doubles and escaped jail", p.Name)
		} else {
			p.JailTurns++
			if p.JailTurns >= 3 {
				p.Jailed = false
				p.JailTurns = 0
				p.Money -= jailBail
				s.appendLogLocked("%s paid $%d bail to leave jail", p.Name, jailBail)
			} else {
				s.appendLogLocked("%s is still in jail (%d/3)", p.Name, p.JailTurns)
				s.hasRolled = true
				res.Action = "still_jailed"
				return res, nil
			}
		}
	}

	if doubles {
		s.doublesCount++
		if s.doublesCount >= 3 {
			s.sendToJailLocked(p)
			s.appendLogLocked("%s rolled three doubles in a row and went to jail", p.Name)
			s.hasRolled = true
			res.Action = "go_to_jail"
			return res, nil
		}
	} else {
		s.doublesCount = 0
	}

	size := len(s.board)
	oldPos := p.Position
	p.Position = (p.Position + d1 + d2) % size
	if p.Position < oldPos || (p.Position == 0 && oldPos != 0) {
		p.Money += s.mapDef.GoBonus
		res.PassedGo = true
		s.appendLogLocked("%s passed START and collected $%d", p.Name, s.mapDef.GoBonus)
	}

	tile := s.board[p.Position]
	res.LandedOn = tile.Name
	res.TileIndex = p.Position
	s.appendLogLocked("%s rolled %d+%d and moved to %s", p.Name, d1, d2, tile.Name)

	s.resolveLandingLocked(p, tile, res, 0)

	// Doubles grant one extra roll unless the landing jailed the player.
	if doubles && !p.Jailed {
		s.appendLogLocked("%s rolled doubles and goes again", p.Name)
		s.hasRolled = false
	} else {
		s.hasRolled = true
	}
	return res, nil
}

// resolveLandingLocked applies tile effects. Chance relocation triggers one
// more pass; depth bounds the loop at two resolutions total.
func (s *Session) resolveLandingLocked(p *Player, tile *catalog.Tile, res *RollResult, depth int) {
	switch tile.Group {
	case catalog.GroupGoToJail:
		s.sendToJailLocked(p)
		res.Action = "go_to_jail"
		s.appendLogLocked("%s was sent straight to jail", p.Name)

	case catalog.GroupFreeParking:
		if s.pot > 0 {
			p.Money += s.pot
			res.Action = "collect_pot"
			res.Amount = s.pot
			s.appendLogLocked("%s collected $%d from free parking", p.Name, s.pot)
			s.pot = 0
		} else {
			res.Action = "safe"
		}

	case catalog.GroupTax, catalog.GroupChance:
		if tile.Group == catalog.GroupTax {
			// The debt accrues; pay_tax settles it, or the turn end collects.
			tax := tile.Rent[0]
			s.taxDue += tax
			res.Amount = -tax
			s.appendLogLocked("%s owes $%d tax", p.Name, tax)
		}
		moved := s.drawChanceLocked(p, res, depth)
		if moved {
			next := s.board[p.Position]
			res.LandedOn = next.Name
			res.TileIndex = p.Position
			s.resolveLandingLocked(p, next, res, depth+1)
			return
		}
		if res.Action == "" || res.Action == "safe" {
			res.Action = "chance"
		}

	case catalog.GroupJail:
		res.Action = "safe"
		s.appendLogLocked("%s is just visiting jail", p.Name)

	case catalog.GroupSpecial:
		if tile.Index == 0 {
			p.Money += landingBonus
			s.appendLogLocked("%s landed on START and received a bonus $%d", p.Name, landingBonus)
		}
		res.Action = "safe"

	default:
		s.resolvePropertyLandingLocked(p, tile, res)
	}
}

func (s *Session) resolvePropertyLandingLocked(p *Player, tile *catalog.Tile, res *RollResult) {
	switch {
	case tile.Destroyed:
		res.Action = "destroyed"
		s.appendLogLocked("%s lies in ruins, no rent here", tile.Name)
	case tile.OwnerID != "" && tile.OwnerID != p.ID && !tile.Mortgaged:
		rent := s.rentLocked(tile, p)
		res.Action = "pay_rent"
		res.Amount = rent
		res.OwnerID = tile.OwnerID
	case tile.OwnerID == "" && tile.IsolationTurns == 0:
		res.Action = "can_buy"
		res.Amount = tile.Price
	default:
		res.Action = "safe"
	}
}

// rentLocked computes the rent a payer owes on a tile. Zero while the tile
// is destroyed, mortgaged or isolated.
func (s *Session) rentLocked(tile *catalog.Tile, payer *Player) int64 {
	if tile.Destroyed || tile.Mortgaged || tile.IsolationTurns > 0 {
		return 0
	}
	owner := s.players[tile.OwnerID]
	if owner == nil || owner.Bankrupt {
		return 0
	}

	switch tile.Group {
	case catalog.GroupUtility:
		owned := 0
		for _, t := range s.board {
			if t.Group == catalog.GroupUtility && t.OwnerID == tile.OwnerID && !t.Mortgaged {
				owned++
			}
		}
		pct := int64(10)
		if owned >= 2 {
			pct = 20
		}
		rent := payer.Money * pct / 100
		if rent < 10 {
			rent = 10
		}
		return rent

	case catalog.GroupStation:
		owned := 0
		for _, t := range s.board {
			if t.Group == catalog.GroupStation && t.OwnerID == tile.OwnerID {
				owned++
			}
		}
		idx := owned - 1
		if idx >= len(tile.Rent) {
			idx = len(tile.Rent) - 1
		}
		return tile.Rent[idx]

	default:
		idx := tile.Houses
		if idx >= len(tile.Rent) {
			idx = len(tile.Rent) - 1
		}
		base := tile.Rent[idx]
		if tile.Monopoly && tile.Houses == 0 {
			return base * 2
		}
		return base
	}
}

type chanceCard struct {
	kind   string // money, move_random, move_to_start, move_to_jail, repair
	amount int64
	text   string
}

var chanceDeck = []chanceCard{
	{kind: "money", amount: 200, text: "Received a kickback of $200"},
	{kind: "money", amount: 400, text: "Dodged taxes for $400"},
	{kind: "money", amount: -200, text: "Hit a pedestrian, paid the victim $200"},
	{kind: "money", amount: -300, text: "Lost $300 at the casino"},
	{kind: "money", amount: 500, text: "Found a secret offshore account, $500"},
	{kind: "move_random", text: "On the run! Moving forward"},
	{kind: "move_to_start", text: "Urgent call to HQ, back to START"},
	{kind: "move_to_jail", text: "The investigative committee wants a word"},
	{kind: "repair", text: "Street repairs: $25 per house owned"},
}

func (c chanceCard) relocates() bool {
	return c.kind == "move_random" || c.kind == "move_to_start"
}

// drawChanceLocked applies one chance card and reports whether it moved the
// player. Relocation cards are skipped once the landing loop has already
// relocated (depth > 0).
func (s *Session) drawChanceLocked(p *Player, res *RollResult, depth int) bool {
	card := s.nextChanceCardLocked()
	for depth > 0 && card.relocates() {
		card = s.nextChanceCardLocked()
	}
	return s.applyChanceLocked(p, res, card)
}

func (s *Session) nextChanceCardLocked() chanceCard {
	if s.chanceDraw != nil {
		return s.chanceDraw()
	}
	return chanceDeck[s.rng.Intn(len(chanceDeck))]
}

func (s *Session) applyChanceLocked(p *Player, res *RollResult, card chanceCard) bool {
	s.appendLogLocked("Breaking news, %s: %s", p.Name, card.text)
	res.Chance = card.text

	switch card.kind {
	case "money":
		p.Money += card.amount
		return false
	case "move_random":
		steps := s.rng.Intn(10) + 3
		oldPos := p.Position
		p.Position = (p.Position + steps) % len(s.board)
		if p.Position < oldPos {
			p.Money += s.mapDef.GoBonus
		}
		return true
	case "move_to_start":
		p.Position = 0
		return true
	case "move_to_jail":
		s.sendToJailLocked(p)
		res.Action = "go_to_jail"
		return false
	case "repair":
		var levy int64
		for _, idx := range p.Properties {
			levy += int64(s.board[idx].Houses) * houseRepairLevy
		}
		p.Money -= levy
		return false
	}
	return false
}
