package board

import (
	"monopolyx-service/internal/catalog"
)

const botReserveCash = 300

// runBotsLocked plays out bot turns until a human holds the floor. Bounded
// so a pathological state cannot spin forever.
func (s *Session) runBotsLocked() {
	for i := 0; i < 64; i++ {
		if s.status != StatusActive || s.auction != nil {
			return
		}
		p := s.currentPlayerLocked()
		if p == nil || !p.IsBot {
			return
		}
		s.botTurnLocked(p)
	}
}

func (s *Session) botTurnLocked(p *Player) {
	for rolls := 0; rolls < 4; rolls++ {
		res, err := s.rollLocked(p.ID)
		if err != nil {
			break
		}
		if res.Skipped {
			return // sanctions already advanced the turn
		}
		s.botPostRollLocked(p, res)
		if s.status != StatusActive || p.Bankrupt {
			return
		}
		if s.hasRolled || p.Jailed {
			break
		}
		// Doubles: roll again.
	}

	if s.status != StatusActive || s.auction != nil {
		return
	}
	if cur := s.currentPlayerLocked(); cur == nil || cur.ID != p.ID {
		return
	}
	s.nextTurnLocked()
}

func (s *Session) botPostRollLocked(p *Player, res *RollResult) {
	switch res.Action {
	case "can_buy":
		s.botConsiderBuyLocked(p)
	case "pay_rent":
		if p.Money < res.Amount {
			s.botLiquidateLocked(p, res.Amount)
		}
		if _, err := s.payRentLocked(p.ID, res.TileIndex); err != nil {
			// Still short after liquidation: the bot gives up.
			s.appendLogLocked("%s cannot cover the rent and concedes", p.Name)
			s.bankruptLocked(p, s.players[res.OwnerID])
			return
		}
	}

	s.botConsiderBuildLocked(p)

	if p.AbilityCooldown == 0 && s.mode != ModeClassic && s.rng.Float64() < 0.2 {
		s.botUseAbilityLocked(p)
	}
}

func (s *Session) botConsiderBuyLocked(p *Player) {
	tile := s.board[p.Position]
	if tile.OwnerID != "" || !tile.Purchasable() {
		return
	}

	// Completing a group is always worth it; otherwise keep a cash reserve.
	othersOwned, othersTotal := 0, 0
	for _, t := range s.board {
		if t.Group == tile.Group && t.Index != tile.Index {
			othersTotal++
			if t.OwnerID == p.ID {
				othersOwned++
			}
		}
	}
	completes := othersTotal > 0 && othersOwned == othersTotal

	if completes && p.Money >= tile.Price {
		s.appendLogLocked("%s sees a monopoly opportunity on %s", p.Name, tile.Group)
		_ = s.buyLocked(p.ID, tile.Index)
	} else if p.Money-tile.Price > botReserveCash {
		_ = s.buyLocked(p.ID, tile.Index)
	}
}

func (s *Session) botConsiderBuildLocked(p *Player) {
	groups := make(map[string]bool)
	for _, idx := range p.Properties {
		t := s.board[idx]
		if t.Monopoly && t.Street() {
			groups[t.Group] = true
		}
	}
	for g := range groups {
		minHouses := 5
		for _, t := range s.board {
			if t.Group == g && t.Houses < minHouses {
				minHouses = t.Houses
			}
		}
		for _, t := range s.board {
			if t.Group != g || t.Houses != minHouses || t.Houses >= 5 {
				continue
			}
			if p.Money > houseCost(t)+botReserveCash {
				if err := s.buildHouseLocked(p.ID, t.Index); err == nil {
					break
				}
			}
		}
	}
}

// botLiquidateLocked raises cash in order: mortgage loose tiles, sell houses
// evenly from group maximums, then mortgage monopoly tiles too.
func (s *Session) botLiquidateLocked(p *Player, needed int64) {
	for _, idx := range append([]int(nil), p.Properties...) {
		if p.Money >= needed {
			return
		}
		t := s.board[idx]
		if !t.Monopoly && !t.Mortgaged && t.Houses == 0 {
			_ = s.mortgageLocked(p.ID, idx)
		}
	}

	for guard := 0; guard < 100 && p.Money < needed; guard++ {
		sold := false
		for _, idx := range p.Properties {
			t := s.board[idx]
			if t.Houses == 0 {
				continue
			}
			if err := s.sellHouseLocked(p.ID, idx); err == nil {
				sold = true
				break
			}
		}
		if !sold {
			break
		}
	}

	for _, idx := range append([]int(nil), p.Properties...) {
		if p.Money >= needed {
			return
		}
		t := s.board[idx]
		if !t.Mortgaged && t.Houses == 0 {
			_ = s.mortgageLocked(p.ID, idx)
		}
	}
}

func (s *Session) botUseAbilityLocked(p *Player) {
	def, ok := s.catalog.Ability(p.Character)
	if s.mode == ModeOreshnikAll {
		def, ok = s.catalog.Ability("Putin")
	}
	if !ok {
		return
	}

	switch def.Kind {
	case catalog.AbilityDestroy:
		_, _ = s.useAbilityLocked(p.ID, def.Name, "", -1)
	case catalog.AbilityAid, catalog.AbilityBonus, catalog.AbilitySanction:
		_, _ = s.useAbilityLocked(p.ID, def.Name, "", -1)
	case catalog.AbilityBuyout:
		// Cheapest opponent tile the bot can take while keeping reserve.
		best := -1
		var bestPrice int64
		for _, t := range s.board {
			if t.OwnerID == "" || t.OwnerID == p.ID || t.Destroyed {
				continue
			}
			price := t.Price * 3 / 2
			if p.Money-price > botReserveCash && (best < 0 || price < bestPrice) {
				best = t.Index
				bestPrice = price
			}
		}
		if best >= 0 {
			_, _ = s.useAbilityLocked(p.ID, def.Name, "", best)
		}
	case catalog.AbilityIsolate:
		// Freeze the most developed opponent street.
		best := -1
		for _, t := range s.board {
			if t.OwnerID == "" || t.OwnerID == p.ID || !t.Purchasable() || t.IsolationTurns > 0 {
				continue
			}
			if best < 0 || t.Houses > s.board[best].Houses {
				best = t.Index
			}
		}
		if best >= 0 {
			_, _ = s.useAbilityLocked(p.ID, def.Name, "", best)
		}
	}
}

// botEvaluateTradeLocked accepts any offer whose face value is not a loss.
func (s *Session) botEvaluateTradeLocked(trade *TradeOffer) bool {
	receive := trade.OfferMoney
	for _, idx := range trade.OfferProperties {
		receive += s.board[idx].Price
	}
	give := trade.RequestMoney
	for _, idx := range trade.RequestProperties {
		give += s.board[idx].Price
	}
	return receive >= give
}
