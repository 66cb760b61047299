package board

import (
	"monopolyx-service/internal/catalog"
	appErr "monopolyx-service/pkg/errors"
)

// AbilityResult reports what an ability did.
type AbilityResult struct {
	Type       string `json:"type"`
	TargetTile int    `json:"targetTile,omitempty"`
	TargetName string `json:"targetName,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
}

// UseAbility fires the acting player's character ability. target is a tile
// index for ORESHNIK/BUYOUT/ISOLATION and a player id for SANCTIONS.
func (s *Session) UseAbility(playerID, abilityName, target string, targetTile int) (*AbilityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.useAbilityLocked(playerID, abilityName, target, targetTile)
	if err != nil {
		return nil, err
	}
	s.runBotsLocked()
	s.broadcastStateLocked()
	return res, nil
}

func (s *Session) useAbilityLocked(playerID, abilityName, target string, targetTile int) (*AbilityResult, error) {
	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return nil, err
	}
	if s.mode == ModeClassic {
		return nil, appErr.ErrIllegalAction
	}
	if p.AbilityCooldown > 0 {
		return nil, appErr.ErrIllegalAction
	}

	var def catalog.AbilityDef
	if s.mode == ModeOreshnikAll {
		def, _ = s.catalog.Ability("Putin")
	} else {
		var ok bool
		def, ok = s.catalog.Ability(p.Character)
		if !ok {
			return nil, appErr.ErrIllegalAction
		}
	}
	if def.Name != abilityName {
		return nil, appErr.ErrInvalidTarget
	}

	var res *AbilityResult
	switch def.Kind {
	case catalog.AbilityDestroy:
		res, err = s.abilityDestroyLocked(p, targetTile)
	case catalog.AbilityBuyout:
		res, err = s.abilityBuyoutLocked(p, targetTile)
	case catalog.AbilityAid:
		res, err = s.abilityAidLocked(p)
	case catalog.AbilityIsolate:
		res, err = s.abilityIsolateLocked(p, targetTile)
	case catalog.AbilitySanction:
		res, err = s.abilitySanctionLocked(p, target)
	case catalog.AbilityBonus:
		res, err = s.abilityBonusLocked(p)
	default:
		return nil, appErr.ErrIllegalAction
	}
	if err != nil {
		return nil, err
	}

	p.AbilityCooldown = def.Cooldown
	s.resetDeadlineLocked()
	return res, nil
}

func (s *Session) abilityDestroyLocked(p *Player, targetTile int) (*AbilityResult, error) {
	if targetTile < 0 {
		// Pick a random opponent tile.
		var candidates []int
		for _, t := range s.board {
			if t.OwnerID != "" && t.OwnerID != p.ID && !t.Destroyed {
				candidates = append(candidates, t.Index)
			}
		}
		if len(candidates) == 0 {
			return nil, appErr.ErrInvalidTarget
		}
		targetTile = candidates[s.rng.Intn(len(candidates))]
	}
	if targetTile >= len(s.board) {
		return nil, appErr.ErrInvalidTarget
	}
	tile := s.board[targetTile]
	if targetTile == 0 || targetTile == s.mapDef.JailIndex {
		return nil, appErr.ErrInvalidTarget
	}
	if tile.Destroyed {
		return nil, appErr.ErrAlreadyResolved
	}

	tile.Destroyed = true
	s.appendLogLocked("%s launched ORESHNIK at %s, the city is in ruins", p.Name, tile.Name)
	return &AbilityResult{Type: "ORESHNIK", TargetTile: targetTile, TargetName: tile.Name}, nil
}

func (s *Session) abilityBuyoutLocked(p *Player, targetTile int) (*AbilityResult, error) {
	if targetTile < 0 || targetTile >= len(s.board) {
		return nil, appErr.ErrInvalidTarget
	}
	tile := s.board[targetTile]
	if tile.OwnerID == "" || tile.OwnerID == p.ID || tile.Destroyed {
		return nil, appErr.ErrInvalidTarget
	}

	price := tile.Price * 3 / 2
	if tile.Name == "Greenland" {
		price = tile.Price / 2
		s.appendLogLocked("Special Greenland discount applied")
	}
	if p.Money < price {
		return nil, appErr.ErrInsufficientFunds
	}

	owner := s.players[tile.OwnerID]
	p.Money -= price
	owner.Money += price
	removeProperty(owner, targetTile)
	p.Properties = append(p.Properties, targetTile)
	tile.OwnerID = p.ID
	s.refreshMonopolyLocked(tile.Group)

	s.appendLogLocked("%s executed a hostile takeover of %s from %s for $%d",
		p.Name, tile.Name, owner.Name, price)
	return &AbilityResult{Type: "BUYOUT", TargetTile: targetTile, TargetName: tile.Name, Amount: price}, nil
}

func (s *Session) abilityAidLocked(p *Player) (*AbilityResult, error) {
	var total int64
	for _, other := range s.players {
		if other.ID == p.ID || other.Bankrupt {
			continue
		}
		aid := other.Money / 10
		other.Money -= aid
		total += aid
	}
	p.Money += total
	s.appendLogLocked("%s collected a foreign aid package of $%d", p.Name, total)
	return &AbilityResult{Type: "AID", Amount: total}, nil
}

func (s *Session) abilityIsolateLocked(p *Player, targetTile int) (*AbilityResult, error) {
	if targetTile < 0 || targetTile >= len(s.board) {
		return nil, appErr.ErrInvalidTarget
	}
	tile := s.board[targetTile]
	if !tile.Purchasable() {
		return nil, appErr.ErrInvalidTarget
	}

	tile.IsolationTurns = 3
	s.appendLogLocked("%s imposed isolation on %s for 3 turns", p.Name, tile.Name)
	return &AbilityResult{Type: "ISOLATION", TargetTile: targetTile, TargetName: tile.Name}, nil
}

func (s *Session) abilitySanctionLocked(p *Player, targetPlayer string) (*AbilityResult, error) {
	var target *Player
	if targetPlayer == "" {
		opponents := make([]*Player, 0, len(s.players))
		for _, other := range s.players {
			if other.ID != p.ID && !other.Bankrupt {
				opponents = append(opponents, other)
			}
		}
		if len(opponents) == 0 {
			return nil, appErr.ErrInvalidTarget
		}
		target = opponents[s.rng.Intn(len(opponents))]
	} else {
		target = s.players[targetPlayer]
		if target == nil || target.Bankrupt || target.ID == p.ID {
			return nil, appErr.ErrInvalidTarget
		}
	}

	target.SkippedTurns = 1
	s.appendLogLocked("%s imposed sanctions on %s, they skip their next turn", p.Name, target.Name)
	return &AbilityResult{Type: "SANCTIONS", TargetName: target.Name}, nil
}

func (s *Session) abilityBonusLocked(p *Player) (*AbilityResult, error) {
	bonus := int64(len(p.Properties)) * 50
	if bonus == 0 {
		bonus = 100
	}
	p.Money += bonus
	s.appendLogLocked("%s activated the Belt and Road initiative, collected $%d", p.Name, bonus)
	return &AbilityResult{Type: "BELT_ROAD", Amount: bonus}, nil
}

func removeProperty(p *Player, tileIndex int) {
	for i, idx := range p.Properties {
		if idx == tileIndex {
			p.Properties = append(p.Properties[:i], p.Properties[i+1:]...)
			return
		}
	}
}
