package board

import (
	"encoding/json"

	appErr "monopolyx-service/pkg/errors"
)

// HandleAction dispatches a websocket action from a user to the engine.
func (s *Session) HandleAction(userID int64, action string, data json.RawMessage) error {
	playerID, ok := s.PlayerIDFor(userID)
	if !ok {
		return appErr.ErrUnauthorized
	}

	var payload struct {
		Tile       int        `json:"tile"`
		Ability    string     `json:"ability"`
		Target     string     `json:"target"`
		TargetTile *int       `json:"targetTile"`
		TradeID    string     `json:"tradeId"`
		Response   string     `json:"response"`
		Message    string     `json:"message"`
		Trade      TradeOffer `json:"trade"`
	}
	payload.Tile = -1
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return appErr.ErrIllegalAction
		}
	}

	switch action {
	case "roll":
		_, err := s.Roll(playerID)
		return err
	case "buy":
		tile := payload.Tile
		if tile < 0 {
			if p, ok := s.playerSnapshot(playerID); ok {
				tile = p.Position
			}
		}
		return s.Buy(playerID, tile)
	case "pay_rent":
		tile := payload.Tile
		if tile < 0 {
			if p, ok := s.playerSnapshot(playerID); ok {
				tile = p.Position
			}
		}
		_, err := s.PayRent(playerID, tile)
		return err
	case "pay_tax":
		_, err := s.PayTax(playerID)
		return err
	case "pay_bail":
		return s.PayBail(playerID)
	case "mortgage":
		return s.Mortgage(playerID, payload.Tile)
	case "unmortgage":
		return s.Unmortgage(playerID, payload.Tile)
	case "build_house":
		return s.BuildHouse(playerID, payload.Tile)
	case "sell_house":
		return s.SellHouse(playerID, payload.Tile)
	case "use_ability":
		target := -1
		if payload.TargetTile != nil {
			target = *payload.TargetTile
		}
		_, err := s.UseAbility(playerID, payload.Ability, payload.Target, target)
		return err
	case "create_trade":
		offer := payload.Trade
		offer.FromPlayerID = playerID
		_, err := s.CreateTrade(offer)
		return err
	case "respond_trade":
		return s.RespondTrade(playerID, payload.TradeID, payload.Response)
	case "decline_property":
		return s.DeclineProperty(playerID)
	case "bid":
		return s.Bid(playerID)
	case "pass_auction":
		return s.PassAuction(playerID)
	case "end_turn":
		return s.EndTurn(playerID)
	case "surrender":
		return s.Surrender(playerID)
	case "chat":
		return s.Chat(playerID, payload.Message)
	default:
		return appErr.ErrIllegalAction
	}
}

func (s *Session) playerSnapshot(playerID string) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return Player{}, false
	}
	return *p, true
}
