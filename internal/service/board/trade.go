package board

import (
	appErr "monopolyx-service/pkg/errors"
)

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeRejected  TradeStatus = "rejected"
	TradeCancelled TradeStatus = "cancelled"
)

type TradeOffer struct {
	ID                string      `json:"id"`
	FromPlayerID      string      `json:"fromPlayerId"`
	ToPlayerID        string      `json:"toPlayerId"`
	OfferMoney        int64       `json:"offerMoney"`
	OfferProperties   []int       `json:"offerProperties"`
	RequestMoney      int64       `json:"requestMoney"`
	RequestProperties []int       `json:"requestProperties"`
	Status            TradeStatus `json:"status"`
}

// CreateTrade validates an offer against current holdings and registers it.
// A bot counterparty answers immediately.
func (s *Session) CreateTrade(offer TradeOffer) (*TradeOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return nil, appErr.ErrIllegalAction
	}
	from := s.players[offer.FromPlayerID]
	to := s.players[offer.ToPlayerID]
	if from == nil || to == nil || from.ID == to.ID || from.Bankrupt || to.Bankrupt {
		return nil, appErr.ErrInvalidTarget
	}
	if offer.OfferMoney < 0 || offer.RequestMoney < 0 {
		return nil, appErr.ErrInvalidTarget
	}
	for _, idx := range offer.OfferProperties {
		if !ownsProperty(from, idx) {
			return nil, appErr.ErrInvalidTarget
		}
	}
	for _, idx := range offer.RequestProperties {
		if !ownsProperty(to, idx) {
			return nil, appErr.ErrInvalidTarget
		}
	}
	if from.Money < offer.OfferMoney {
		return nil, appErr.ErrInsufficientFunds
	}

	trade := offer
	trade.ID = newID()
	trade.Status = TradePending
	s.trades[trade.ID] = &trade
	s.appendLogLocked("%s sent a trade offer to %s", from.Name, to.Name)

	if to.IsBot {
		if s.botEvaluateTradeLocked(&trade) {
			s.respondTradeLocked(&trade, to.ID, "accept")
		} else {
			s.respondTradeLocked(&trade, to.ID, "reject")
		}
	}

	s.broadcastStateLocked()
	return &trade, nil
}

// RespondTrade accepts, rejects or cancels a pending trade. Only the
// recipient may accept/reject, only the sender may cancel.
func (s *Session) RespondTrade(playerID, tradeID, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return appErr.ErrInvalidTarget
	}
	if err := s.respondTradeLocked(trade, playerID, response); err != nil {
		return err
	}
	s.broadcastStateLocked()
	return nil
}

func (s *Session) respondTradeLocked(trade *TradeOffer, playerID, response string) error {
	if trade.Status != TradePending {
		return appErr.ErrAlreadyResolved
	}
	from := s.players[trade.FromPlayerID]
	to := s.players[trade.ToPlayerID]
	if from == nil || to == nil || from.Bankrupt || to.Bankrupt {
		trade.Status = TradeCancelled
		return appErr.ErrInvalidTarget
	}

	switch response {
	case "accept":
		if playerID != trade.ToPlayerID {
			return appErr.ErrInvalidTarget
		}
		// Holdings may have changed since the offer was created.
		if from.Money < trade.OfferMoney || to.Money < trade.RequestMoney {
			return appErr.ErrInsufficientFunds
		}
		for _, idx := range trade.OfferProperties {
			if !ownsProperty(from, idx) {
				return appErr.ErrInvalidTarget
			}
		}
		for _, idx := range trade.RequestProperties {
			if !ownsProperty(to, idx) {
				return appErr.ErrInvalidTarget
			}
		}
		s.executeTradeLocked(trade, from, to)
		trade.Status = TradeAccepted
		s.appendLogLocked("Trade done: %s and %s exchanged assets", from.Name, to.Name)

	case "reject":
		if playerID != trade.ToPlayerID {
			return appErr.ErrInvalidTarget
		}
		trade.Status = TradeRejected
		s.appendLogLocked("%s rejected the trade from %s", to.Name, from.Name)

	case "cancel":
		if playerID != trade.FromPlayerID {
			return appErr.ErrInvalidTarget
		}
		trade.Status = TradeCancelled
		s.appendLogLocked("%s cancelled their trade offer", from.Name)

	default:
		return appErr.ErrIllegalAction
	}
	return nil
}

func (s *Session) executeTradeLocked(trade *TradeOffer, from, to *Player) {
	from.Money -= trade.OfferMoney
	to.Money += trade.OfferMoney
	to.Money -= trade.RequestMoney
	from.Money += trade.RequestMoney

	groups := map[string]bool{}
	for _, idx := range trade.OfferProperties {
		removeProperty(from, idx)
		to.Properties = append(to.Properties, idx)
		s.board[idx].OwnerID = to.ID
		groups[s.board[idx].Group] = true
	}
	for _, idx := range trade.RequestProperties {
		removeProperty(to, idx)
		from.Properties = append(from.Properties, idx)
		s.board[idx].OwnerID = from.ID
		groups[s.board[idx].Group] = true
	}
	for g := range groups {
		s.refreshMonopolyLocked(g)
	}
}

func ownsProperty(p *Player, tileIndex int) bool {
	for _, idx := range p.Properties {
		if idx == tileIndex {
			return true
		}
	}
	return false
}
