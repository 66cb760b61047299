package board

import (
	appErr "monopolyx-service/pkg/errors"
)

const auctionIncrement = 10

// Auction runs when the player who landed on an unowned tile declines to
// buy it. Remaining solvent players bid in turn order in fixed increments
// until one bidder stands.
type Auction struct {
	TileIndex    int
	DeclinerID   string
	HighBid      int64
	HighBidderID string

	order   []string
	in      map[string]bool
	turnPos int
}

type AuctionState struct {
	TileIndex    int      `json:"tileIndex"`
	TileName     string   `json:"tileName"`
	HighBid      int64    `json:"highBid"`
	HighBidderID string   `json:"highBidderId,omitempty"`
	ActorID      string   `json:"actorId,omitempty"`
	NextBid      int64    `json:"nextBid"`
	Remaining    []string `json:"remaining"`
}

func (a *Auction) export() *AuctionState {
	remaining := make([]string, 0, len(a.order))
	for _, id := range a.order {
		if a.in[id] {
			remaining = append(remaining, id)
		}
	}
	st := &AuctionState{
		TileIndex:    a.TileIndex,
		HighBid:      a.HighBid,
		HighBidderID: a.HighBidderID,
		NextBid:      a.HighBid + auctionIncrement,
		Remaining:    remaining,
	}
	if actor := a.actor(); actor != "" {
		st.ActorID = actor
	}
	return st
}

func (a *Auction) actor() string {
	if len(a.order) == 0 {
		return ""
	}
	for i := 0; i < len(a.order); i++ {
		id := a.order[(a.turnPos+i)%len(a.order)]
		if a.in[id] {
			a.turnPos = (a.turnPos + i) % len(a.order)
			return id
		}
	}
	return ""
}

func (a *Auction) advance() {
	a.turnPos = (a.turnPos + 1) % len(a.order)
}

func (a *Auction) remaining() int {
	n := 0
	for _, ok := range a.in {
		if ok {
			n++
		}
	}
	return n
}

// DeclineProperty refuses to buy the tile under the current player and
// opens an auction for everyone else.
func (s *Session) DeclineProperty(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return err
	}
	if s.auction != nil {
		return appErr.ErrIllegalAction
	}
	tile := s.board[p.Position]
	if !tile.Purchasable() || tile.OwnerID != "" || tile.Destroyed || tile.IsolationTurns > 0 {
		return appErr.ErrInvalidTarget
	}

	a := &Auction{
		TileIndex:  p.Position,
		DeclinerID: playerID,
		in:         make(map[string]bool),
	}
	for _, id := range s.order {
		other := s.players[id]
		if id == playerID || other == nil || other.Bankrupt {
			continue
		}
		a.order = append(a.order, id)
		a.in[id] = true
	}
	if len(a.order) == 0 {
		s.appendLogLocked("%s declined %s, nobody left to bid", p.Name, tile.Name)
		s.broadcastStateLocked()
		return nil
	}

	s.auction = a
	s.appendLogLocked("%s declined %s, it goes to auction", p.Name, tile.Name)
	s.runAuctionBotsLocked()
	s.broadcastStateLocked()
	return nil
}

// Bid raises the auction by the fixed increment.
func (s *Session) Bid(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bidLocked(playerID); err != nil {
		return err
	}
	s.runAuctionBotsLocked()
	s.broadcastStateLocked()
	return nil
}

func (s *Session) bidLocked(playerID string) error {
	a := s.auction
	if a == nil {
		return appErr.ErrIllegalAction
	}
	if a.actor() != playerID || !a.in[playerID] {
		return appErr.ErrNotYourTurn
	}
	p := s.players[playerID]
	bid := a.HighBid + auctionIncrement
	if p.Money < bid {
		return appErr.ErrInsufficientFunds
	}

	a.HighBid = bid
	a.HighBidderID = playerID
	s.appendLogLocked("%s bids $%d for %s", p.Name, bid, s.board[a.TileIndex].Name)
	a.advance()
	s.settleAuctionIfDoneLocked()
	return nil
}

// PassAuction drops the actor out of the running.
func (s *Session) PassAuction(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.passAuctionLocked(playerID); err != nil {
		return err
	}
	s.runAuctionBotsLocked()
	s.broadcastStateLocked()
	return nil
}

func (s *Session) passAuctionLocked(playerID string) error {
	a := s.auction
	if a == nil {
		return appErr.ErrIllegalAction
	}
	if a.actor() != playerID || !a.in[playerID] {
		return appErr.ErrNotYourTurn
	}

	a.in[playerID] = false
	s.appendLogLocked("%s passes on the auction", s.players[playerID].Name)
	a.advance()
	s.settleAuctionIfDoneLocked()
	return nil
}

func (s *Session) settleAuctionIfDoneLocked() {
	a := s.auction
	if a == nil {
		return
	}
	left := a.remaining()
	if left == 0 {
		s.appendLogLocked("Auction for %s closed with no bids", s.board[a.TileIndex].Name)
		s.auction = nil
		return
	}
	if left > 1 {
		return
	}
	// One bidder standing; they win once they hold the high bid.
	if a.HighBidderID == "" || !a.in[a.HighBidderID] {
		return
	}

	winner := s.players[a.HighBidderID]
	tile := s.board[a.TileIndex]
	winner.Money -= a.HighBid
	tile.OwnerID = winner.ID
	winner.Properties = append(winner.Properties, a.TileIndex)
	s.refreshMonopolyLocked(tile.Group)
	s.appendLogLocked("%s won the auction for %s at $%d", winner.Name, tile.Name, a.HighBid)
	s.auction = nil
}

// runAuctionBotsLocked lets bot players act until a human holds the floor
// or the auction settles.
func (s *Session) runAuctionBotsLocked() {
	for i := 0; i < 200 && s.auction != nil; i++ {
		a := s.auction
		actorID := a.actor()
		if actorID == "" {
			return
		}
		p := s.players[actorID]
		if p == nil || !p.IsBot {
			return
		}
		bid := a.HighBid + auctionIncrement
		tile := s.board[a.TileIndex]
		if bid <= tile.Price && p.Money >= bid && a.HighBidderID != actorID {
			_ = s.bidLocked(actorID)
		} else {
			_ = s.passAuctionLocked(actorID)
		}
	}
}
