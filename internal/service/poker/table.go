package poker

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/logger"

	"go.uber.org/zap"
)

type Street string

const (
	StreetWaiting  Street = "waiting"
	StreetPreflop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
)

const (
	maxLogItems       = 120
	maxTimeoutStrikes = 3
	restartDelay      = 5 * time.Second
)

// Seat is one chair at the table. Bets split into the current street wager
// and the cumulative hand wager; side pots layer on the latter.
type Seat struct {
	Index     int
	UserID    int64
	Name      string
	IsBot     bool
	Chips     int64
	Hole      []Card
	StreetBet int64
	HandBet   int64
	Folded    bool
	AllIn     bool
	Acted     bool
	Strikes   int

	revealed bool
	left     bool
}

func (st *Seat) inHand() bool { return st != nil && !st.Folded && len(st.Hole) == 2 }
func (st *Seat) canAct() bool { return st.inHand() && !st.AllIn }

type LogItem struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

type WinnerShare struct {
	Seat   int    `json:"seat"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
	Desc   string `json:"desc,omitempty"`
	Best   []Card `json:"best,omitempty"`
}

// HandResult is kept after settlement so clients can display the outcome
// until the next hand starts.
type HandResult struct {
	HandID  int           `json:"handId"`
	Board   []Card        `json:"board"`
	Winners []WinnerShare `json:"winners"`
}

type SeatState struct {
	Index   int    `json:"index"`
	UserID  int64  `json:"userId,string"`
	Name    string `json:"name"`
	IsBot   bool   `json:"isBot"`
	Chips   int64  `json:"chips"`
	Bet     int64  `json:"bet"`
	HandBet int64  `json:"handBet"`
	InHand  bool   `json:"inHand"`
	Folded  bool   `json:"folded"`
	AllIn   bool   `json:"allIn"`
	Acted   bool   `json:"acted"`
	Hole    []Card `json:"hole,omitempty"`
}

type TableState struct {
	TableID    string       `json:"tableId"`
	Name       string       `json:"name"`
	SmallBlind int64        `json:"smallBlind"`
	BigBlind   int64        `json:"bigBlind"`
	MinBuyIn   int64        `json:"minBuyIn"`
	MaxBuyIn   int64        `json:"maxBuyIn"`
	Street     Street       `json:"street"`
	HandID     int          `json:"handId"`
	Community  []Card       `json:"community"`
	Pot        int64        `json:"pot"`
	CurrentBet int64        `json:"currentBet"`
	MinRaise   int64        `json:"minRaise"`
	DealerSeat int          `json:"dealerSeat"`
	ActingSeat int          `json:"actingSeat"`
	Countdown  int          `json:"countdown"`
	Seats      []*SeatState `json:"seats"`
	LastResult *HandResult  `json:"lastResult,omitempty"`
	Logs       []LogItem    `json:"logs"`
	MySeat     int          `json:"mySeat"`
}

type TableOptions struct {
	ID         string
	Name       string
	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64
	MaxSeats   int
	ActSeconds int
}

// Table is one live hold'em table. All state behind mu; methods ending in
// Locked assume the caller holds it.
type Table struct {
	id         string
	name       string
	smallBlind int64
	bigBlind   int64
	minBuyIn   int64
	maxBuyIn   int64
	actSeconds int
	createdAt  time.Time

	street      Street
	handID      int
	seats       []*Seat
	byUser      map[int64]int
	deck        *Deck
	community   []Card
	currentBet  int64
	minRaise    int64
	dealerSeat  int
	actingSeat  int
	actDeadline time.Time
	handEndedAt time.Time
	lastResult  *HandResult

	logs        []LogItem
	seq         int64
	subscribers map[int64]chan OutgoingMessage

	rng *rand.Rand
	mu  sync.Mutex
}

// Ejection is a seat removed by the sweeper; the service refunds the chips
// to the wallet outside the table lock.
type Ejection struct {
	UserID int64
	Name   string
	Chips  int64
	IsBot  bool
}

func newTable(opts TableOptions) *Table {
	if opts.MaxSeats <= 0 {
		opts.MaxSeats = 9
	}
	return &Table{
		id:          opts.ID,
		name:        opts.Name,
		smallBlind:  opts.SmallBlind,
		bigBlind:    opts.BigBlind,
		minBuyIn:    opts.MinBuyIn,
		maxBuyIn:    opts.MaxBuyIn,
		actSeconds:  opts.ActSeconds,
		createdAt:   time.Now(),
		street:      StreetWaiting,
		seats:       make([]*Seat, opts.MaxSeats),
		byUser:      make(map[int64]int),
		dealerSeat:  -1,
		actingSeat:  -1,
		logs:        []LogItem{},
		subscribers: make(map[int64]chan OutgoingMessage),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *Table) ID() string { return t.id }

func (t *Table) Subscribe(userID int64) chan OutgoingMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan OutgoingMessage, 8)
	t.subscribers[userID] = ch
	t.pushStateLocked(userID)
	return ch
}

func (t *Table) Unsubscribe(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ch, ok := t.subscribers[userID]; ok {
		delete(t.subscribers, userID)
		close(ch)
	}
}

// Sit seats a player with their buy-in already debited from the wallet.
func (t *Table) Sit(userID int64, name string, isBot bool, chips int64) (*Seat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if userID != 0 {
		if _, ok := t.byUser[userID]; ok {
			return nil, appErr.ErrAlreadySeated
		}
	}
	idx := -1
	for i, st := range t.seats {
		if st == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, appErr.ErrTableFull
	}

	st := &Seat{Index: idx, UserID: userID, Name: name, IsBot: isBot, Chips: chips, Folded: true}
	t.seats[idx] = st
	if userID != 0 {
		t.byUser[userID] = idx
	}
	t.appendLogLocked("%s sat down with $%d", name, chips)
	t.broadcastStateLocked()
	return st, nil
}

// Stand removes a player and returns the chips to refund. Leaving mid-hand
// folds first; the chair itself is freed once the hand settles so the
// forfeited wagers stay in the pot.
func (t *Table) Stand(userID int64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byUser[userID]
	if !ok {
		return 0, appErr.ErrInvalidTarget
	}
	st := t.seats[idx]
	delete(t.byUser, userID)
	t.appendLogLocked("%s left the table", st.Name)

	if t.bettingLocked() && st.inHand() {
		st.Folded = true
		switch {
		case t.inHandCountLocked() == 1:
			t.settleFoldWinLocked()
		case t.actingSeat == idx:
			t.afterActionLocked()
		case t.streetCompleteLocked():
			t.advanceStreetLocked()
		}
		t.runBotsLocked()
	}

	// Settlement above may have returned an uncalled bet to the stack, so
	// the refund is read only now.
	chips := st.Chips
	st.Chips = 0
	if t.bettingLocked() && st.HandBet > 0 {
		// The chair frees once the hand settles; the wagers stay in the pot.
		st.left = true
	} else {
		t.seats[idx] = nil
	}
	t.broadcastStateLocked()
	return chips, nil
}

// RemoveBot stands up one bot seat, preferring the highest index. Bot
// chips are house money and are discarded, not refunded.
func (t *Table) RemoveBot() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i := len(t.seats) - 1; i >= 0; i-- {
		if st := t.seats[i]; st != nil && st.IsBot && !st.left {
			idx = i
			break
		}
	}
	if idx == -1 {
		return appErr.ErrInvalidTarget
	}
	st := t.seats[idx]
	t.appendLogLocked("%s left the table", st.Name)

	if t.bettingLocked() && st.inHand() {
		st.Folded = true
		switch {
		case t.inHandCountLocked() == 1:
			t.settleFoldWinLocked()
		case t.actingSeat == idx:
			t.afterActionLocked()
		case t.streetCompleteLocked():
			t.advanceStreetLocked()
		}
		t.runBotsLocked()
	}

	st.Chips = 0
	if t.bettingLocked() && st.HandBet > 0 {
		st.left = true
	} else {
		t.seats[idx] = nil
	}
	t.broadcastStateLocked()
	return nil
}

// StartHand deals a new hand on request from any seated player.
func (t *Table) StartHand(userID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byUser[userID]; !ok {
		return appErr.ErrUnauthorized
	}
	if t.bettingLocked() {
		return appErr.ErrGameStarted
	}
	if !t.startHandLocked() {
		return appErr.ErrNotEnoughSeats
	}
	t.runBotsLocked()
	t.broadcastStateLocked()
	return nil
}

// Chat appends a chat line to the table log.
func (t *Table) Chat(userID int64, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byUser[userID]
	if !ok {
		return appErr.ErrUnauthorized
	}
	t.appendLogLocked("%s: %s", t.seats[idx].Name, message)
	t.broadcastStateLocked()
	return nil
}

func (t *Table) Fold(userID int64) error {
	return t.playerAction(userID, func(st *Seat) error {
		t.foldActionLocked(st)
		return nil
	})
}

func (t *Table) Check(userID int64) error {
	return t.playerAction(userID, t.checkActionLocked)
}

func (t *Table) Call(userID int64) error {
	return t.playerAction(userID, func(st *Seat) error {
		t.callActionLocked(st)
		return nil
	})
}

// Raise raises the current street wager to the given total.
func (t *Table) Raise(userID int64, to int64) error {
	return t.playerAction(userID, func(st *Seat) error {
		return t.raiseActionLocked(st, to)
	})
}

func (t *Table) playerAction(userID int64, fn func(*Seat) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.requireActorLocked(userID)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	st.Strikes = 0
	t.afterActionLocked()
	t.runBotsLocked()
	t.broadcastStateLocked()
	return nil
}

func (t *Table) requireActorLocked(userID int64) (*Seat, error) {
	if !t.bettingLocked() {
		return nil, appErr.ErrIllegalAction
	}
	idx, ok := t.byUser[userID]
	if !ok {
		return nil, appErr.ErrUnauthorized
	}
	if idx != t.actingSeat {
		return nil, appErr.ErrNotYourTurn
	}
	return t.seats[idx], nil
}

func (t *Table) bettingLocked() bool {
	switch t.street {
	case StreetPreflop, StreetFlop, StreetTurn, StreetRiver:
		return true
	}
	return false
}

func (t *Table) inHandCountLocked() int {
	n := 0
	for _, st := range t.seats {
		if st.inHand() {
			n++
		}
	}
	return n
}

func (t *Table) canActCountLocked() int {
	n := 0
	for _, st := range t.seats {
		if st.canAct() {
			n++
		}
	}
	return n
}

// nextSeatLocked scans clockwise from (not including) from for a seat
// matching pred. Returns -1 when none do.
func (t *Table) nextSeatLocked(from int, pred func(*Seat) bool) int {
	n := len(t.seats)
	for i := 1; i <= n; i++ {
		idx := (from + i + n) % n
		if st := t.seats[idx]; st != nil && pred(st) {
			return idx
		}
	}
	return -1
}

// startHandLocked deals a fresh hand when at least two funded seats remain.
func (t *Table) startHandLocked() bool {
	if t.bettingLocked() {
		return false
	}
	funded := 0
	for _, st := range t.seats {
		if st != nil && st.Chips > 0 {
			funded++
		}
	}
	if funded < 2 {
		return false
	}

	t.handID++
	t.deck = NewDeck(t.rng)
	t.community = nil
	t.lastResult = nil
	for _, st := range t.seats {
		if st == nil {
			continue
		}
		st.Hole = nil
		st.StreetBet = 0
		st.HandBet = 0
		st.Folded = true
		st.AllIn = false
		st.Acted = false
		st.revealed = false
	}
	for _, st := range t.seats {
		if st != nil && st.Chips > 0 {
			st.Folded = false
			st.Hole = []Card{t.deck.Draw(), t.deck.Draw()}
		}
	}

	// Heads-up the dealer posts the small blind.
	t.dealerSeat = t.nextSeatLocked(t.dealerSeat, (*Seat).inHand)
	sb := t.dealerSeat
	if funded > 2 {
		sb = t.nextSeatLocked(t.dealerSeat, (*Seat).inHand)
	}
	bb := t.nextSeatLocked(sb, (*Seat).inHand)
	t.appendLogLocked("Hand #%d begins, %s deals", t.handID, t.seats[t.dealerSeat].Name)
	t.postBlindLocked(t.seats[sb], t.smallBlind, "small")
	t.postBlindLocked(t.seats[bb], t.bigBlind, "big")
	t.currentBet = t.bigBlind
	t.minRaise = t.bigBlind
	t.street = StreetPreflop
	t.actingSeat = t.nextSeatLocked(bb, (*Seat).canAct)
	if t.actingSeat == -1 {
		// Both blinds are all-in from posting, nothing left to decide.
		t.advanceStreetLocked()
		return true
	}
	t.armDeadlineLocked()
	return true
}

// postBlindLocked posts a blind capped by the stack.
func (t *Table) postBlindLocked(st *Seat, amount int64, kind string) {
	t.commitLocked(st, amount)
	t.appendLogLocked("%s posts the %s blind ($%d)", st.Name, kind, st.StreetBet)
}

// commitLocked moves chips from the stack into the street wager, capped by
// what the seat has.
func (t *Table) commitLocked(st *Seat, amount int64) int64 {
	if amount > st.Chips {
		amount = st.Chips
	}
	st.Chips -= amount
	st.StreetBet += amount
	st.HandBet += amount
	if st.Chips == 0 {
		st.AllIn = true
	}
	return amount
}

func (t *Table) foldActionLocked(st *Seat) {
	st.Folded = true
	st.Acted = true
	t.appendLogLocked("%s folds", st.Name)
}

func (t *Table) checkActionLocked(st *Seat) error {
	if st.StreetBet != t.currentBet {
		return appErr.ErrIllegalAction
	}
	st.Acted = true
	t.appendLogLocked("%s checks", st.Name)
	return nil
}

func (t *Table) callActionLocked(st *Seat) {
	owe := t.currentBet - st.StreetBet
	if owe <= 0 {
		st.Acted = true
		t.appendLogLocked("%s checks", st.Name)
		return
	}
	paid := t.commitLocked(st, owe)
	st.Acted = true
	if st.AllIn {
		t.appendLogLocked("%s calls $%d and is all-in", st.Name, paid)
	} else {
		t.appendLogLocked("%s calls $%d", st.Name, paid)
	}
}

// raiseActionLocked raises the street wager to the given total. A raise
// short of the minimum is legal only as an all-in and does not reopen the
// betting: the minimum stays put and nobody's acted flag resets.
func (t *Table) raiseActionLocked(st *Seat, to int64) error {
	if to <= t.currentBet {
		return appErr.ErrInvalidAmount
	}
	pay := to - st.StreetBet
	if pay <= 0 {
		return appErr.ErrInvalidAmount
	}
	if pay > st.Chips {
		return appErr.ErrInsufficientFunds
	}
	full := to >= t.currentBet+t.minRaise
	if !full && pay < st.Chips {
		return appErr.ErrInvalidAmount
	}

	t.commitLocked(st, pay)
	if full {
		t.minRaise = to - t.currentBet
		for _, other := range t.seats {
			if other != nil && other != st && other.canAct() {
				other.Acted = false
			}
		}
	}
	t.currentBet = to
	st.Acted = true
	if st.AllIn {
		t.appendLogLocked("%s raises to $%d, all-in", st.Name, to)
	} else {
		t.appendLogLocked("%s raises to $%d", st.Name, to)
	}
	return nil
}

// afterActionLocked settles, advances the street, or moves to the next
// actor, whichever the seat flags dictate.
func (t *Table) afterActionLocked() {
	if t.inHandCountLocked() == 1 {
		t.settleFoldWinLocked()
		return
	}
	if t.streetCompleteLocked() {
		t.advanceStreetLocked()
		return
	}
	t.actingSeat = t.nextSeatLocked(t.actingSeat, (*Seat).canAct)
	t.armDeadlineLocked()
}

// streetCompleteLocked is a pure function of the seat flags: every seat
// that can still act has acted and matched the current wager.
func (t *Table) streetCompleteLocked() bool {
	for _, st := range t.seats {
		if !st.canAct() {
			continue
		}
		if !st.Acted || st.StreetBet != t.currentBet {
			return false
		}
	}
	return true
}

func (t *Table) advanceStreetLocked() {
	t.returnUncalledLocked()
	for _, st := range t.seats {
		if st == nil {
			continue
		}
		st.StreetBet = 0
		if st.canAct() {
			st.Acted = false
		}
	}
	t.currentBet = 0
	t.minRaise = t.bigBlind

	switch t.street {
	case StreetPreflop:
		t.street = StreetFlop
		t.community = append(t.community, t.deck.Draw(), t.deck.Draw(), t.deck.Draw())
		t.appendLogLocked("Flop: %s %s %s", t.community[0], t.community[1], t.community[2])
	case StreetFlop:
		t.street = StreetTurn
		t.community = append(t.community, t.deck.Draw())
		t.appendLogLocked("Turn: %s", t.community[3])
	case StreetTurn:
		t.street = StreetRiver
		t.community = append(t.community, t.deck.Draw())
		t.appendLogLocked("River: %s", t.community[4])
	case StreetRiver:
		t.showdownLocked()
		return
	}

	if t.canActCountLocked() <= 1 {
		t.runOutLocked()
		return
	}
	t.actingSeat = t.nextSeatLocked(t.dealerSeat, (*Seat).canAct)
	t.armDeadlineLocked()
}

// runOutLocked deals the remaining streets when betting is over early.
func (t *Table) runOutLocked() {
	t.actingSeat = -1
	t.actDeadline = time.Time{}
	for len(t.community) < 5 {
		t.community = append(t.community, t.deck.Draw())
	}
	t.appendLogLocked("Board runs out: %v", t.community)
	t.showdownLocked()
}

// returnUncalledLocked refunds the part of the highest street wager nobody
// matched.
func (t *Table) returnUncalledLocked() {
	var hi, second int64
	var hiSeat *Seat
	for _, st := range t.seats {
		if st == nil {
			continue
		}
		if st.StreetBet > hi {
			second = hi
			hi = st.StreetBet
			hiSeat = st
		} else if st.StreetBet > second {
			second = st.StreetBet
		}
	}
	if hiSeat == nil || hi <= second {
		return
	}
	diff := hi - second
	hiSeat.Chips += diff
	hiSeat.StreetBet -= diff
	hiSeat.HandBet -= diff
	if hiSeat.AllIn && hiSeat.Chips > 0 {
		hiSeat.AllIn = false
	}
	t.appendLogLocked("$%d uncalled returns to %s", diff, hiSeat.Name)
}

func (t *Table) settleFoldWinLocked() {
	t.returnUncalledLocked()
	var winner *Seat
	var total int64
	for _, st := range t.seats {
		if st == nil {
			continue
		}
		total += st.HandBet
		if st.inHand() {
			winner = st
		}
	}
	if winner == nil {
		t.finishHandLocked(nil)
		return
	}
	winner.Chips += total
	t.appendLogLocked("%s takes the pot ($%d) uncontested", winner.Name, total)
	t.finishHandLocked(&HandResult{
		HandID:  t.handID,
		Board:   append([]Card(nil), t.community...),
		Winners: []WinnerShare{{Seat: winner.Index, Name: winner.Name, Amount: total}},
	})
}

func (t *Table) showdownLocked() {
	t.returnUncalledLocked()

	values := make(map[int]HandValue)
	for _, st := range t.seats {
		if !st.inHand() {
			continue
		}
		cards := append(append([]Card{}, st.Hole...), t.community...)
		hv, err := Evaluate(cards)
		if err != nil {
			logger.Log.Error("hand evaluation failed",
				zap.String("tableID", t.id), zap.Error(err))
			continue
		}
		st.revealed = true
		values[st.Index] = hv
		t.appendLogLocked("%s shows %s %s: %s", st.Name, st.Hole[0], st.Hole[1], hv.Desc)
	}

	won := make(map[int]int64)
	for _, pot := range buildPots(t.seats) {
		var best []int
		var bestV HandValue
		for _, idx := range pot.Eligible {
			hv, ok := values[idx]
			if !ok {
				continue
			}
			switch {
			case len(best) == 0 || Compare(hv, bestV) > 0:
				best = []int{idx}
				bestV = hv
			case Compare(hv, bestV) == 0:
				best = append(best, idx)
			}
		}
		if len(best) == 0 {
			continue
		}
		share := pot.Amount / int64(len(best))
		rem := pot.Amount % int64(len(best))
		for i, idx := range best {
			add := share
			if int64(i) < rem {
				add++
			}
			t.seats[idx].Chips += add
			won[idx] += add
		}
	}

	var shares []WinnerShare
	for idx, st := range t.seats {
		amount, ok := won[idx]
		if !ok || st == nil {
			continue
		}
		hv := values[idx]
		shares = append(shares, WinnerShare{
			Seat:   idx,
			Name:   st.Name,
			Amount: amount,
			Desc:   hv.Desc,
			Best:   hv.Best,
		})
		t.appendLogLocked("%s wins $%d with %s", st.Name, amount, hv.Desc)
	}
	t.finishHandLocked(&HandResult{
		HandID:  t.handID,
		Board:   append([]Card(nil), t.community...),
		Winners: shares,
	})
}

func (t *Table) finishHandLocked(result *HandResult) {
	t.street = StreetShowdown
	t.actingSeat = -1
	t.actDeadline = time.Time{}
	t.lastResult = result
	t.handEndedAt = time.Now()
	for _, st := range t.seats {
		if st != nil {
			st.StreetBet = 0
			st.HandBet = 0
		}
	}
}

func (t *Table) armDeadlineLocked() {
	if t.actSeconds > 0 {
		t.actDeadline = time.Now().Add(time.Duration(t.actSeconds) * time.Second)
	} else {
		t.actDeadline = time.Time{}
	}
}

// Sweep enforces the act deadline and restarts hands. Called by the service
// ticker; returned ejections get their wallet refunds outside the lock.
func (t *Table) Sweep(now time.Time) []Ejection {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ejected []Ejection
	changed := false

	if t.bettingLocked() && !t.actDeadline.IsZero() && now.After(t.actDeadline) {
		if st := t.seats[t.actingSeat]; st != nil {
			st.Strikes++
			if st.StreetBet == t.currentBet {
				st.Acted = true
				t.appendLogLocked("%s timed out and checks (%d/%d)", st.Name, st.Strikes, maxTimeoutStrikes)
			} else {
				st.Folded = true
				st.Acted = true
				t.appendLogLocked("%s timed out and folds (%d/%d)", st.Name, st.Strikes, maxTimeoutStrikes)
			}
			logger.Log.Warn("poker act timeout",
				zap.String("tableID", t.id), zap.String("seat", st.Name))
			t.afterActionLocked()
			t.runBotsLocked()
			changed = true
		}
	}

	if !t.bettingLocked() {
		if t.handEndedAt.IsZero() || now.Sub(t.handEndedAt) >= restartDelay {
			for i, st := range t.seats {
				if st == nil {
					continue
				}
				if st.left || st.Chips == 0 || st.Strikes >= maxTimeoutStrikes {
					t.seats[i] = nil
					delete(t.byUser, st.UserID)
					if !st.left {
						t.appendLogLocked("%s leaves the table", st.Name)
					}
					// A seat that left mid-hand can still hold chips here: an
					// uncalled bet returned during settlement lands on the
					// husk. Those chips belong to the player.
					if !st.left || st.Chips > 0 {
						ejected = append(ejected, Ejection{
							UserID: st.UserID, Name: st.Name, Chips: st.Chips, IsBot: st.IsBot,
						})
					}
					changed = true
				}
			}
			if t.startHandLocked() {
				t.runBotsLocked()
				changed = true
			}
		}
	}

	if changed {
		t.broadcastStateLocked()
	}
	return ejected
}

// Abandoned reports whether the table has played at least one hand and
// nobody is seated or watching anymore.
func (t *Table) Abandoned() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handID == 0 {
		return false
	}
	for _, st := range t.seats {
		if st != nil {
			return false
		}
	}
	return len(t.subscribers) == 0
}

func (t *Table) userSeated(userID int64) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.byUser[userID]
	return idx, ok
}

func (t *Table) appendLogLocked(format string, args ...interface{}) {
	t.logs = append(t.logs, LogItem{
		ID:        fmt.Sprintf("%d-%d", time.Now().UnixNano(), len(t.logs)+1),
		Timestamp: time.Now().UnixMilli(),
		Content:   fmt.Sprintf(format, args...),
	})
	if len(t.logs) > maxLogItems {
		t.logs = t.logs[len(t.logs)-maxLogItems:]
	}
}

func (t *Table) nextSeqLocked() int64 {
	t.seq++
	return t.seq
}

func (t *Table) pushStateLocked(userID int64) {
	state := t.exportStateLocked(userID)
	msg := OutgoingMessage{Type: "state", Seq: t.nextSeqLocked(), Data: state}
	if ch, ok := t.subscribers[userID]; ok {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Int64("userID", userID), zap.String("tableID", t.id))
		}
	}
}

func (t *Table) broadcastStateLocked() {
	seq := t.nextSeqLocked()
	for uid, ch := range t.subscribers {
		msg := OutgoingMessage{Type: "state", Seq: seq, Data: t.exportStateLocked(uid)}
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Int64("userID", uid), zap.String("tableID", t.id))
		}
	}
}

// exportStateLocked renders the table as seen by userID: own hole cards
// visible, everyone else's hidden until a showdown reveals them.
func (t *Table) exportStateLocked(userID int64) TableState {
	mySeat := -1
	if idx, ok := t.byUser[userID]; ok {
		mySeat = idx
	}

	var pot int64
	seats := make([]*SeatState, len(t.seats))
	for i, st := range t.seats {
		if st == nil {
			continue
		}
		pot += st.HandBet
		ss := &SeatState{
			Index:   st.Index,
			UserID:  st.UserID,
			Name:    st.Name,
			IsBot:   st.IsBot,
			Chips:   st.Chips,
			Bet:     st.StreetBet,
			HandBet: st.HandBet,
			InHand:  st.inHand(),
			Folded:  st.Folded,
			AllIn:   st.AllIn,
			Acted:   st.Acted,
		}
		if i == mySeat || st.revealed {
			ss.Hole = append([]Card(nil), st.Hole...)
		}
		seats[i] = ss
	}

	return TableState{
		TableID:    t.id,
		Name:       t.name,
		SmallBlind: t.smallBlind,
		BigBlind:   t.bigBlind,
		MinBuyIn:   t.minBuyIn,
		MaxBuyIn:   t.maxBuyIn,
		Street:     t.street,
		HandID:     t.handID,
		Community:  append([]Card(nil), t.community...),
		Pot:        pot,
		CurrentBet: t.currentBet,
		MinRaise:   t.minRaise,
		DealerSeat: t.dealerSeat,
		ActingSeat: t.actingSeat,
		Countdown:  t.countdownLocked(),
		Seats:      seats,
		LastResult: t.lastResult,
		Logs:       append([]LogItem(nil), t.logs...),
		MySeat:     mySeat,
	}
}

func (t *Table) countdownLocked() int {
	if t.actDeadline.IsZero() {
		return 0
	}
	diff := time.Until(t.actDeadline)
	if diff <= 0 {
		return 0
	}
	return int(diff / time.Second)
}

// Snapshot returns the state as seen by userID, for HTTP reads and tests.
func (t *Table) Snapshot(userID int64) TableState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exportStateLocked(userID)
}
