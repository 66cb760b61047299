package board

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"monopolyx-service/internal/catalog"
	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/logger"

	"go.uber.org/zap"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Game modes.
const (
	ModeAbilities   = "abilities"
	ModeClassic     = "classic"
	ModeOreshnikAll = "oreshnik_all"
)

const (
	maxLogItems     = 120
	landingBonus    = 200
	jailBail        = 50
	houseRepairLevy = 25
)

type Player struct {
	ID              string `json:"id"`
	UserID          int64  `json:"userId,string"`
	Name            string `json:"name"`
	Avatar          string `json:"avatar,omitempty"`
	Character       string `json:"character"`
	IsBot           bool   `json:"isBot"`
	Money           int64  `json:"money"`
	Position        int    `json:"position"`
	Properties      []int  `json:"properties"`
	Jailed          bool   `json:"jailed"`
	JailTurns       int    `json:"jailTurns"`
	AbilityCooldown int    `json:"abilityCooldown"`
	SkippedTurns    int    `json:"skippedTurns"`
	Bankrupt        bool   `json:"bankrupt"`
}

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

type TileState struct {
	Index          int     `json:"index"`
	Name           string  `json:"name"`
	Group          string  `json:"group"`
	Price          int64   `json:"price,omitempty"`
	Rent           []int64 `json:"rent,omitempty"`
	OwnerID        string  `json:"ownerId,omitempty"`
	Houses         int     `json:"houses"`
	Mortgaged      bool    `json:"mortgaged"`
	Destroyed      bool    `json:"destroyed"`
	IsolationTurns int     `json:"isolationTurns"`
	Monopoly       bool    `json:"monopoly"`
}

type GameState struct {
	GameID          string        `json:"gameId"`
	Status          Status        `json:"status"`
	MapType         string        `json:"mapType"`
	GameMode        string        `json:"gameMode"`
	HostID          int64         `json:"hostId,string"`
	MaxPlayers      int           `json:"maxPlayers"`
	Players         []Player      `json:"players"`
	Order           []string      `json:"order"`
	TurnIndex       int           `json:"turnIndex"`
	TurnNumber      int           `json:"turnNumber"`
	CurrentPlayerID string        `json:"currentPlayerId"`
	Dice            [2]int        `json:"dice"`
	HasRolled       bool          `json:"hasRolled"`
	Pot             int64         `json:"pot"`
	TaxDue          int64         `json:"taxDue,omitempty"`
	Countdown       int           `json:"countdown"`
	Board           []TileState   `json:"board"`
	Trades          []TradeOffer  `json:"trades"`
	Auction         *AuctionState `json:"auction,omitempty"`
	WinnerID        string        `json:"winnerId,omitempty"`
	Logs            []LogItem     `json:"logs"`
	MyPlayerID      string        `json:"myPlayerId,omitempty"`
}

// Session is one live board game. All state behind mu; methods ending in
// Locked assume the caller holds it.
type Session struct {
	id            string
	hostID        int64
	mapID         string
	mode          string
	maxPlayers    int
	startingMoney int64
	turnSeconds   int
	createdAt     time.Time

	status     Status
	players    map[string]*Player
	order      []string
	roster     []string // join order, keeps bankrupt players
	byUser     map[int64]string
	turnIndex  int
	turnNumber int

	board   []*catalog.Tile
	mapDef  *catalog.MapDef
	catalog *catalog.Catalog

	pot          int64
	taxDue       int64
	dice         [2]int
	doublesCount int
	hasRolled    bool
	turnDeadline time.Time
	winnerID     string
	finishedAt   time.Time

	trades  map[string]*TradeOffer
	auction *Auction

	logs        []LogItem
	seq         int64
	subscribers map[int64]chan OutgoingMessage

	rng        *rand.Rand
	chanceDraw func() chanceCard // test hook, nil means random deck draw
	mu         sync.Mutex

	onFinish func(*Session)
}

type SessionOptions struct {
	ID            string
	HostID        int64
	MapID         string
	Mode          string
	MaxPlayers    int
	StartingMoney int64
	TurnSeconds   int
}

func newSession(cat *catalog.Catalog, opts SessionOptions, onFinish func(*Session)) (*Session, error) {
	board, mapDef, err := cat.NewBoard(opts.MapID)
	if err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = ModeAbilities
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 6
	}
	if opts.StartingMoney <= 0 {
		opts.StartingMoney = 1500
	}
	return &Session{
		id:            opts.ID,
		hostID:        opts.HostID,
		mapID:         opts.MapID,
		mode:          opts.Mode,
		maxPlayers:    opts.MaxPlayers,
		startingMoney: opts.StartingMoney,
		turnSeconds:   opts.TurnSeconds,
		createdAt:     time.Now(),
		status:        StatusWaiting,
		players:       make(map[string]*Player),
		byUser:        make(map[int64]string),
		board:         board,
		mapDef:        mapDef,
		catalog:       cat,
		trades:        make(map[string]*TradeOffer),
		logs:          []LogItem{},
		subscribers:   make(map[int64]chan OutgoingMessage),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		onFinish:      onFinish,
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Subscribe(userID int64) chan OutgoingMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan OutgoingMessage, 8)
	s.subscribers[userID] = ch
	s.pushStateLocked(userID)
	return ch
}

func (s *Session) Unsubscribe(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[userID]; ok {
		delete(s.subscribers, userID)
		close(ch)
	}
}

// AddPlayer seats a human player before the game starts.
func (s *Session) AddPlayer(userID int64, name, avatar, character string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusWaiting {
		return nil, appErr.ErrGameStarted
	}
	if _, ok := s.byUser[userID]; ok {
		return nil, appErr.ErrAlreadySeated
	}
	if len(s.order) >= s.maxPlayers {
		return nil, appErr.ErrGameFull
	}

	p := s.addPlayerLocked(userID, name, avatar, character, false)
	s.appendLogLocked("%s joined the game", p.Name)
	s.broadcastStateLocked()
	return p, nil
}

// AddBot seats a bot player before the game starts.
func (s *Session) AddBot(name string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusWaiting {
		return nil, appErr.ErrGameStarted
	}
	if len(s.order) >= s.maxPlayers {
		return nil, appErr.ErrGameFull
	}

	if name == "" {
		name = fmt.Sprintf("Bot %d", len(s.order)+1)
	}
	p := s.addPlayerLocked(0, name, "", "", true)
	s.appendLogLocked("%s joined the game", p.Name)
	s.broadcastStateLocked()
	return p, nil
}

func (s *Session) addPlayerLocked(userID int64, name, avatar, character string, bot bool) *Player {
	if character == "" {
		character = s.pickCharacterLocked()
	}
	p := &Player{
		ID:         newID(),
		UserID:     userID,
		Name:       name,
		Avatar:     avatar,
		Character:  character,
		IsBot:      bot,
		Money:      s.startingMoney,
		Properties: []int{},
	}
	s.players[p.ID] = p
	s.order = append(s.order, p.ID)
	s.roster = append(s.roster, p.ID)
	if userID != 0 {
		s.byUser[userID] = p.ID
	}
	return p
}

func (s *Session) pickCharacterLocked() string {
	taken := make(map[string]bool, len(s.players))
	for _, p := range s.players {
		taken[p.Character] = true
	}
	chars := s.catalog.Characters()
	for _, c := range chars {
		if !taken[c] {
			return c
		}
	}
	if len(chars) == 0 {
		return ""
	}
	return chars[s.rng.Intn(len(chars))]
}

// Start begins the game. Only the host can start, and at least two players
// must be seated.
func (s *Session) Start(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusWaiting {
		return appErr.ErrGameStarted
	}
	if userID != s.hostID {
		return appErr.ErrNotHost
	}
	if len(s.order) < 2 {
		return appErr.ErrNotEnoughSeats
	}

	s.status = StatusActive
	s.turnIndex = 0
	s.turnNumber = 1
	s.resetDeadlineLocked()
	s.appendLogLocked("Game started on %s map (%d players)", s.mapID, len(s.order))
	s.runBotsLocked()
	s.broadcastStateLocked()
	return nil
}

func (s *Session) currentPlayerLocked() *Player {
	if len(s.order) == 0 {
		return nil
	}
	if s.turnIndex >= len(s.order) {
		s.turnIndex = s.turnIndex % len(s.order)
	}
	return s.players[s.order[s.turnIndex]]
}

// requireTurnLocked validates that the game is running and it is this
// player's turn.
func (s *Session) requireTurnLocked(playerID string) (*Player, error) {
	if s.status != StatusActive {
		return nil, appErr.ErrIllegalAction
	}
	p, ok := s.players[playerID]
	if !ok || p.Bankrupt {
		return nil, appErr.ErrInvalidTarget
	}
	if cur := s.currentPlayerLocked(); cur == nil || cur.ID != playerID {
		return nil, appErr.ErrNotYourTurn
	}
	return p, nil
}

func (s *Session) nextTurnLocked() {
	if len(s.order) == 0 {
		return
	}
	// Outstanding tax is collected at the latest when the turn ends.
	if s.taxDue > 0 {
		if p := s.currentPlayerLocked(); p != nil {
			p.Money -= s.taxDue
			s.pot += s.taxDue
			s.appendLogLocked("%s paid $%d tax into the pot", p.Name, s.taxDue)
		}
		s.taxDue = 0
	}
	s.turnIndex = (s.turnIndex + 1) % len(s.order)
	s.turnNumber++
	s.doublesCount = 0
	s.hasRolled = false
	s.resetDeadlineLocked()

	for _, p := range s.players {
		if p.AbilityCooldown > 0 {
			p.AbilityCooldown--
		}
	}
	for _, t := range s.board {
		if t.IsolationTurns > 0 {
			t.IsolationTurns--
		}
	}
}

// EndTurn passes play to the next player.
func (s *Session) EndTurn(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireTurnLocked(playerID); err != nil {
		return err
	}
	if s.auction != nil {
		return appErr.ErrIllegalAction
	}
	s.nextTurnLocked()
	s.runBotsLocked()
	s.broadcastStateLocked()
	return nil
}

func (s *Session) sendToJailLocked(p *Player) {
	p.Position = s.mapDef.JailIndex
	p.Jailed = true
	p.JailTurns = 0
	s.doublesCount = 0
}

func (s *Session) resetDeadlineLocked() {
	if s.turnSeconds > 0 {
		s.turnDeadline = time.Now().Add(time.Duration(s.turnSeconds) * time.Second)
	} else {
		s.turnDeadline = time.Time{}
	}
}

// SweepTimeout skips the current turn when the deadline (plus grace) has
// passed. Called by the service ticker.
func (s *Session) SweepTimeout(grace time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive || s.turnDeadline.IsZero() {
		return false
	}
	if time.Now().Before(s.turnDeadline.Add(grace)) {
		return false
	}
	p := s.currentPlayerLocked()
	if p == nil {
		return false
	}
	s.appendLogLocked("%s ran out of time, turn skipped", p.Name)
	logger.Log.Warn("board turn timeout",
		zap.String("gameID", s.id),
		zap.String("player", p.Name),
	)
	s.auction = nil
	s.nextTurnLocked()
	s.runBotsLocked()
	s.broadcastStateLocked()
	return true
}

// Surrender is a voluntary bankruptcy to the bank.
func (s *Session) Surrender(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return appErr.ErrInvalidTarget
	}
	if p.Bankrupt {
		return appErr.ErrAlreadyResolved
	}

	s.appendLogLocked("%s surrendered and left the game", p.Name)
	s.bankruptLocked(p, nil)
	s.runBotsLocked()
	s.broadcastStateLocked()
	return nil
}

// Chat appends a chat line to the game log.
func (s *Session) Chat(playerID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return appErr.ErrInvalidTarget
	}
	s.appendLogLocked("%s: %s", p.Name, message)
	s.broadcastStateLocked()
	return nil
}

// bankruptLocked strips a player and hands assets to the creditor, or back
// to the bank when creditor is nil. The turn index is re-normalized without
// advancing so the next player in order acts.
func (s *Session) bankruptLocked(p *Player, creditor *Player) {
	p.Bankrupt = true

	for _, idx := range p.Properties {
		tile := s.board[idx]
		if creditor != nil {
			tile.OwnerID = creditor.ID
			creditor.Properties = append(creditor.Properties, idx)
		} else {
			tile.OwnerID = ""
			tile.Houses = 0
			tile.Mortgaged = false
		}
	}
	if creditor != nil {
		creditor.Money += p.Money
	}
	p.Money = 0
	p.Properties = []int{}

	wasCurrent := false
	for i, id := range s.order {
		if id == p.ID {
			wasCurrent = i == s.turnIndex
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if wasCurrent {
		s.taxDue = 0
	}
	s.appendLogLocked("%s went bankrupt", p.Name)

	for _, t := range s.board {
		if t.Group != "" {
			s.refreshMonopolyLocked(t.Group)
		}
	}

	if wasCurrent && s.status == StatusActive && len(s.order) > 0 {
		s.turnIndex = s.turnIndex % len(s.order)
		s.turnNumber++
		s.hasRolled = false
		s.doublesCount = 0
		s.resetDeadlineLocked()
	}

	active := s.activePlayersLocked()
	if len(active) == 1 && s.status == StatusActive {
		s.finishLocked(active[0])
	} else if len(active) == 0 {
		s.finishLocked(nil)
	}
}

func (s *Session) activePlayersLocked() []*Player {
	out := make([]*Player, 0, len(s.order))
	for _, id := range s.order {
		if p := s.players[id]; p != nil && !p.Bankrupt {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) finishLocked(winner *Player) {
	s.status = StatusFinished
	s.turnDeadline = time.Time{}
	s.finishedAt = time.Now()
	s.auction = nil
	if winner != nil {
		s.winnerID = winner.ID
		s.appendLogLocked("%s wins the game!", winner.Name)
	}
	if s.onFinish != nil {
		go s.onFinish(s)
	}
}

// refreshMonopolyLocked recomputes the monopoly flag for every street in a
// color group. A group counts as a monopoly only while one player owns all
// of its tiles unmortgaged.
func (s *Session) refreshMonopolyLocked(group string) {
	switch group {
	case catalog.GroupStation, catalog.GroupUtility, catalog.GroupSpecial,
		catalog.GroupChance, catalog.GroupTax, catalog.GroupJail,
		catalog.GroupGoToJail, catalog.GroupFreeParking:
		return
	}
	var tiles []*catalog.Tile
	for _, t := range s.board {
		if t.Group == group {
			tiles = append(tiles, t)
		}
	}
	owner := ""
	full := true
	for _, t := range tiles {
		if t.OwnerID == "" || t.Mortgaged {
			full = false
			break
		}
		if owner == "" {
			owner = t.OwnerID
		} else if owner != t.OwnerID {
			full = false
			break
		}
	}
	for _, t := range tiles {
		t.Monopoly = full
	}
}

func (s *Session) appendLogLocked(format string, args ...interface{}) {
	s.logs = append(s.logs, LogItem{
		ID:        fmt.Sprintf("%d-%d", time.Now().UnixNano(), len(s.logs)+1),
		Timestamp: time.Now().UnixMilli(),
		Content:   fmt.Sprintf(format, args...),
	})
	if len(s.logs) > maxLogItems {
		s.logs = s.logs[len(s.logs)-maxLogItems:]
	}
}

func (s *Session) nextSeqLocked() int64 {
	s.seq++
	return s.seq
}

func (s *Session) pushStateLocked(userID int64) {
	state := s.exportStateLocked(userID)
	s.pushMessageLocked(userID, OutgoingMessage{Type: "state", Seq: s.nextSeqLocked(), Data: state})
}

func (s *Session) broadcastStateLocked() {
	seq := s.nextSeqLocked()
	for uid, ch := range s.subscribers {
		msg := OutgoingMessage{Type: "state", Seq: seq, Data: s.exportStateLocked(uid)}
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Int64("userID", uid), zap.String("gameID", s.id))
		}
	}
}

func (s *Session) pushMessageLocked(userID int64, msg OutgoingMessage) {
	if ch, ok := s.subscribers[userID]; ok {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full",
				zap.Int64("userID", userID), zap.String("gameID", s.id))
		}
	}
}

func (s *Session) exportStateLocked(userID int64) GameState {
	// The roster keeps bankrupt players visible; only the turn order drops
	// them.
	players := make([]Player, 0, len(s.roster))
	for _, id := range s.roster {
		p := s.players[id]
		cp := *p
		cp.Properties = append([]int(nil), p.Properties...)
		players = append(players, cp)
	}
	board := make([]TileState, len(s.board))
	for i, t := range s.board {
		board[i] = TileState{
			Index:          t.Index,
			Name:           t.Name,
			Group:          t.Group,
			Price:          t.Price,
			Rent:           t.Rent,
			OwnerID:        t.OwnerID,
			Houses:         t.Houses,
			Mortgaged:      t.Mortgaged,
			Destroyed:      t.Destroyed,
			IsolationTurns: t.IsolationTurns,
			Monopoly:       t.Monopoly,
		}
	}
	trades := make([]TradeOffer, 0, len(s.trades))
	for _, tr := range s.trades {
		trades = append(trades, *tr)
	}

	state := GameState{
		GameID:     s.id,
		Status:     s.status,
		MapType:    s.mapID,
		GameMode:   s.mode,
		HostID:     s.hostID,
		MaxPlayers: s.maxPlayers,
		Players:    players,
		Order:      append([]string(nil), s.order...),
		TurnIndex:  s.turnIndex,
		TurnNumber: s.turnNumber,
		Dice:       s.dice,
		HasRolled:  s.hasRolled,
		Pot:        s.pot,
		TaxDue:     s.taxDue,
		Countdown:  s.countdownLocked(),
		Board:      board,
		Trades:     trades,
		WinnerID:   s.winnerID,
		Logs:       append([]LogItem(nil), s.logs...),
		MyPlayerID: s.byUser[userID],
	}
	if cur := s.currentPlayerLocked(); cur != nil && s.status == StatusActive {
		state.CurrentPlayerID = cur.ID
	}
	if s.auction != nil {
		state.Auction = s.auction.export()
	}
	return state
}

func (s *Session) countdownLocked() int {
	if s.turnDeadline.IsZero() {
		return 0
	}
	diff := time.Until(s.turnDeadline)
	if diff <= 0 {
		return 0
	}
	return int(diff / time.Second)
}

// Snapshot returns the state as seen by userID, for HTTP reads and tests.
func (s *Session) Snapshot(userID int64) GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportStateLocked(userID)
}

// PlayerIDFor maps a user to their in-game player id.
func (s *Session) PlayerIDFor(userID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUser[userID]
	return id, ok
}
