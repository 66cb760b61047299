package board

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"monopolyx-service/internal/catalog"
	"monopolyx-service/internal/model"
	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lobbyKey       = "mpx:lobby:games"
	timeoutGrace   = 5 * time.Second
	finishedRetain = 5 * time.Minute
)

func newID() string { return uuid.NewString() }

type Options struct {
	TurnSeconds   int
	SweepInterval time.Duration
}

// Service owns the live board game sessions. The redis lobby index mirrors
// the joinable ones for the HTTP list endpoint.
type Service struct {
	db   *gorm.DB
	rdb  *redis.Client
	cat  *catalog.Catalog
	opts Options

	sessions sync.Map // gameID -> *Session
}

func NewService(db *gorm.DB, rdb *redis.Client, cat *catalog.Catalog, opts Options) *Service {
	if opts.TurnSeconds <= 0 {
		opts.TurnSeconds = 90
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Second
	}
	return &Service{db: db, rdb: rdb, cat: cat, opts: opts}
}

type CreateParams struct {
	MapID         string
	Mode          string
	MaxPlayers    int
	StartingMoney int64
	HostName      string
	HostAvatar    string
	Character     string
}

// GameSummary is the lobby view of a joinable session.
type GameSummary struct {
	GameID     string `json:"gameId"`
	MapType    string `json:"mapType"`
	GameMode   string `json:"gameMode"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	CreatedAt  int64  `json:"createdAt"`
}

// CreateGame opens a new session with the host already seated.
func (s *Service) CreateGame(ctx context.Context, hostID int64, params CreateParams) (*Session, error) {
	if params.MapID == "" {
		params.MapID = "World"
	}
	sess, err := newSession(s.cat, SessionOptions{
		ID:            newID(),
		HostID:        hostID,
		MapID:         params.MapID,
		Mode:          params.Mode,
		MaxPlayers:    params.MaxPlayers,
		StartingMoney: params.StartingMoney,
		TurnSeconds:   s.opts.TurnSeconds,
	}, s.handleFinish)
	if err != nil {
		return nil, err
	}
	if _, err := sess.AddPlayer(hostID, params.HostName, params.HostAvatar, params.Character); err != nil {
		return nil, err
	}

	s.sessions.Store(sess.ID(), sess)
	s.publishLobbyEntry(ctx, sess)
	logger.Log.Info("board game created",
		zap.String("gameID", sess.ID()),
		zap.Int64("hostID", hostID),
		zap.String("map", params.MapID),
	)
	return sess, nil
}

// Get returns a live session by id.
func (s *Service) Get(gameID string) (*Session, error) {
	if v, ok := s.sessions.Load(gameID); ok {
		return v.(*Session), nil
	}
	return nil, appErr.ErrGameNotFound
}

// Join seats a user in a waiting session.
func (s *Service) Join(ctx context.Context, gameID string, userID int64, name, avatar, character string) (*Session, error) {
	sess, err := s.Get(gameID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.AddPlayer(userID, name, avatar, character); err != nil {
		return nil, err
	}
	s.publishLobbyEntry(ctx, sess)
	return sess, nil
}

// AddBot lets the host add a bot to a waiting session.
func (s *Service) AddBot(ctx context.Context, gameID string, userID int64) (*Session, error) {
	sess, err := s.Get(gameID)
	if err != nil {
		return nil, err
	}
	if sess.hostID != userID {
		return nil, appErr.ErrNotHost
	}
	if _, err := sess.AddBot(""); err != nil {
		return nil, err
	}
	s.publishLobbyEntry(ctx, sess)
	return sess, nil
}

// StartGame begins the game and drops it from the lobby index.
func (s *Service) StartGame(ctx context.Context, gameID string, userID int64) error {
	sess, err := s.Get(gameID)
	if err != nil {
		return err
	}
	if err := sess.Start(userID); err != nil {
		return err
	}
	s.removeLobbyEntry(ctx, gameID)
	return nil
}

// ListOpen returns the joinable sessions from the redis index.
func (s *Service) ListOpen(ctx context.Context) ([]GameSummary, error) {
	raw, err := s.rdb.HGetAll(ctx, lobbyKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]GameSummary, 0, len(raw))
	for id, blob := range raw {
		var sum GameSummary
		if err := json.Unmarshal([]byte(blob), &sum); err != nil {
			continue
		}
		// The index can lag eviction; drop stale rows as we see them.
		if _, ok := s.sessions.Load(id); !ok {
			s.rdb.HDel(ctx, lobbyKey, id)
			continue
		}
		out = append(out, sum)
	}
	return out, nil
}

// UserGames lists the live sessions a user is seated in.
func (s *Service) UserGames(userID int64) []GameState {
	var out []GameState
	s.sessions.Range(func(_, v any) bool {
		sess := v.(*Session)
		if _, ok := sess.PlayerIDFor(userID); ok {
			out = append(out, sess.Snapshot(userID))
		}
		return true
	})
	return out
}

func (s *Service) publishLobbyEntry(ctx context.Context, sess *Session) {
	state := sess.Snapshot(0)
	if state.Status != StatusWaiting {
		return
	}
	sum := GameSummary{
		GameID:     state.GameID,
		MapType:    state.MapType,
		GameMode:   state.GameMode,
		Players:    len(state.Players),
		MaxPlayers: state.MaxPlayers,
		CreatedAt:  sess.createdAt.Unix(),
	}
	blob, _ := json.Marshal(sum)
	if err := s.rdb.HSet(ctx, lobbyKey, state.GameID, blob).Err(); err != nil {
		logger.Log.Warn("lobby index update failed", zap.Error(err))
	}
}

func (s *Service) removeLobbyEntry(ctx context.Context, gameID string) {
	if err := s.rdb.HDel(ctx, lobbyKey, gameID).Err(); err != nil {
		logger.Log.Warn("lobby index removal failed", zap.Error(err))
	}
}

func (s *Service) handleFinish(sess *Session) {
	state := sess.Snapshot(0)
	winnerName := ""
	for _, p := range state.Players {
		if p.ID == state.WinnerID {
			winnerName = p.Name
		}
	}
	record := model.GameRecord{
		GameID:     state.GameID,
		MapType:    state.MapType,
		GameMode:   state.GameMode,
		WinnerID:   state.WinnerID,
		WinnerName: winnerName,
		Turns:      state.TurnNumber,
		Players:    len(state.Players),
		FinishedAt: time.Now(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		logger.Log.Error("failed to persist game record",
			zap.String("gameID", state.GameID), zap.Error(err))
	}
	s.removeLobbyEntry(context.Background(), state.GameID)
	logger.Log.Info("board game finished",
		zap.String("gameID", state.GameID),
		zap.String("winner", winnerName),
		zap.Int("turns", state.TurnNumber),
	)
}

// Start launches the timeout sweeper until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.opts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Service) sweep(ctx context.Context) {
	now := time.Now()
	s.sessions.Range(func(k, v any) bool {
		sess := v.(*Session)
		sess.SweepTimeout(timeoutGrace)

		sess.mu.Lock()
		evict := sess.status == StatusFinished && !sess.finishedAt.IsZero() &&
			now.Sub(sess.finishedAt) > finishedRetain
		sess.mu.Unlock()
		if evict {
			s.sessions.Delete(k)
			s.removeLobbyEntry(ctx, sess.ID())
		}
		return true
	})
}
