package poker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger is the durable wallet buy-ins and cash-outs move through. The
// table itself never touches persistence.
type Ledger interface {
	Debit(ctx context.Context, userID int64, amount int64, reason string) error
	Credit(ctx context.Context, userID int64, amount int64, reason string) error
}

type Options struct {
	SmallBlind    int64
	BigBlind      int64
	MaxSeats      int
	ActSeconds    int
	MinBuyInBB    int64
	MaxBuyInBB    int64
	SweepInterval time.Duration
}

// Service owns the live tables and moves money between wallets and stacks.
type Service struct {
	wallet Ledger
	opts   Options
	tables sync.Map // table id -> *Table
}

func NewService(wallet Ledger, opts Options) *Service {
	if opts.SmallBlind <= 0 {
		opts.SmallBlind = 5
	}
	if opts.BigBlind <= 0 {
		opts.BigBlind = opts.SmallBlind * 2
	}
	if opts.MaxSeats <= 0 {
		opts.MaxSeats = 9
	}
	if opts.ActSeconds <= 0 {
		opts.ActSeconds = 30
	}
	if opts.MinBuyInBB <= 0 {
		opts.MinBuyInBB = 40
	}
	if opts.MaxBuyInBB <= 0 {
		opts.MaxBuyInBB = 200
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Second
	}
	return &Service{wallet: wallet, opts: opts}
}

type CreateParams struct {
	Name       string
	SmallBlind int64
	BigBlind   int64
}

type TableSummary struct {
	TableID    string `json:"tableId"`
	Name       string `json:"name"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
	MinBuyIn   int64  `json:"minBuyIn"`
	MaxBuyIn   int64  `json:"maxBuyIn"`
	Seated     int    `json:"seated"`
	MaxSeats   int    `json:"maxSeats"`
	Street     Street `json:"street"`
}

func (s *Service) CreateTable(userID int64, params CreateParams) *Table {
	sb := params.SmallBlind
	if sb <= 0 {
		sb = s.opts.SmallBlind
	}
	bb := params.BigBlind
	if bb <= sb {
		bb = sb * 2
	}
	name := params.Name
	if name == "" {
		name = fmt.Sprintf("Table %d/%d", sb, bb)
	}

	t := newTable(TableOptions{
		ID:         uuid.NewString(),
		Name:       name,
		SmallBlind: sb,
		BigBlind:   bb,
		MinBuyIn:   bb * s.opts.MinBuyInBB,
		MaxBuyIn:   bb * s.opts.MaxBuyInBB,
		MaxSeats:   s.opts.MaxSeats,
		ActSeconds: s.opts.ActSeconds,
	})
	s.tables.Store(t.id, t)
	logger.Log.Info("poker table created",
		zap.String("tableID", t.id),
		zap.Int64("creator", userID),
		zap.Int64("bigBlind", bb),
	)
	return t
}

func (s *Service) Get(id string) (*Table, error) {
	v, ok := s.tables.Load(id)
	if !ok {
		return nil, appErr.ErrTableNotFound
	}
	return v.(*Table), nil
}

func (s *Service) List() []TableSummary {
	var out []TableSummary
	s.tables.Range(func(_, v interface{}) bool {
		t := v.(*Table)
		t.mu.Lock()
		seated := 0
		for _, st := range t.seats {
			if st != nil {
				seated++
			}
		}
		out = append(out, TableSummary{
			TableID:    t.id,
			Name:       t.name,
			SmallBlind: t.smallBlind,
			BigBlind:   t.bigBlind,
			MinBuyIn:   t.minBuyIn,
			MaxBuyIn:   t.maxBuyIn,
			Seated:     seated,
			MaxSeats:   len(t.seats),
			Street:     t.street,
		})
		t.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out
}

// Join debits the buy-in from the wallet and seats the player. The debit is
// rolled back when no seat is free.
func (s *Service) Join(ctx context.Context, tableID string, userID int64, name string, buyIn int64) (*Table, error) {
	t, err := s.Get(tableID)
	if err != nil {
		return nil, err
	}
	if buyIn < t.minBuyIn || buyIn > t.maxBuyIn {
		return nil, appErr.ErrInvalidBuyIn
	}
	if err := s.wallet.Debit(ctx, userID, buyIn, "poker buy-in"); err != nil {
		return nil, err
	}
	if _, err := t.Sit(userID, name, false, buyIn); err != nil {
		if cErr := s.wallet.Credit(ctx, userID, buyIn, "poker buy-in refund"); cErr != nil {
			logger.Log.Error("buy-in refund failed",
				zap.Int64("userID", userID), zap.Error(cErr))
		}
		return nil, err
	}
	return t, nil
}

// Leave stands the player up and credits their stack back to the wallet.
func (s *Service) Leave(ctx context.Context, tableID string, userID int64) (int64, error) {
	t, err := s.Get(tableID)
	if err != nil {
		return 0, err
	}
	chips, err := t.Stand(userID)
	if err != nil {
		return 0, err
	}
	if chips > 0 {
		if err := s.wallet.Credit(ctx, userID, chips, "poker cash-out"); err != nil {
			logger.Log.Error("cash-out credit failed",
				zap.Int64("userID", userID), zap.Int64("chips", chips), zap.Error(err))
			return chips, err
		}
	}
	return chips, nil
}

// AddBot seats a house bot with a full buy-in. Bots play on house money and
// never touch the wallet.
func (s *Service) AddBot(tableID string, userID int64) error {
	t, err := s.Get(tableID)
	if err != nil {
		return err
	}
	if _, ok := t.userSeated(userID); !ok {
		return appErr.ErrUnauthorized
	}
	name := fmt.Sprintf("Bot %s", uuid.NewString()[:4])
	_, err = t.Sit(0, name, true, t.maxBuyIn)
	return err
}

// RemoveBot stands up one bot at the table.
func (s *Service) RemoveBot(tableID string, userID int64) error {
	t, err := s.Get(tableID)
	if err != nil {
		return err
	}
	if _, ok := t.userSeated(userID); !ok {
		return appErr.ErrUnauthorized
	}
	return t.RemoveBot()
}

// Start launches the sweep ticker, stopping on ctx cancellation.
func (s *Service) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.opts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sweep(ctx, now)
			}
		}
	}()
}

func (s *Service) sweep(ctx context.Context, now time.Time) {
	s.tables.Range(func(key, v interface{}) bool {
		t := v.(*Table)
		for _, ej := range t.Sweep(now) {
			if ej.IsBot || ej.Chips <= 0 {
				continue
			}
			if err := s.wallet.Credit(ctx, ej.UserID, ej.Chips, "poker eject refund"); err != nil {
				logger.Log.Error("eject refund failed",
					zap.Int64("userID", ej.UserID), zap.Int64("chips", ej.Chips), zap.Error(err))
			} else {
				logger.Log.Info("poker seat ejected",
					zap.String("tableID", t.id),
					zap.String("seat", ej.Name),
					zap.Int64("refund", ej.Chips),
				)
			}
		}
		// A table that has played and emptied out is gone for good.
		if t.Abandoned() {
			s.tables.Delete(key)
		}
		return true
	})
}
