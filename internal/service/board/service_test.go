package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"monopolyx-service/internal/model"
	appErr "monopolyx-service/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.GameRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return NewService(db, rdb, testCatalog(t), Options{TurnSeconds: 90})
}

func TestCreateAndListGames(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.CreateGame(ctx, 1, CreateParams{MapID: "Ukraine", HostName: "Alice"})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	st := sess.Snapshot(1)
	if st.MapType != "Ukraine" || len(st.Players) != 1 || st.Players[0].Name != "Alice" {
		t.Fatalf("unexpected state: %+v", st)
	}

	open, err := svc.ListOpen(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].GameID != sess.ID() {
		t.Fatalf("lobby = %+v", open)
	}
}

func TestJoinAndStartDropsLobbyEntry(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.CreateGame(ctx, 1, CreateParams{HostName: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, sess.ID(), 2, "Bob", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, "nope", 3, "Carol", "", ""); !errors.Is(err, appErr.ErrGameNotFound) {
		t.Fatalf("missing game err = %v", err)
	}

	if err := svc.StartGame(ctx, sess.ID(), 2); !errors.Is(err, appErr.ErrNotHost) {
		t.Fatalf("non-host start err = %v", err)
	}
	if err := svc.StartGame(ctx, sess.ID(), 1); err != nil {
		t.Fatal(err)
	}

	open, err := svc.ListOpen(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Fatalf("started game still listed: %+v", open)
	}
}

func TestAddBotHostOnly(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.CreateGame(ctx, 1, CreateParams{HostName: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddBot(ctx, sess.ID(), 2); !errors.Is(err, appErr.ErrNotHost) {
		t.Fatalf("stranger bot err = %v", err)
	}
	if _, err := svc.AddBot(ctx, sess.ID(), 1); err != nil {
		t.Fatal(err)
	}
	if got := len(sess.Snapshot(1).Players); got != 2 {
		t.Fatalf("players = %d", got)
	}
}

func TestFinishWritesGameRecord(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.CreateGame(ctx, 1, CreateParams{HostName: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, sess.ID(), 2, "Bob", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartGame(ctx, sess.ID(), 1); err != nil {
		t.Fatal(err)
	}

	bobID, _ := sess.PlayerIDFor(2)
	if err := sess.Surrender(bobID); err != nil {
		t.Fatal(err)
	}

	// The record is written from the finish callback goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int64
		svc.db.Model(&model.GameRecord{}).Where("game_id = ?", sess.ID()).Count(&count)
		if count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("game record not persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var rec model.GameRecord
	if err := svc.db.Where("game_id = ?", sess.ID()).First(&rec).Error; err != nil {
		t.Fatal(err)
	}
	aliceID, _ := sess.PlayerIDFor(1)
	if rec.WinnerID != aliceID || rec.WinnerName != "Alice" || rec.Players != 2 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestUserGames(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	s1, _ := svc.CreateGame(ctx, 1, CreateParams{HostName: "Alice"})
	_, _ = svc.CreateGame(ctx, 2, CreateParams{HostName: "Bob"})

	games := svc.UserGames(1)
	if len(games) != 1 || games[0].GameID != s1.ID() {
		t.Fatalf("user games = %+v", games)
	}
}
