package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"monopolyx-service/internal/service/board"
	"monopolyx-service/internal/service/poker"
	pkgAuth "monopolyx-service/pkg/auth"
	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	boardSvc *board.Service
	pokerSvc *poker.Service
}

func NewHandler(boardSvc *board.Service, pokerSvc *poker.Service) *Handler {
	return &Handler{boardSvc: boardSvc, pokerSvc: pokerSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

func (h *Handler) HandleGameWS(c *gin.Context) {
	userID, ok := authenticate(c)
	if !ok {
		return
	}
	gameID := c.Param("gameId")
	sess, err := h.boardSvc.Get(gameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}
	logger.Log.Info("New WebSocket connection",
		zap.String("gameID", gameID),
		zap.Int64("userID", userID),
	)
	runClient(conn, userID, gameID,
		sess.Subscribe(userID),
		func() { sess.Unsubscribe(userID) },
		sess.HandleAction,
	)
}

func (h *Handler) HandleTableWS(c *gin.Context) {
	userID, ok := authenticate(c)
	if !ok {
		return
	}
	tableID := c.Param("tableId")
	tbl, err := h.pokerSvc.Get(tableID)
	if err != nil {
		if errors.Is(err, appErr.ErrTableNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load table"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}
	logger.Log.Info("New WebSocket connection",
		zap.String("tableID", tableID),
		zap.Int64("userID", userID),
	)
	runClient(conn, userID, tableID,
		tbl.Subscribe(userID),
		func() { tbl.Unsubscribe(userID) },
		tbl.HandleAction,
	)
}

func authenticate(c *gin.Context) (int64, bool) {
	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return 0, false
	}
	claims, err := pkgAuth.ParseUserToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return 0, false
	}
	return claims.SubjectID, true
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing token")
}

// client pumps one websocket connection against a session runtime. The
// outbound channel type differs per engine, hence the type parameter.
type client[T any] struct {
	conn        *websocket.Conn
	userID      int64
	sessionID   string
	outbound    <-chan T
	unsubscribe func()
	handle      func(int64, string, json.RawMessage) error
	done        chan struct{}
	pingEvery   time.Duration
}

func runClient[T any](
	conn *websocket.Conn,
	userID int64,
	sessionID string,
	outbound <-chan T,
	unsubscribe func(),
	handle func(int64, string, json.RawMessage) error,
) {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	c := &client[T]{
		conn:        conn,
		userID:      userID,
		sessionID:   sessionID,
		outbound:    outbound,
		unsubscribe: unsubscribe,
		handle:      handle,
		done:        make(chan struct{}),
		pingEvery:   25 * time.Second,
	}
	go c.writePump()
	c.readPump()
}

func (c *client[T]) readPump() {
	defer func() {
		close(c.done)
		c.unsubscribe()
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err),
				zap.Int64("userID", c.userID), zap.String("sessionID", c.sessionID))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.safeWrite(gin.H{"type": "error", "data": gin.H{"message": "invalid payload"}})
			continue
		}
		if incoming.Type == "" {
			continue
		}

		if err := c.handle(c.userID, incoming.Type, incoming.Data); err != nil {
			c.safeWrite(gin.H{"type": "error", "data": gin.H{"message": fmt.Sprintf("action failed: %v", err)}})
		}
	}
}

func (c *client[T]) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err),
					zap.Int64("userID", c.userID), zap.String("sessionID", c.sessionID))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client[T]) safeWrite(msg interface{}) {
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Log.Info("WS write error", zap.Error(err),
			zap.Int64("userID", c.userID), zap.String("sessionID", c.sessionID))
	}
}
