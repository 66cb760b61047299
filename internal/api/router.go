package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"monopolyx-service/internal/middleware"
	"monopolyx-service/internal/service"
	"monopolyx-service/internal/service/board"
	pokerSvc "monopolyx-service/internal/service/poker"
	usersvc "monopolyx-service/internal/service/user"
	"monopolyx-service/internal/ws"
	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Board, services.Poker)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/mpx/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/code", handler.SendLoginCode)
			authGroup.POST("/login", handler.Login)
		}

		userGroup := v1.Group("/user")
		userGroup.Use(middleware.AuthRequired())
		{
			userGroup.GET("/profile", handler.GetProfile)
			userGroup.PUT("/profile", handler.UpdateProfile)
		}

		walletGroup := v1.Group("/wallet")
		walletGroup.Use(middleware.AuthRequired())
		{
			walletGroup.GET("", handler.GetWallet)
			walletGroup.GET("/history", handler.GetWalletHistory)
		}

		gameGroup := v1.Group("/games")
		gameGroup.Use(middleware.AuthRequired())
		{
			gameGroup.POST("", handler.CreateGame)
			gameGroup.GET("", handler.ListGames)
			gameGroup.GET("/mine", handler.MyGames)
			gameGroup.GET("/:id", handler.GetGame)
			gameGroup.POST("/:id/join", handler.JoinGame)
			gameGroup.POST("/:id/bots", handler.AddGameBot)
			gameGroup.POST("/:id/start", handler.StartGame)
		}

		tableGroup := v1.Group("/tables")
		tableGroup.Use(middleware.AuthRequired())
		{
			tableGroup.GET("", handler.ListTables)
			tableGroup.POST("", handler.CreateTable)
			tableGroup.GET("/:id", handler.GetTable)
			tableGroup.POST("/:id/join", handler.JoinTable)
			tableGroup.POST("/:id/leave", handler.LeaveTable)
			tableGroup.POST("/:id/bots", handler.AddTableBot)
			tableGroup.DELETE("/:id/bots", handler.RemoveTableBot)
		}
	}

	r.GET("/ws/game/:gameId", wsHandler.HandleGameWS)
	r.GET("/ws/table/:tableId", wsHandler.HandleTableWS)
}

type sendCodeBody struct {
	Handle string `json:"handle" binding:"required"`
}

type loginBody struct {
	Handle string `json:"handle" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

type updateProfileBody struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

type createGameBody struct {
	MapType       string `json:"mapType"`
	GameMode      string `json:"gameMode"`
	MaxPlayers    int    `json:"maxPlayers"`
	StartingMoney int64  `json:"startingMoney"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar"`
	Character     string `json:"character"`
}

type joinGameBody struct {
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Character string `json:"character"`
}

type createTableBody struct {
	Name       string `json:"name"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
}

type joinTableBody struct {
	BuyIn int64 `json:"buyIn" binding:"required,min=1"`
}

func (h *Handler) SendLoginCode(c *gin.Context) {
	var body sendCodeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.services.Auth.SendCode(c.Request.Context(), body.Handle); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "code sent")
}

func (h *Handler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.Login(c.Request.Context(), body.Handle, body.Code)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidHandle), errors.Is(err, appErr.ErrInvalidLoginCode):
			status = http.StatusBadRequest
		case errors.Is(err, appErr.ErrLoginCodeExpired):
			status = http.StatusGone
		case errors.Is(err, appErr.ErrUserBanned):
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.services.User.GetProfile(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.services.User.UpdateProfile(c.Request.Context(), userID, usersvc.UpdateProfileRequest{
		Nickname: body.Nickname,
		Avatar:   body.Avatar,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, updated)
}

func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.services.Wallet.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"wallet": wallet})
}

func (h *Handler) GetWalletHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	logs, err := h.services.Wallet.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"items": logs})
}

func (h *Handler) CreateGame(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body createGameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.Name == "" {
		body.Name = h.displayName(c, userID)
	}

	sess, err := h.services.Board.CreateGame(c.Request.Context(), userID, board.CreateParams{
		MapID:         body.MapType,
		Mode:          body.GameMode,
		MaxPlayers:    body.MaxPlayers,
		StartingMoney: body.StartingMoney,
		HostName:      body.Name,
		HostAvatar:    body.Avatar,
		Character:     body.Character,
	})
	if err != nil {
		h.handleEngineError(c, err)
		return
	}

	response.Success(c, sess.Snapshot(userID))
}

func (h *Handler) ListGames(c *gin.Context) {
	games, err := h.services.Board.ListOpen(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"games": games})
}

func (h *Handler) MyGames(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	response.Success(c, gin.H{"games": h.services.Board.UserGames(userID)})
}

func (h *Handler) GetGame(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.services.Board.Get(c.Param("id"))
	if err != nil {
		h.handleEngineError(c, err)
		return
	}
	response.Success(c, sess.Snapshot(userID))
}

func (h *Handler) JoinGame(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body joinGameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.Name == "" {
		body.Name = h.displayName(c, userID)
	}

	sess, err := h.services.Board.Join(c.Request.Context(), c.Param("id"), userID, body.Name, body.Avatar, body.Character)
	if err != nil {
		h.handleEngineError(c, err)
		return
	}
	response.Success(c, sess.Snapshot(userID))
}

func (h *Handler) AddGameBot(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.services.Board.AddBot(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleEngineError(c, err)
		return
	}
	response.Success(c, sess.Snapshot(userID))
}

func (h *Handler) StartGame(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.services.Board.StartGame(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.handleEngineError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "game started")
}

func (h *Handler) ListTables(c *gin.Context) {
	response.Success(c, gin.H{"tables": h.services.Poker.List()})
}

func (h *Handler) CreateTable(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body createTableBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	tbl := h.services.Poker.CreateTable(userID, pokerSvc.CreateParams{
		Name:       body.Name,
		SmallBlind: body.SmallBlind,
		BigBlind:   body.BigBlind,
	})
	response.Success(c, tbl.Snapshot(userID))
}

func (h *Handler) GetTable(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	tbl, err := h.services.Poker.Get(c.Param("id"))
	if err != nil {
		h.handleEngineError(c, err)
		return
	}
	response.Success(c, tbl.Snapshot(userID))
}

func (h *Handler) JoinTable(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body joinTableBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	tbl, err := h.services.Poker.Join(c.Request.Context(), c.Param("id"), userID, h.displayName(c, userID), body.BuyIn)
	if err != nil {
		h.handleEngineError(c, err)
		return
	}
	response.Success(c, tbl.Snapshot(userID))
}

func (h *Handler) LeaveTable(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	chips, err := h.services.Poker.Leave(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleEngineError(c, err)
		return
	}
	response.Success(c, gin.H{"cashedOut": chips})
}

func (h *Handler) AddTableBot(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.services.Poker.AddBot(c.Param("id"), userID); err != nil {
		h.handleEngineError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "bot added")
}

func (h *Handler) RemoveTableBot(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.services.Poker.RemoveBot(c.Param("id"), userID); err != nil {
		h.handleEngineError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "bot removed")
}

// displayName resolves the caller's nickname for seat labels; profile
// lookups must not block joining, so failures fall back to a placeholder.
func (h *Handler) displayName(c *gin.Context, userID int64) string {
	profile, err := h.services.User.GetProfile(c.Request.Context(), userID)
	if err != nil || profile.Nickname == "" {
		return fmt.Sprintf("Player %d", userID)
	}
	return profile.Nickname
}

func (h *Handler) handleEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrGameNotFound), errors.Is(err, appErr.ErrTableNotFound), errors.Is(err, appErr.ErrUnknownMap):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrUnauthorized), errors.Is(err, appErr.ErrNotHost):
		response.Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, appErr.ErrGameFull), errors.Is(err, appErr.ErrTableFull),
		errors.Is(err, appErr.ErrAlreadySeated), errors.Is(err, appErr.ErrGameStarted),
		errors.Is(err, appErr.ErrAlreadyResolved):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErr.ErrInvalidBuyIn), errors.Is(err, appErr.ErrInvalidAmount),
		errors.Is(err, appErr.ErrInsufficientBalance), errors.Is(err, appErr.ErrInsufficientFunds),
		errors.Is(err, appErr.ErrNotEnoughSeats), errors.Is(err, appErr.ErrNotYourTurn),
		errors.Is(err, appErr.ErrInvalidTarget), errors.Is(err, appErr.ErrIllegalAction):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
