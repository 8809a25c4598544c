package api

import (
	"errors"
	"net/http"
	"strconv"

	"blackjack-service/internal/middleware"
	"blackjack-service/internal/service"
	usersvc "blackjack-service/internal/service/user"
	"blackjack-service/internal/ws"
	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Room, services.Game, services.User, services.Wallet)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/blackjack/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", handler.Register)
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
			walletGroup.POST("/bonus", handler.ClaimDailyBonus)
		}

		v1.GET("/leaderboard", handler.GetLeaderboard)

		roomGroup := v1.Group("/rooms")
		roomGroup.Use(middleware.AuthRequired())
		{
			roomGroup.POST("", handler.CreateRoom)
			roomGroup.GET("/:code", handler.GetRoom)
			roomGroup.DELETE("/:code", handler.CloseRoom)
		}
	}

	r.GET("/ws/room/:code", wsHandler.HandleRoomWS)
}

type credentialsBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.Register(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidCredentials):
			status = http.StatusBadRequest
		case errors.Is(err, appErr.ErrUsernameTaken):
			status = http.StatusConflict
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidCredentials):
			status = http.StatusUnauthorized
		case errors.Is(err, appErr.ErrTooManyAttempts):
			status = http.StatusTooManyRequests
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

	var body usersvc.UpdateProfileInput
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.services.User.UpdateProfile(c.Request.Context(), userID, body)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, profile)
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
	response.Success(c, wallet)
}

func (h *Handler) GetWalletHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, err := parsePositiveIntQuery(c, "limit", 50)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	logs, err := h.services.Wallet.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"items": logs})
}

func (h *Handler) ClaimDailyBonus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	wallet, err := h.services.Wallet.ClaimDailyBonus(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrBonusNotReady):
			status = http.StatusConflict
		case errors.Is(err, appErr.ErrUserNotFound):
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}
	response.SuccessWithMsg(c, wallet, "bonus claimed")
}

func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, err := parsePositiveIntQuery(c, "limit", 10)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.services.Leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"items": entries})
}

func (h *Handler) CreateRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	room, err := h.services.Room.Create(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{
		"id":   strconv.FormatInt(room.ID, 10),
		"code": room.Code,
	})
}

func (h *Handler) GetRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	room, err := h.services.Room.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrRoomNotFound):
			status = http.StatusNotFound
		case errors.Is(err, appErr.ErrRoomClosed):
			status = http.StatusGone
		}
		response.Error(c, status, err.Error())
		return
	}

	rt, err := h.services.Game.Runtime(room.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, rt.Snapshot(userID))
}

func (h *Handler) CloseRoom(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	room, err := h.services.Room.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrRoomNotFound):
			status = http.StatusNotFound
		case errors.Is(err, appErr.ErrRoomClosed):
			status = http.StatusGone
		}
		response.Error(c, status, err.Error())
		return
	}

	if err := h.services.Room.Close(c.Request.Context(), room.ID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, appErr.ErrRoomAccessDenied) {
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}
	h.services.Game.Drop(room.ID)
	response.SuccessWithMsg(c, gin.H{}, "room closed")
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}

func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
