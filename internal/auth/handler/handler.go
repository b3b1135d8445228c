package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qvdang/stockledger/internal/auth"
	"github.com/qvdang/stockledger/internal/model"
	"go.uber.org/zap"
)

// Handler exposes authentication and account management endpoints.
type Handler struct {
	users    *auth.UserStore
	tokens   *auth.TokenManager
	loginLog *auth.LoginLog
	logger   *zap.Logger
}

func New(users *auth.UserStore, tokens *auth.TokenManager, loginLog *auth.LoginLog, logger *zap.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, loginLog: loginLog, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials, records the attempt and returns a signed token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}
	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		h.record(c, req.Username, auth.EventLoginFailure)
		if model.IsValidation(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	token, err := h.tokens.Issue(user.Username, user.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	h.record(c, user.Username, auth.EventLoginSuccess)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// ListUsers returns every account without password hashes.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUser registers a new account.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}
	user, err := h.users.Create(req.Username, req.Password, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// SetPassword replaces the password of an account.
func (h *Handler) SetPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password is required"})
		return
	}
	if err := h.users.SetPassword(c.Param("username"), req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// DeleteUser removes an account.
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// LoginLogs returns recent authentication events.
func (h *Handler) LoginLogs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, ok := model.ParseQuantity(raw); ok && parsed > 0 {
			limit = parsed
		}
	}
	entries, err := h.loginLog.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

func (h *Handler) record(c *gin.Context, username, event string) {
	err := h.loginLog.Record(c.Request.Context(), auth.LoginLogEntry{
		Username:  username,
		Event:     event,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.logger.Error("failed to record login event", zap.Error(err))
	}
}

func respondError(c *gin.Context, err error) {
	switch {
	case model.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case model.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
