package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pinky-promise-api/internal/domain"
	authsvc "pinky-promise-api/internal/service/auth"
	"pinky-promise-api/internal/transport/http/middleware"
	resp "pinky-promise-api/internal/transport/http/response"
)

// Request/response schemas are explicit and decoupled from the service
// signatures; the captcha token rides along but is consumed by the gate.

type registerReq struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken"`
}

type loginReq struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthHandler struct {
	svc   *authsvc.Service
	users domain.UserRepository
	log   *zap.Logger
}

func NewAuthHandler(svc *authsvc.Service, users domain.UserRepository, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, users: users, log: log}
}

// Register handles POST /api/auth/register. 201 with the public user on
// success; no tokens are issued here.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Err(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.svc.Register(req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login handles POST /api/auth/login, returning the access/refresh pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Err(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	pair, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh handles POST /api/auth/refresh, returning a fresh access token.
// The refresh token is never rotated.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Err(c, http.StatusUnauthorized, "Refresh token required")
		return
	}
	access, err := h.svc.Refresh(req.RefreshToken)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access})
}

// Me handles GET /api/auth/me behind the access-token guard.
func (h *AuthHandler) Me(c *gin.Context) {
	uid := c.GetString(middleware.KeyUserID)
	u, err := h.users.FindByID(uid)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if u == nil {
		resp.Err(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Public()})
}

// writeError maps service failures onto the wire. Expected failures become
// client errors with their own short message; anything else is logged in
// full and answered generically.
func (h *AuthHandler) writeError(c *gin.Context, err error) {
	var ve *authsvc.ValidationError
	switch {
	case errors.As(err, &ve):
		resp.Err(c, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, domain.ErrEmailTaken):
		resp.Err(c, http.StatusBadRequest, "Email already in use")
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		resp.Err(c, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, authsvc.ErrMissingToken):
		resp.Err(c, http.StatusUnauthorized, "Refresh token required")
	case errors.Is(err, authsvc.ErrInvalidRefreshToken):
		resp.Err(c, http.StatusUnauthorized, "Invalid refresh token")
	default:
		h.log.Error("auth request failed",
			zap.String("rid", c.GetString(middleware.KeyRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		resp.Err(c, http.StatusInternalServerError, "Server error")
	}
}
