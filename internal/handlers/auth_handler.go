package handlers

import (
	"net/http"
	"time"

	"inventar-backend/internal/config"
	"inventar-backend/internal/middleware"
	"inventar-backend/internal/models"
	"inventar-backend/internal/services"
	"inventar-backend/pkg/utils"

	log "github.com/sirupsen/logrus"
)

type AuthHandler struct {
	Service      *services.UserService
	cookieName   string
	cookieSecure bool
}

func NewAuthHandler(s *services.UserService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Service:      s,
		cookieName:   cfg.JWT.CookieName,
		cookieSecure: cfg.JWT.CookieSecure,
	}
}

// Signup creates the first (admin) account
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	authResp, err := h.Service.Signup(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, authResp.Token)
	utils.JSON(w, http.StatusCreated, authResp)
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	authResp, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		log.WithFields(log.Fields{"component": "auth", "email": req.Email}).Warn("login failed")
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"component": "auth", "user_id": authResp.User.ID}).Info("login")
	h.setSessionCookie(w, authResp.Token)
	utils.JSON(w, http.StatusOK, authResp)
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	user, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	ttl := h.Service.JWTManager.TTL()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
