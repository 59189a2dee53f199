package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/wanderhappen/wanderchat/internal/chat"
)

// Handler serves the REST surface (register, auth, logout) and upgrades
// websocket connections into hub clients. The session store is shared with
// the hub so a token issued over REST authenticates realtime actions.
type Handler struct {
	hub      *Hub
	sessions *chat.SessionStore
	cfg      Config
	origins  *originPolicy
	upgrader websocket.Upgrader
	validate *validator.Validate
	log      *slog.Logger
}

// NewHandler wires the REST and websocket handlers to the given hub, session
// store, and configuration.
func NewHandler(hub *Hub, sessions *chat.SessionStore, cfg Config, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}

	origins := newOriginPolicy(cfg.AllowedOrigins, log)
	return &Handler{
		hub:      hub,
		sessions: sessions,
		cfg:      cfg,
		origins:  origins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		validate: validator.New(),
		log:      log,
	}
}

type registerRequest struct {
	Name string `json:"name" validate:"required"`
}

type authResponse struct {
	Message string    `json:"message"`
	User    chat.User `json:"user"`
	Token   string    `json:"token"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Register creates a user, issues a session token, and sets it as a
// long-lived cookie so the client stays signed in across page loads.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "name is required"})
		return
	}

	user, token, err := h.sessions.Register(req.Name)
	if err != nil {
		if errors.Is(err, chat.ErrValidation) {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "name is required"})
			return
		}
		h.log.Error("register failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "registration failed"})
		return
	}

	h.setTokenCookie(w, token)
	h.writeJSON(w, http.StatusCreated, authResponse{
		Message: "registration successful",
		User:    user,
		Token:   token,
	})
}

// Auth checks the token cookie against the session store so a returning
// client can resume its identity without registering again.
func (h *Handler) Auth(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cfg.TokenCookieName)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "not authenticated"})
		return
	}

	user, err := h.sessions.Authenticate(cookie.Value)
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "not authenticated"})
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{
		Message: "authenticated",
		User:    user,
		Token:   cookie.Value,
	})
}

// Logout invalidates the session and clears the cookie. The invalidated
// token no longer authenticates, over REST or realtime.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cfg.TokenCookieName); err == nil {
		h.sessions.Invalidate(cookie.Value)
	}

	h.clearTokenCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// WebSocket upgrades the connection and hands it to the hub, which starts
// the pumps and announces the new presence count.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr, h.cfg)

	select {
	case h.hub.register <- client:
	case <-h.hub.ctx.Done():
		_ = conn.Close()
	}
}

// Health is a plain liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("wanderchat server is running"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("error writing response body", "error", err)
	}
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
