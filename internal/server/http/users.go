package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/service"
	"github.com/and161185/maru-site/internal/token"
)

// UserHandler serves login, logout and account routes.
type UserHandler struct {
	auth     service.AuthService
	validate *validator.Validate
	log      *zap.Logger
	ttl      time.Duration
	secure   bool
}

// NewUserHandler creates a user handler. ttl is the cookie lifetime.
func NewUserHandler(auth service.AuthService, ttl time.Duration, secure bool, log *zap.Logger) *UserHandler {
	return &UserHandler{auth: auth, validate: validator.New(), log: log, ttl: ttl, secure: secure}
}

// Routes returns a chi router with user routes.
func (h *UserHandler) Routes(requireSession func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/verify-token", h.VerifyToken)
	r.Post("/register", h.Register)
	r.With(requireSession).Delete("/{id}", h.Delete)
	return r
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=2,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

type userResponse struct {
	ID       *uuid.UUID `json:"id,omitempty"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
}

type sessionUser struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
}

type verifyResponse struct {
	IsValid bool         `json:"isValid"`
	User    *sessionUser `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Login handles POST /user/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		// An unknown user is reported like any other failed login.
		if errs.KindOf(err) == errs.KindNotFound {
			writeJSON(w, http.StatusUnauthorized, errorBody{Message: "user not found"})
			return
		}
		writeError(w, r, h.log, err)
		return
	}

	http.SetCookie(w, token.Cookie(sess.Token, h.ttl, h.secure))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"user":    userResponse{Username: sess.User.Username, Email: sess.User.Email},
	})
}

// Logout handles POST /user/logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := token.FromRequest(r)
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "no active session"})
		return
	}
	if err := h.auth.Logout(r.Context(), raw); err != nil {
		h.log.Warn("logout", zap.Error(err))
	}
	http.SetCookie(w, token.ClearCookie(h.secure))
	writeJSON(w, http.StatusOK, messageBody{Message: "logged out"})
}

// VerifyToken handles GET /user/verify-token. It goes through the idle
// check, so a successful call also keeps the session alive.
func (h *UserHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.Authenticate(r.Context(), token.FromRequest(r))
	if err != nil {
		if errors.Is(err, errs.ErrSessionExpired) {
			http.SetCookie(w, token.ClearCookie(h.secure))
		}
		status := statusOf(errs.KindOf(err))
		if status == http.StatusUnauthorized {
			writeJSON(w, status, verifyResponse{Message: errMessage(err)})
			return
		}
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		IsValid: true,
		User:    &sessionUser{UserID: u.ID, Username: u.Username},
	})
}

// Register handles POST /user/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	u, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered",
		"user":    userResponse{ID: &u.ID, Username: u.Username, Email: u.Email},
	})
}

// Delete handles DELETE /user/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.auth.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "user deleted"})
}
