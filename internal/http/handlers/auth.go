package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/sales-dashboard-be/internal/auth"
	"github.com/hongminglow/sales-dashboard-be/internal/http/respond"
	"github.com/hongminglow/sales-dashboard-be/internal/logging"
	"github.com/hongminglow/sales-dashboard-be/internal/models"
	"github.com/hongminglow/sales-dashboard-be/internal/models/dto"
	"github.com/hongminglow/sales-dashboard-be/internal/storage"
)

const (
	msgFieldsRequired     = "All fields required"
	msgEmailInUse         = "Email already in use"
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Invalid token"
	msgServerError        = "Server error"
)

// AuthHandler owns register/login/me backed by the user store.
type AuthHandler struct {
	store      storage.UserStore
	tokens     *auth.TokenManager
	bcryptCost int
	log        logging.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.UserStore, tokens *auth.TokenManager, bcryptCost int, log logging.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, bcryptCost: bcryptCost, log: log}
}

// Register attaches the public auth routes.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

// RegisterProtected attaches routes that sit behind the bearer middleware.
func (h *AuthHandler) RegisterProtected(r chi.Router) {
	r.Get("/me", h.handleMe)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, msgFieldsRequired)
		return
	}
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, msgFieldsRequired)
		return
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		h.serverError(w, r, "hash password", err)
		return
	}
	created, err := h.store.CreateUser(r.Context(), models.User{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusBadRequest, msgEmailInUse)
			return
		}
		h.serverError(w, r, "create user", err)
		return
	}

	h.issue(w, r, created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	user, err := h.store.FindByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		h.serverError(w, r, "find user", err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	h.issue(w, r, user)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}
	user, err := h.store.FindByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		h.serverError(w, r, "find user", err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, user models.User) {
	token, err := h.tokens.Generate(user)
	if err != nil {
		h.serverError(w, r, "sign token", err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.AuthResponse{Token: token, User: dto.NewUserResponse(user)})
}

func (h *AuthHandler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error(r.Context(), op+" failed", "error", err)
	respond.Error(w, http.StatusInternalServerError, msgServerError)
}
