package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/carmelita/carmelita-be/internal/auth"
	"github.com/carmelita/carmelita-be/internal/http/respond"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/models"
	"github.com/carmelita/carmelita-be/internal/models/dto"
	"github.com/carmelita/carmelita-be/internal/storage"
)

// AuthHandler owns register/login endpoints backed by the user store.
type AuthHandler struct {
	store          storage.UserStore
	tokens         *auth.TokenManager
	initialCredits int64
	log            *logging.Logger
}

// NewAuthHandler constructs the handler. New accounts start with initialCredits.
func NewAuthHandler(store storage.UserStore, tokens *auth.TokenManager, initialCredits int64, log *logging.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, initialCredits: initialCredits, log: log}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/register", h.handleRegister)
	mux.HandleFunc("/login", h.handleLogin)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validateRegistration(req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		Role:         models.RoleUser,
		BusinessType: strings.TrimSpace(req.BusinessType),
		Credits:      h.initialCredits,
		PasswordHash: passwordHash,
	}
	created, err := h.store.CreateUser(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "user already exists")
		default:
			h.log.WithContext(r.Context()).WithError(err).Error("create user failed")
			respond.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respond.JSON(w, http.StatusCreated, "User created successfully", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	log := h.log.WithContext(r.Context()).WithField("email", email)

	user, err := h.store.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("login failed: unknown email")
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.WithError(err).Error("login failed: fetch user")
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.tokens.Generate(user)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	if err := h.store.TouchLastLogin(r.Context(), user.ID); err != nil {
		log.WithError(err).Warn("update last login failed")
	} else if refreshed, err := h.store.FindByID(r.Context(), user.ID); err == nil {
		user = refreshed
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: user})
}

func validateRegistration(req dto.RegisterRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Name) == "" {
		return errors.New("email and name are required")
	}
	if !strings.Contains(email, "@") {
		return errors.New("email is invalid")
	}
	if len(strings.TrimSpace(req.Password)) < 8 || !utf8.ValidString(req.Password) {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
