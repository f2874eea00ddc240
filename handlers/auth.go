package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pinatree/pinatreebackend/config"
	"github.com/pinatree/pinatreebackend/models"
	"github.com/pinatree/pinatreebackend/repository"
)

type AuthHandler struct {
	UserRepo repository.UserRepository
	Cfg      config.Config
}

func NewAuthHandler(userRepo repository.UserRepository, cfg config.Config) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, Cfg: cfg}
}

type RegisterPayload struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}

	payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))
	payload.Username = strings.TrimSpace(payload.Username)

	if payload.Email == "" || payload.Username == "" || payload.Password == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_fields", "Email, username, and password are required")
		return
	}
	if !strings.Contains(payload.Email, "@") {
		WriteAPIError(w, http.StatusBadRequest, "invalid_email", "Email address is not valid")
		return
	}
	if len(payload.Password) < 8 {
		WriteAPIError(w, http.StatusBadRequest, "weak_password", "Password must be at least 8 characters")
		return
	}

	newUser := &models.User{
		Email:       payload.Email,
		Username:    payload.Username,
		DisplayName: payload.DisplayName,
	}
	if err := newUser.SetPassword(payload.Password); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "hash_failed", "Failed to hash password")
		return
	}

	if err := h.UserRepo.Create(newUser); err != nil {
		// GORM surfaces unique constraint violations from sqlite in the error text
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			WriteAPIError(w, http.StatusConflict, "already_exists", "Email or username is already taken")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, "create_failed", "Failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully. Please log in."})
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Login verifies credentials and issues a bearer token. The username field
// also accepts the account email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload")
		return
	}

	user, err := h.UserRepo.GetByUsername(payload.Username)
	if err != nil && strings.Contains(payload.Username, "@") {
		user, err = h.UserRepo.GetByEmail(strings.ToLower(payload.Username))
	}
	if err != nil || !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	expirationTime := time.Now().Add(time.Duration(h.Cfg.JWTExpiryHours) * time.Hour)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "pinatreebackend",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.Cfg.JWTSecret))
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "token_failed", "Failed to generate token")
		return
	}

	userForResponse := *user
	userForResponse.PasswordHash = "" // ensure it's not sent, though "-" tag should handle it

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tokenString,
		User:      userForResponse,
		ExpiresAt: expirationTime,
	})
}

// CurrentUser retrieves the authenticated user from the request context.
// This handler should be protected by the AuthMiddleware.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "no_user", "Could not retrieve user from context")
		return
	}

	userForResponse := *user
	userForResponse.PasswordHash = ""
	writeJSON(w, http.StatusOK, userForResponse)
}
