package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/smart-clean/internal/auth"
	"github.com/ukydev/smart-clean/internal/models"
)

// Authenticator checks staff credentials and issues tokens.
type Authenticator interface {
	Authenticate(username, password string) (*models.Staff, error)
	GenerateToken(st *models.Staff) (string, time.Time, error)
}

// AuthHandler handles staff login
type AuthHandler struct {
	authService Authenticator
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService Authenticator) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles staff login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	staff, err := h.authService.Authenticate(loginReq.Username, loginReq.Password)
	if err != nil {
		if errors.Is(err, auth.ErrStaffDisabled) {
			http.Error(w, "Account is deactivated", http.StatusUnauthorized)
			return
		}
		log.WithField("username", loginReq.Username).Warn("Failed staff login")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, exp, err := h.authService.GenerateToken(staff)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	log.WithFields(log.Fields{"username": staff.Username, "role": staff.Role}).Info("Staff logged in")
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: exp.Unix(),
		Staff:     *staff,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
