package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/smart-clean/internal/auth"
	"github.com/ukydev/smart-clean/internal/models"
)

// MockAuthenticator is a mock implementation of Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(username, password string) (*models.Staff, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Staff), args.Error(1)
}

func (m *MockAuthenticator) GenerateToken(st *models.Staff) (string, time.Time, error) {
	args := m.Called(st)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func loginRequest(t *testing.T, username, password string) *http.Request {
	t.Helper()
	body, err := json.Marshal(models.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(body))
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("successful login", func(t *testing.T) {
		authn := new(MockAuthenticator)
		handler := NewAuthHandler(authn)

		staff := &models.Staff{Username: "ravi", Role: models.RoleSupervisor, PasswordHash: "secret-hash"}
		exp := time.Unix(1_900_000_000, 0)
		authn.On("Authenticate", "ravi", "password123").Return(staff, nil)
		authn.On("GenerateToken", staff).Return("signed-token", exp, nil)

		w := httptest.NewRecorder()
		handler.Login(w, loginRequest(t, "ravi", "password123"))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "signed-token", resp.Token)
		assert.Equal(t, exp.Unix(), resp.ExpiresAt)
		assert.Equal(t, "ravi", resp.Staff.Username)
		assert.NotContains(t, w.Body.String(), "secret-hash")
		authn.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		authn := new(MockAuthenticator)
		handler := NewAuthHandler(authn)
		authn.On("Authenticate", "ravi", "wrong").Return(nil, auth.ErrInvalidCredentials)

		w := httptest.NewRecorder()
		handler.Login(w, loginRequest(t, "ravi", "wrong"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		authn.AssertNotCalled(t, "GenerateToken", mock.Anything)
	})

	t.Run("disabled account", func(t *testing.T) {
		authn := new(MockAuthenticator)
		handler := NewAuthHandler(authn)
		authn.On("Authenticate", "old", "password123").Return(nil, auth.ErrStaffDisabled)

		w := httptest.NewRecorder()
		handler.Login(w, loginRequest(t, "old", "password123"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "deactivated")
	})

	t.Run("missing fields", func(t *testing.T) {
		authn := new(MockAuthenticator)
		handler := NewAuthHandler(authn)

		w := httptest.NewRecorder()
		handler.Login(w, loginRequest(t, "ravi", ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		authn.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewAuthHandler(new(MockAuthenticator))

		w := httptest.NewRecorder()
		handler.Login(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("token failure", func(t *testing.T) {
		authn := new(MockAuthenticator)
		handler := NewAuthHandler(authn)
		staff := &models.Staff{Username: "ravi", Role: models.RoleCrew}
		authn.On("Authenticate", "ravi", "password123").Return(staff, nil)
		authn.On("GenerateToken", staff).Return("", time.Time{}, assert.AnError)

		w := httptest.NewRecorder()
		handler.Login(w, loginRequest(t, "ravi", "password123"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAuthHandler_LoginWithRealService(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	svc, err := auth.NewService("test-secret", time.Hour, []models.Staff{
		{Username: "ravi", PasswordHash: hash, Role: models.RoleAdmin},
	})
	require.NoError(t, err)
	handler := NewAuthHandler(svc)

	w := httptest.NewRecorder()
	handler.Login(w, loginRequest(t, "ravi", "password123"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}
