package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlog/cardlog/internal/domain"
	"github.com/cardlog/cardlog/internal/service/auth"
	"github.com/cardlog/cardlog/internal/store"
)

// stubUserStore is an in-memory UserStore keyed by email.
type stubUserStore struct {
	users     map[string]*domain.User
	createErr error
}

var _ store.UserStore = (*stubUserStore)(nil)

func newStubUserStore() *stubUserStore {
	return &stubUserStore{users: make(map[string]*domain.User)}
}

func (s *stubUserStore) Create(_ context.Context, user *domain.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.users[user.Email]; ok {
		return store.ErrEmailExists
	}
	s.users[user.Email] = user
	return nil
}

func (s *stubUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *stubUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

// stubTokenService issues fixed tokens and accepts them back.
type stubTokenService struct {
	userID uuid.UUID
}

var _ auth.JWTService = (*stubTokenService)(nil)

func (s *stubTokenService) GenerateToken(context.Context, uuid.UUID) (string, error) {
	return "access-token", nil
}

func (s *stubTokenService) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	if token != "access-token" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{
		UserID:    s.userID,
		TokenType: "access",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (s *stubTokenService) GenerateRefreshToken(context.Context, uuid.UUID) (string, error) {
	return "refresh-token", nil
}

func (s *stubTokenService) ValidateRefreshToken(
	_ context.Context,
	token string,
) (*auth.Claims, error) {
	if token != "refresh-token" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: s.userID, TokenType: "refresh"}, nil
}

// stubVerifier hashes by prefixing and compares accordingly.
type stubVerifier struct{}

var _ auth.PasswordVerifier = (*stubVerifier)(nil)

func (stubVerifier) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (stubVerifier) Compare(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

func newAuthHandler(users *stubUserStore, tokens *stubTokenService) *AuthHandler {
	return NewAuthHandler(users, tokens, stubVerifier{}, nil)
}

func postJSON(
	t *testing.T,
	handler http.HandlerFunc,
	body string,
) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	users := newStubUserStore()
	h := newAuthHandler(users, &stubTokenService{userID: uuid.New()})

	rec := postJSON(t, h.Register,
		`{"email":"alice@example.com","password":"longenoughpassword"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)

	stored, err := users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hashed:longenoughpassword", stored.HashedPassword)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newStubUserStore()
	h := newAuthHandler(users, &stubTokenService{userID: uuid.New()})

	first := postJSON(t, h.Register,
		`{"email":"alice@example.com","password":"longenoughpassword"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := postJSON(t, h.Register,
		`{"email":"alice@example.com","password":"longenoughpassword"}`)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "Email already exists")
}

func TestRegisterValidation(t *testing.T) {
	h := newAuthHandler(newStubUserStore(), &stubTokenService{})

	rec := postJSON(t, h.Register, `{"email":"not-an-email","password":"short"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeValidation(t, rec)
	assert.Contains(t, resp.Errors["email"],
		"The email field must be a valid email address.")
	assert.Contains(t, resp.Errors["password"],
		"The password field must be at least 12 characters.")
}

func TestLogin(t *testing.T) {
	users := newStubUserStore()
	tokens := &stubTokenService{userID: uuid.New()}
	h := newAuthHandler(users, tokens)

	reg := postJSON(t, h.Register,
		`{"email":"alice@example.com","password":"longenoughpassword"}`)
	require.Equal(t, http.StatusCreated, reg.Code)

	rec := postJSON(t, h.Login,
		`{"email":"alice@example.com","password":"longenoughpassword"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access-token", resp.AccessToken)
}

func TestLoginWrongPassword(t *testing.T) {
	users := newStubUserStore()
	h := newAuthHandler(users, &stubTokenService{userID: uuid.New()})

	reg := postJSON(t, h.Register,
		`{"email":"alice@example.com","password":"longenoughpassword"}`)
	require.Equal(t, http.StatusCreated, reg.Code)

	rec := postJSON(t, h.Login,
		`{"email":"alice@example.com","password":"wrong-password"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestLoginUnknownUserSameResponseAsWrongPassword(t *testing.T) {
	users := newStubUserStore()
	h := newAuthHandler(users, &stubTokenService{userID: uuid.New()})

	reg := postJSON(t, h.Register,
		`{"email":"alice@example.com","password":"longenoughpassword"}`)
	require.Equal(t, http.StatusCreated, reg.Code)

	unknown := postJSON(t, h.Login,
		`{"email":"nobody@example.com","password":"longenoughpassword"}`)
	wrongPass := postJSON(t, h.Login,
		`{"email":"alice@example.com","password":"wrong-password-here"}`)

	// Account existence must not be probeable through the login endpoint.
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPass.Code, unknown.Code)
	assert.Contains(t, unknown.Body.String(), "Invalid credentials")
	assert.Contains(t, wrongPass.Body.String(), "Invalid credentials")
}

func TestRefreshToken(t *testing.T) {
	h := newAuthHandler(newStubUserStore(), &stubTokenService{userID: uuid.New()})

	rec := postJSON(t, h.RefreshToken, `{"refresh_token":"refresh-token"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp RefreshTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
}

func TestRefreshTokenInvalid(t *testing.T) {
	h := newAuthHandler(newStubUserStore(), &stubTokenService{userID: uuid.New()})

	rec := postJSON(t, h.RefreshToken, `{"refresh_token":"garbage"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid refresh token")
}
