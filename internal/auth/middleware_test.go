package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"caseflow/internal/cache"
	apperrors "caseflow/internal/errors"
	"caseflow/internal/model"
)

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *mockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

type mockUserFinder struct {
	mock.Mock
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func newSecuredEcho(svc *JWTService, users UserFinder, store TokenStoreInterface, log *zap.Logger) *echo.Echo {
	e := echo.New()
	g := e.Group("", JWTMiddleware(svc), RequireActor(users, store, log))
	g.GET("/whoami", func(c echo.Context) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, actor)
	})
	return e
}

func TestMiddleware_ResolvesActor(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, claims, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	store := new(mockTokenStore)
	store.On("IsAccessTokenBlacklisted", mock.Anything, claims.ID).Return(false, nil)

	// The stored role wins over the role baked into the token.
	promoted := testUser()
	promoted.Role = model.RoleSupervisor
	users := new(mockUserFinder)
	users.On("FindByID", mock.Anything, claims.UserID).Return(promoted, nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	newSecuredEcho(svc, users, store, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"supervisor"`)
	store.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestMiddleware_Rejects(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, claims, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	inactive := testUser()
	inactive.Active = false

	tests := []struct {
		name    string
		header  string
		setup   func(*mockTokenStore, *mockUserFinder)
		message string
	}{
		{name: "missing header", header: "", setup: func(*mockTokenStore, *mockUserFinder) {}},
		{name: "malformed token", header: "Bearer abc", setup: func(*mockTokenStore, *mockUserFinder) {}},
		{
			name:   "revoked token",
			header: "Bearer " + token,
			setup: func(m *mockTokenStore, _ *mockUserFinder) {
				m.On("IsAccessTokenBlacklisted", mock.Anything, claims.ID).Return(true, nil)
			},
			message: "token has been revoked",
		},
		{
			name:   "user deleted",
			header: "Bearer " + token,
			setup: func(m *mockTokenStore, u *mockUserFinder) {
				m.On("IsAccessTokenBlacklisted", mock.Anything, claims.ID).Return(false, nil)
				u.On("FindByID", mock.Anything, claims.UserID).Return(nil, apperrors.ErrNotFound)
			},
			message: "user not found",
		},
		{
			name:   "user deactivated",
			header: "Bearer " + token,
			setup: func(m *mockTokenStore, u *mockUserFinder) {
				m.On("IsAccessTokenBlacklisted", mock.Anything, claims.ID).Return(false, nil)
				u.On("FindByID", mock.Anything, claims.UserID).Return(inactive, nil)
			},
			message: "user is inactive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockTokenStore)
			users := new(mockUserFinder)
			tt.setup(store, users)

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			newSecuredEcho(svc, users, store, nil).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
			assert.Contains(t, rec.Body.String(), tt.message)
			store.AssertExpectations(t)
			users.AssertExpectations(t)
		})
	}
}

func TestMiddleware_UserLookupFailureIsTransient(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, claims, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	store := new(mockTokenStore)
	store.On("IsAccessTokenBlacklisted", mock.Anything, claims.ID).Return(false, nil)
	users := new(mockUserFinder)
	users.On("FindByID", mock.Anything, claims.UserID).
		Return(nil, fmt.Errorf("find user: %w", apperrors.ErrTransient))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	newSecuredEcho(svc, users, store, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "STORE_UNAVAILABLE")
}

func TestMiddleware_BlacklistOutageFailsOpen(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, claims, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	store := new(mockTokenStore)
	store.On("IsAccessTokenBlacklisted", mock.Anything, claims.ID).
		Return(false, errors.New("dial tcp 127.0.0.1:6379: connection refused"))
	users := new(mockUserFinder)
	users.On("FindByID", mock.Anything, claims.UserID).Return(testUser(), nil)

	core, logs := observer.New(zap.WarnLevel)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	newSecuredEcho(svc, users, store, zap.New(core)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("token blacklist lookup failed").Len())
}

func TestTokenStore_UnreachableCacheReportsError(t *testing.T) {
	c := cache.New("127.0.0.1:1", "", 0, nil)
	defer c.Close()
	store := NewTokenStore(c)

	revoked, err := store.IsAccessTokenBlacklisted(context.Background(), "jti")
	assert.Error(t, err)
	assert.False(t, revoked)
}

func TestTokenStore_DisabledCacheNeverRevokes(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(nil)

	require.NoError(t, store.BlacklistAccessToken(ctx, "jti", time.Minute))
	revoked, err := store.IsAccessTokenBlacklisted(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestWithActor(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, ok := ActorFrom(c)
	assert.False(t, ok)

	WithActor(c, model.Actor{UserID: "u1", Role: model.RoleLawyer})
	actor, ok := ActorFrom(c)
	require.True(t, ok)
	assert.Equal(t, "u1", actor.UserID)
}
