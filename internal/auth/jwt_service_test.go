package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:       "9b2f1c9e-0000-4000-8000-000000000001",
		Username: "registrar1",
		FullName: "John Registrar",
		Role:     model.RoleRegistrar,
		Active:   true,
	}
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	token, issued, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, issued.ID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "9b2f1c9e-0000-4000-8000-000000000001", claims.Subject)
	assert.Equal(t, "9b2f1c9e-0000-4000-8000-000000000001", claims.UserID)
	assert.Equal(t, "registrar1", claims.Username)
	assert.Equal(t, "John Registrar", claims.FullName)
	assert.Equal(t, model.RoleRegistrar, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTService_DistinctTokenIDs(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	_, a, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	_, b, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestJWTService_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTokenTTL, NewJWTService("secret", 0).TTL())
}

func TestJWTService_ValidateToken_Rejects(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	expired := NewJWTService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.GenerateAccessToken(testUser())
	require.NoError(t, err)

	otherSecret, _, err := NewJWTService("other", time.Hour).GenerateAccessToken(testUser())
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expiredToken},
		{name: "wrong secret", token: otherSecret},
		{name: "none algorithm", token: noneToken},
		{name: "missing subject", token: anonymous},
		{name: "garbage", token: "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}
