package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgrabowski/tabliczki-ztm/internal/auth"
)

var secret = []byte("test-secret-at-least-32-bytes-long!!")

func sign(t *testing.T, key []byte, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func validClaims(userID uuid.UUID) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        "jti-1",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func TestVerify_OK(t *testing.T) {
	userID := uuid.New()
	v := auth.NewVerifier(secret, "authenticated", "")

	id, err := v.Verify(sign(t, secret, jwt.SigningMethodHS256, validClaims(userID)))

	require.NoError(t, err)
	assert.Equal(t, userID, id.UserID)
	assert.Equal(t, "jti-1", id.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)
}

func TestVerify_Rejections(t *testing.T) {
	userID := uuid.New()
	v := auth.NewVerifier(secret, "authenticated", "")

	expired := validClaims(userID)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongAud := validClaims(userID)
	wrongAud.Audience = jwt.ClaimStrings{"anon"}

	noExp := validClaims(userID)
	noExp.ExpiresAt = nil

	badSubject := validClaims(userID)
	badSubject.Subject = "not-a-uuid"

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", auth.ErrMissingToken},
		{"garbage", "not.a.jwt", auth.ErrInvalidToken},
		{"wrong secret", sign(t, []byte("another-secret-another-secret-xx"), jwt.SigningMethodHS256, validClaims(userID)), auth.ErrInvalidToken},
		{"wrong algorithm", sign(t, secret, jwt.SigningMethodHS512, validClaims(userID)), auth.ErrInvalidToken},
		{"expired", sign(t, secret, jwt.SigningMethodHS256, expired), auth.ErrExpiredToken},
		{"wrong audience", sign(t, secret, jwt.SigningMethodHS256, wrongAud), auth.ErrInvalidToken},
		{"no expiry", sign(t, secret, jwt.SigningMethodHS256, noExp), auth.ErrInvalidToken},
		{"subject not uuid", sign(t, secret, jwt.SigningMethodHS256, badSubject), auth.ErrInvalidToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(tc.token)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVerify_MissingJTIFallsBackToHash(t *testing.T) {
	claims := validClaims(uuid.New())
	claims.ID = ""
	raw := sign(t, secret, jwt.SigningMethodHS256, claims)
	v := auth.NewVerifier(secret, "", "")

	id, err := v.Verify(raw)

	require.NoError(t, err)
	assert.Equal(t, auth.HashToken(raw), id.TokenID)
}

func TestTokenFromRequest(t *testing.T) {
	v := auth.NewVerifier(secret, "", "session")

	bearer := httptest.NewRequest(http.MethodGet, "/api/sets", nil)
	bearer.Header.Set("Authorization", "Bearer abc")
	bearer.AddCookie(&http.Cookie{Name: "session", Value: "from-cookie"})

	cookie := httptest.NewRequest(http.MethodGet, "/api/sets", nil)
	cookie.AddCookie(&http.Cookie{Name: "session", Value: "from-cookie"})

	none := httptest.NewRequest(http.MethodGet, "/api/sets", nil)
	none.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	assert.Equal(t, "abc", v.TokenFromRequest(bearer), "header wins over cookie")
	assert.Equal(t, "from-cookie", v.TokenFromRequest(cookie))
	assert.Empty(t, v.TokenFromRequest(none))
}

func setupRedis(t *testing.T) (*auth.RedisRevocations, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := auth.NewRedisRevocations("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestRedisRevocations_RevokeUntilExpiry(t *testing.T) {
	store, s := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, s.Exists("revoked:jti-1"))

	s.FastForward(2 * time.Minute)

	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entry expires with the token")
}

func TestRedisRevocations_ExpiredTokenNotStored(t *testing.T) {
	store, s := setupRedis(t)

	require.NoError(t, store.Revoke(context.Background(), "old", time.Now().Add(-time.Second)))

	assert.False(t, s.Exists("revoked:old"))
}

func TestRedisRevocations_Unreachable(t *testing.T) {
	store, s := setupRedis(t)
	s.Close()

	_, err := store.IsRevoked(context.Background(), "jti-1")

	assert.Error(t, err)
	assert.Error(t, store.Ping(context.Background()))
}

func TestNewRedisRevocations_BadURL(t *testing.T) {
	_, err := auth.NewRedisRevocations("not a url")

	assert.ErrorContains(t, err, "parse redis url")
}

func TestMemoryRevocations(t *testing.T) {
	store := auth.NewMemoryRevocations()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	require.NoError(t, store.Revoke(ctx, "old", time.Now().Add(-time.Minute)))

	revoked, _ := store.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)
	revoked, _ = store.IsRevoked(ctx, "old")
	assert.False(t, revoked)
}

func TestAuthenticator_LogoutRevokesToken(t *testing.T) {
	userID := uuid.New()
	raw := sign(t, secret, jwt.SigningMethodHS256, validClaims(userID))
	a := auth.NewAuthenticator(auth.NewVerifier(secret, "", ""), auth.NewMemoryRevocations())
	req := httptest.NewRequest(http.MethodGet, "/api/sets", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	id, err := a.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, userID, id.UserID)

	require.NoError(t, a.Logout(context.Background(), id))

	_, err = a.Authenticate(req)
	assert.ErrorIs(t, err, auth.ErrRevokedToken)
}
