package jwtmw

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewGenerator は各種設定でGeneratorが正しく生成されることを検証します。
func TestNewGenerator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		secret     string
		expiration time.Duration
	}{
		{"standard config", "my-secret-key", time.Hour},
		{"long expiration", "secret", 24 * time.Hour * 30},
		{"short expiration", "s", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := NewGenerator(tt.secret, tt.expiration)

			require.NotNil(t, gen)
			assert.Equal(t, tt.secret, string(gen.secret))
			assert.Equal(t, tt.expiration, gen.expiration)
		})
	}
}

// TestGenerator_GenerateToken は生成されたJWTトークンが有効で正しいクレームを含むことを検証します。
func TestGenerator_GenerateToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		subject    string
		expiration time.Duration
	}{
		{"mobile client", "mobile-app", time.Hour},
		{"batch job", "nightly-batch", 24 * time.Hour},
		{"email-like subject", "ops+oncall@example.com", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := NewGenerator("test-secret", tt.expiration)
			tokenStr, err := gen.GenerateToken(tt.subject)
			require.NoError(t, err)
			require.NotEmpty(t, tokenStr)

			token, err := jwt.Parse(tokenStr, func(tok *jwt.Token) (interface{}, error) {
				_, ok := tok.Method.(*jwt.SigningMethodHMAC)
				assert.True(t, ok, "unexpected signing method: %v", tok.Header["alg"])
				return []byte("test-secret"), nil
			})
			require.NoError(t, err)
			assert.True(t, token.Valid)

			sub, err := token.Claims.GetSubject()
			require.NoError(t, err)
			assert.Equal(t, tt.subject, sub)

			exp, err := token.Claims.GetExpirationTime()
			require.NoError(t, err)
			iat, err := token.Claims.GetIssuedAt()
			require.NoError(t, err)
			assert.Equal(t, tt.expiration, exp.Sub(iat.Time))
		})
	}
}

// TestGenerator_GenerateToken_FixedClock は時刻に応じたexp・iatが設定されることを検証します。
func TestGenerator_GenerateToken_FixedClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator("test-secret", 2*time.Hour)
	gen.now = func() time.Time { return now }

	tokenStr, err := gen.GenerateToken("client")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return now.Add(time.Minute) }))
	require.NoError(t, err)

	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(2*time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, now.Unix(), claims.NotBefore.Unix())
	assert.Len(t, claims.ID, 36)
}

// TestGenerator_GenerateToken_Errors はシークレットやサブジェクトが空の場合にエラーになることを検証します。
func TestGenerator_GenerateToken_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewGenerator("", time.Hour).GenerateToken("client")
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = NewGenerator("secret", time.Hour).GenerateToken("")
	assert.ErrorContains(t, err, "subject is required")
}

// TestGenerator_GenerateToken_DifferentSubjectsProduceDifferentTokens は異なるクライアントに対して異なるトークンが生成されることを検証します。
func TestGenerator_GenerateToken_DifferentSubjectsProduceDifferentTokens(t *testing.T) {
	t.Parallel()

	gen := NewGenerator("test-secret", time.Hour)

	token1, err := gen.GenerateToken("client-a")
	require.NoError(t, err)
	token2, err := gen.GenerateToken("client-b")
	require.NoError(t, err)

	assert.NotEqual(t, token1, token2)
}

// TestGenerator_GenerateToken_SameSubjectGetsDistinctIDs は同じクライアントでもトークンごとにjtiが異なることを検証します。
func TestGenerator_GenerateToken_SameSubjectGetsDistinctIDs(t *testing.T) {
	t.Parallel()

	gen := NewGenerator("test-secret", time.Hour)
	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		tokenStr, err := gen.GenerateToken("client")
		require.NoError(t, err)

		claims := &jwt.RegisteredClaims{}
		_, err = jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		require.NoError(t, err)
		ids[claims.ID] = true
	}

	assert.Len(t, ids, 3)
}
