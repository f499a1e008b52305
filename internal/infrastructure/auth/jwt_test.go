package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                testSecret,
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func signRaw(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestNewJWTService(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "s", Issuer: "i"})
	assert.Equal(t, time.Hour, svc.Expiration(), "defaults to one hour")
	assert.Equal(t, "i", svc.issuer)

	svc = newTestJWTService()
	assert.Equal(t, 15*time.Minute, svc.Expiration())
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()

	for _, role := range []Role{RoleAdmin, RoleTenant} {
		t.Run(string(role), func(t *testing.T) {
			token, expiresAt, err := svc.GenerateToken(userID, role)
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

			claims, err := svc.ValidateAccessToken(token)
			require.NoError(t, err)
			assert.Equal(t, userID.String(), claims.UserID)
			assert.Equal(t, userID.String(), claims.Subject)
			assert.Equal(t, role, claims.Role)
			assert.Equal(t, role == RoleAdmin, claims.IsAdmin())
			assert.NotEmpty(t, claims.ID)

			parsed, err := claims.GetUserUUID()
			require.NoError(t, err)
			assert.Equal(t, userID, parsed)
		})
	}
}

func TestGenerateToken_Errors(t *testing.T) {
	_, _, err := newTestJWTService().GenerateToken(uuid.New(), Role("owner"))
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, _, err = NewJWTService(config.JWTConfig{}).GenerateToken(uuid.New(), RoleAdmin)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := newTestJWTService()
	token, _, err := svc.GenerateToken(uuid.New(), RoleTenant)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_NotYetValid(t *testing.T) {
	svc := newTestJWTService()
	svc.now = func() time.Time { return time.Now().Add(time.Minute) }
	token, _, err := svc.GenerateToken(uuid.New(), RoleTenant)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	svc := newTestJWTService()
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Issuer:    "test-issuer",
		Subject:   uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:    "garbage",
			token:   "not-a-token",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong secret",
			token:   signRaw(t, jwt.SigningMethodHS256, []byte("other-secret"), &Claims{RegisteredClaims: valid, Role: RoleAdmin}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "other HMAC algorithm",
			token:   signRaw(t, jwt.SigningMethodHS512, []byte(testSecret), &Claims{RegisteredClaims: valid, Role: RoleAdmin}),
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere", Subject: valid.Subject, ExpiresAt: valid.ExpiresAt},
				Role:             RoleAdmin,
			}),
			wantErr: ErrInvalidToken,
		},
		{
			name: "no expiry",
			token: signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", Subject: valid.Subject},
				Role:             RoleAdmin,
			}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "unknown role",
			token:   signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{RegisteredClaims: valid, Role: "owner"}),
			wantErr: ErrInvalidRole,
		},
		{
			name: "missing subject",
			token: signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", ExpiresAt: valid.ExpiresAt},
				Role:             RoleTenant,
			}),
			wantErr: ErrMissingUserID,
		},
		{
			name: "non-uuid subject",
			token: signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", Subject: "alice", ExpiresAt: valid.ExpiresAt},
				Role:             RoleTenant,
			}),
			wantErr: ErrInvalidClaims,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateAccessToken_SubjectOnlyToken(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()
	token := signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: RoleTenant,
	})

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
}

func TestValidateAccessToken_AnyIssuerWhenUnset(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: testSecret})
	token := signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "whoever",
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: RoleAdmin,
	})

	_, err := svc.ValidateAccessToken(token)
	assert.NoError(t, err)
}
