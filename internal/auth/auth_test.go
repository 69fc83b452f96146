package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT(testSecret, "user-123", time.Hour)
	require.NoError(t, err)

	sub, err := ValidateJWT(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", sub)
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT(testSecret, "user-123", time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT("other-secret", token)
	assert.Error(t, err)
}

func TestValidateJWT_Expired(t *testing.T) {
	token, err := GenerateJWT(testSecret, "user-123", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT(testSecret, token)
	assert.Error(t, err)
}

func TestGenerateJWT_EmptySecret(t *testing.T) {
	_, err := GenerateJWT("", "user-123", time.Hour)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestJWTMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	exists := func(ctx context.Context, id string) (bool, error) {
		switch id {
		case "known":
			return true, nil
		case "broken":
			return false, errors.New("db down")
		default:
			return false, nil
		}
	}
	handler := JWTMiddleware(testSecret, exists)(next)

	tokenFor := func(id string) string {
		tok, err := GenerateJWT(testSecret, id, time.Hour)
		require.NoError(t, err)
		return "Bearer " + tok
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, ""},
		{"unknown user", tokenFor("ghost"), http.StatusUnauthorized, ""},
		{"lookup failure", tokenFor("broken"), http.StatusInternalServerError, ""},
		{"valid", tokenFor("known"), http.StatusOK, "known"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/moods/known", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, seen)
			if tt.wantStatus != http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestUserIDFromContext_Empty(t *testing.T) {
	assert.Equal(t, "", UserIDFromContext(context.Background()))
	assert.Equal(t, "u1", UserIDFromContext(WithUserID(context.Background(), "u1")))
}
