package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("some-other-services-secret"))
	require.NoError(t, err)
	return s
}

func TestDecode(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"user_id":  int64(42),
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestDecodeDoesNotVerifySignature(t *testing.T) {
	// The secret is unknown to this process; decoding must still succeed
	// because authorization is delegated to the room service.
	token := signedToken(t, jwt.MapClaims{
		"user_id":  int64(7),
		"username": "bob",
	})

	claims, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Username)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrInvalidCredential, raw)
	}
}

func TestDecodeRejectsMissingClaims(t *testing.T) {
	noUsername := signedToken(t, jwt.MapClaims{"user_id": int64(1)})
	_, err := Decode(noUsername)
	assert.ErrorIs(t, err, ErrInvalidCredential)

	noUserID := signedToken(t, jwt.MapClaims{"username": "carol"})
	_, err = Decode(noUserID)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
