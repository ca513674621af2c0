package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medappointments/cmd/internal/domain/entity"
)

var testKey = []byte("test-signing-key")

func TestVerify_HS256(t *testing.T) {
	cfg := Config{SigningKey: testKey, Issuer: "medappointments", Audience: "web"}
	v, err := NewVerifier(cfg)
	require.NoError(t, err)

	token, err := IssueDevToken(testKey, cfg, "doctor-1", []entity.Role{entity.RoleMedicalProfessional}, time.Minute)
	require.NoError(t, err)

	caller, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "doctor-1", caller.ID)
	assert.True(t, caller.HasRole(entity.RoleMedicalProfessional))
	assert.False(t, caller.IsAdmin())
}

func TestVerify_Rejects(t *testing.T) {
	cfg := Config{SigningKey: testKey, Audience: "web"}
	v, err := NewVerifier(cfg)
	require.NoError(t, err)

	expired, _ := IssueDevToken(testKey, cfg, "p1", nil, -time.Minute)
	_, err = v.Verify(expired)
	assert.Error(t, err, "expired")

	forged, _ := IssueDevToken([]byte("other-key"), cfg, "p1", nil, time.Minute)
	_, err = v.Verify(forged)
	assert.Error(t, err, "wrong key")

	wrongAud, _ := IssueDevToken(testKey, Config{Audience: "mobile"}, "p1", nil, time.Minute)
	_, err = v.Verify(wrongAud)
	assert.Error(t, err, "wrong audience")

	noSub, _ := IssueDevToken(testKey, cfg, "", nil, time.Minute)
	_, err = v.Verify(noSub)
	assert.Error(t, err, "no subject")
}

func TestVerify_MergesGroupsAndRoles(t *testing.T) {
	v, err := NewVerifier(Config{SigningKey: testKey})
	require.NoError(t, err)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Groups: []string{"Patient", "Unknown"},
		Roles:  []string{"Admin", "Patient"},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)

	caller, err := v.Verify(raw)
	require.NoError(t, err)
	assert.ElementsMatch(t, []entity.Role{entity.RolePatient, entity.RoleAdmin}, caller.Roles)
}

func TestNewVerifier_RequiresKeySource(t *testing.T) {
	_, err := NewVerifier(Config{})
	assert.ErrorIs(t, err, ErrNoKeySource)
}

func TestVerify_JWKS(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pool/.well-known/jwks.json", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "k1",
				"n":   base64.RawURLEncoding.EncodeToString(priv.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(priv.E)).Bytes()),
			}},
		})
	}))
	defer srv.Close()

	issuer := srv.URL + "/pool"
	v, err := NewVerifier(Config{Issuer: issuer})
	require.NoError(t, err)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sub-123",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Groups: []string{"Admin"},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	raw, err := tok.SignedString(priv)
	require.NoError(t, err)

	caller, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "sub-123", caller.ID)
	assert.True(t, caller.IsAdmin())

	tok.Header["kid"] = "missing"
	raw, _ = tok.SignedString(priv)
	_, err = v.Verify(raw)
	assert.Error(t, err)
}
