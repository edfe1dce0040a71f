package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-gateway/internal/auth"
)

var secret = []byte("admin-secret")

func signToken(t *testing.T, key []byte, expiry time.Time) string {
	t.Helper()
	token, err := jwt.NewBuilder().
		Subject("admin").
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(expiry).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, key))
	require.NoError(t, err)
	return string(signed)
}

func protected(mw auth.Middleware) http.Handler {
	return mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func request(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin/gateway", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	mw := auth.Middleware{Secret: secret}
	rr := httptest.NewRecorder()
	protected(mw).ServeHTTP(rr, request(signToken(t, secret, time.Now().Add(time.Hour))))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	mw := auth.Middleware{Secret: secret}
	rr := httptest.NewRecorder()
	protected(mw).ServeHTTP(rr, request(""))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuthRejectsWrongKey(t *testing.T) {
	mw := auth.Middleware{Secret: secret}
	rr := httptest.NewRecorder()
	protected(mw).ServeHTTP(rr, request(signToken(t, []byte("other"), time.Now().Add(time.Hour))))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	mw := auth.Middleware{Secret: secret}
	rr := httptest.NewRecorder()
	protected(mw).ServeHTTP(rr, request(signToken(t, secret, time.Now().Add(-time.Hour))))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuthEnforcesIssuer(t *testing.T) {
	mw := auth.Middleware{Secret: secret, Issuer: "billing-host"}

	token, err := jwt.NewBuilder().
		Subject("admin").
		Issuer("someone-else").
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, secret))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	protected(mw).ServeHTTP(rr, request(string(signed)))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
