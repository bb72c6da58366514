package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	tokens map[string]*authcore.Claims
	calls  int
}

func (s *stubValidator) ValidateAccess(_ context.Context, token string) (*authcore.Claims, error) {
	s.calls++
	claims, ok := s.tokens[token]
	if !ok {
		return nil, authcore.ErrTokenInvalid
	}
	return claims, nil
}

func newStub() *stubValidator {
	return &stubValidator{tokens: map[string]*authcore.Claims{
		"user-token":  {Subject: "u1", Roles: []string{"USER"}},
		"admin-token": {Subject: "a1", Roles: []string{"USER", "ADMIN"}},
	}}
}

func echoSubject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(claims.Subject))
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/change-password", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGuardAcceptsValidBearer(t *testing.T) {
	stub := newStub()
	rec := serve(Guard(stub)(echoSubject()), "Bearer user-token")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestGuardRejectsMissingOrBadToken(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"empty token":    "Bearer ",
		"unknown token":  "Bearer nope",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(Guard(newStub())(echoSubject()), header)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeEnvelope(t, rec)
			assert.EqualValues(t, 2201, body["code"])
			assert.Contains(t, body, "data")
		})
	}
}

func TestGuardSkipsValidatorWithoutBearer(t *testing.T) {
	stub := newStub()
	serve(Guard(stub)(echoSubject()), "")
	assert.Zero(t, stub.calls)
}

func TestGuardSchemeIsCaseInsensitive(t *testing.T) {
	rec := serve(Guard(newStub())(echoSubject()), "bearer admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", rec.Body.String())
}

func TestGuardNilValidatorDenies(t *testing.T) {
	rec := serve(Guard(nil)(echoSubject()), "Bearer user-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalPassesAnonymousThrough(t *testing.T) {
	h := Optional(newStub())(echoSubject())

	assert.Equal(t, "anonymous", serve(h, "").Body.String())
	assert.Equal(t, "anonymous", serve(h, "Bearer nope").Body.String())
	assert.Equal(t, "u1", serve(h, "Bearer user-token").Body.String())
}

func TestRequireRole(t *testing.T) {
	h := Guard(newStub())(RequireRole("admin")(echoSubject()))

	rec := serve(h, "Bearer admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, "Bearer user-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.EqualValues(t, 2202, decodeEnvelope(t, rec)["code"])
}

func TestRequireRoleWithoutGuard(t *testing.T) {
	rec := serve(RequireRole("ADMIN")(echoSubject()), "Bearer admin-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
