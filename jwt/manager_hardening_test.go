package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte(testSecret),
		Issuer:        "social-service",
		Audience:      "vn-law",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func signRaw(t *testing.T, claims gjwt.Claims) string {
	t.Helper()
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAccessRoundTrip(t *testing.T) {
	m := newHSManager(t)

	token, err := m.CreateAccess("user-1", "a@example.com", "Alice", "USER,ADMIN")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@example.com" || claims.DisplayName != "Alice" || claims.Roles != "USER,ADMIN" {
		t.Fatalf("claims not recovered: %+v", claims)
	}
	if claims.Issuer != "social-service" || len(claims.Audience) != 1 || claims.Audience[0] != "vn-law" {
		t.Fatalf("issuer/audience not set: %+v", claims.RegisteredClaims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected 1h lifetime, got %v", got)
	}
	if claims.ID == "" {
		t.Fatal("expected jti")
	}
}

func TestRefreshCarriesMinimalClaims(t *testing.T) {
	m := newHSManager(t)

	token, err := m.CreateRefresh("user-1", "USER")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	claims, err := m.ParseRefresh(token)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if claims.Subject != "user-1" || claims.Roles != "USER" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 7*24*time.Hour {
		t.Fatalf("expected 7d lifetime, got %v", got)
	}

	// Decoding the refresh token as access claims must not reveal profile data.
	parser := gjwt.NewParser()
	var raw map[string]any
	tok, _, err := parser.ParseUnverified(token, gjwt.MapClaims{})
	if err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	raw = tok.Claims.(gjwt.MapClaims)
	for _, field := range []string{"email", "displayName"} {
		if _, ok := raw[field]; ok {
			t.Fatalf("refresh token must not carry %q", field)
		}
	}
}

func TestTokensOfSameInstantAreDistinct(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	m := newHSManager(t).WithClock(func() time.Time { return fixed })

	a, _ := m.CreateRefresh("user-1", "USER")
	b, _ := m.CreateRefresh("user-1", "USER")
	if a == b {
		t.Fatal("expected distinct tokens from the same instant")
	}
}

func TestTokenUseIsEnforced(t *testing.T) {
	m := newHSManager(t)

	access, _ := m.CreateAccess("user-1", "a@example.com", "Alice", "USER")
	refresh, _ := m.CreateRefresh("user-1", "USER")

	if _, err := m.ParseRefresh(access); !errors.Is(err, ErrTokenUse) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := m.ParseAccess(refresh); !errors.Is(err, ErrTokenUse) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestParseRejectsWrongIssuerAudienceAndExpiry(t *testing.T) {
	m := newHSManager(t)
	now := time.Now()

	cases := map[string]AccessClaims{
		"issuer": {Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{
			Subject: "u", Issuer: "other", Audience: gjwt.ClaimStrings{"vn-law"},
			IssuedAt: gjwt.NewNumericDate(now), ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
		}},
		"audience": {Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{
			Subject: "u", Issuer: "social-service", Audience: gjwt.ClaimStrings{"other"},
			IssuedAt: gjwt.NewNumericDate(now), ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
		}},
		"expired": {Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{
			Subject: "u", Issuer: "social-service", Audience: gjwt.ClaimStrings{"vn-law"},
			IssuedAt: gjwt.NewNumericDate(now.Add(-2 * time.Hour)), ExpiresAt: gjwt.NewNumericDate(now.Add(-time.Hour)),
		}},
		"no-exp": {Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{
			Subject: "u", Issuer: "social-service", Audience: gjwt.ClaimStrings{"vn-law"},
			IssuedAt: gjwt.NewNumericDate(now),
		}},
		"no-subject": {Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{
			Issuer: "social-service", Audience: gjwt.ClaimStrings{"vn-law"},
			IssuedAt: gjwt.NewNumericDate(now), ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
		}},
	}

	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := m.ParseAccess(signRaw(t, claims)); err == nil {
				t.Fatalf("expected %s token to be rejected", name)
			}
		})
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := newHSManager(t)
	other, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("another-secret-another-secret-xx"),
		Issuer:        "social-service",
		Audience:      "vn-law",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, _ := other.CreateAccess("u", "a@example.com", "Alice", "USER")
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL: time.Minute, RefreshTTL: time.Hour,
		SigningMethod: MethodEd25519, PublicKey: pub,
		Issuer: "social-service", Audience: "vn-law",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	now := time.Now()
	token := signRaw(t, AccessClaims{Use: UseAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject: "u", Issuer: "social-service", Audience: gjwt.ClaimStrings{"vn-law"},
		IssuedAt: gjwt.NewNumericDate(now), ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
	}})
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestEd25519RoundTripAndLeeway(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "social-service",
		Audience:      "vn-law",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.CreateAccess("u", "a@example.com", "Alice", "USER")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	m.WithClock(func() time.Time { return time.Now().Add(time.Minute + 15*time.Second) })
	if _, err := m.ParseAccess(token); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	m.WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) })
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		Issuer:        "social-service",
		Audience:      "vn-law",
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	good, err := m.CreateAccess("u", "a@example.com", "Alice", "USER")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, err := NewManager(Config{
		AccessTTL: time.Minute, RefreshTTL: time.Hour,
		SigningMethod: MethodEd25519, PublicKey: pub2,
		Issuer: "social-service", Audience: "vn-law",
		VerifyKeys: map[string][]byte{"k2": pub2},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m2.ParseAccess(good); err == nil {
		t.Fatal("expected unknown kid failure")
	}
}

func TestNewManagerValidation(t *testing.T) {
	base := Config{
		AccessTTL: time.Hour, RefreshTTL: 2 * time.Hour,
		SigningMethod: MethodHS256, PrivateKey: []byte(testSecret),
		Issuer: "social-service", Audience: "vn-law",
	}

	mutations := map[string]func(*Config){
		"zero access ttl":   func(c *Config) { c.AccessTTL = 0 },
		"refresh < access":  func(c *Config) { c.RefreshTTL = time.Minute },
		"missing issuer":    func(c *Config) { c.Issuer = " " },
		"missing audience":  func(c *Config) { c.Audience = "" },
		"short secret":      func(c *Config) { c.PrivateKey = []byte("short") },
		"unknown method":    func(c *Config) { c.SigningMethod = "rs256" },
		"excessive leeway":  func(c *Config) { c.Leeway = time.Hour },
	}
	for name, mutate := range mutations {
		cfg := base
		mutate(&cfg)
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if _, err := NewManager(base); err != nil {
		t.Fatalf("base config rejected: %v", err)
	}
}
