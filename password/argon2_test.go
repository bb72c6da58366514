package password

import (
	"errors"
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func newHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Memory != 64*1024 || cfg.Time != 3 || cfg.Parallelism != 2 {
		t.Fatalf("unexpected cost parameters %+v", cfg)
	}
	if cfg.SaltLength != 16 || cfg.KeyLength != 32 {
		t.Fatalf("unexpected salt/key length %+v", cfg)
	}
	if cfg.MaxPasswordBytes != DefaultMaxPasswordBytes {
		t.Fatalf("expected max %d, got %d", DefaultMaxPasswordBytes, cfg.MaxPasswordBytes)
	}
	if _, err := NewArgon2(cfg); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestNewArgon2ZeroMaxUsesDefault(t *testing.T) {
	h := newHasher(t, fastConfig())
	if err := h.CheckLength(strings.Repeat("a", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("expected default max to accept %d bytes, got %v", DefaultMaxPasswordBytes, err)
	}
	if err := h.CheckLength(strings.Repeat("a", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong past default max, got %v", err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory", func(c *Config) { c.Memory = 4 * 1024 }},
		{"time", func(c *Config) { c.Time = 0 }},
		{"parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"salt", func(c *Config) { c.SaltLength = 8 }},
		{"key", func(c *Config) { c.KeyLength = 8 }},
		{"max below minimum", func(c *Config) { c.MaxPasswordBytes = MinPasswordBytes - 1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := fastConfig()
			tc.mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatal("expected config to be rejected")
			}
		})
	}
}

func TestCheckLength(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 16
	h := newHasher(t, cfg)

	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"empty", "", ErrTooShort},
		{"seven bytes", "1234567", ErrTooShort},
		{"eight bytes", "12345678", nil},
		{"at max", strings.Repeat("x", 16), nil},
		{"past max", strings.Repeat("x", 17), ErrTooLong},
		// Multibyte runes count by encoded length.
		{"three runes six bytes", "ééé", ErrTooShort},
		{"four runes eight bytes", "éééé", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := h.CheckLength(tc.password); !errors.Is(err, tc.want) {
				t.Fatalf("CheckLength(%q) = %v, want %v", tc.password, err, tc.want)
			}
		})
	}
}

func TestHashEnforcesLength(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 32
	h := newHasher(t, cfg)

	if _, err := h.Hash("short"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("y", 33)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestHashAndVerify(t *testing.T) {
	h := newHasher(t, fastConfig())

	first, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(first, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding %s", first)
	}
	second, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh salt per hash")
	}

	for _, encoded := range []string{first, second} {
		ok, err := h.Verify("correct-horse", encoded)
		if err != nil || !ok {
			t.Fatalf("expected match, got ok=%v err=%v", ok, err)
		}
	}

	ok, err := h.Verify("battery-staple", first)
	if err != nil {
		t.Fatalf("wrong password must not be an error: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestVerifyRejectsOversizedPasswordBeforeHashing(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 20
	h := newHasher(t, cfg)

	// The stored hash is malformed; ErrTooLong proves the length check ran first.
	ok, err := h.Verify(strings.Repeat("z", 21), "not-a-hash")
	if !errors.Is(err, ErrTooLong) || ok {
		t.Fatalf("expected ErrTooLong, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyDoesNotEnforceMinimum(t *testing.T) {
	h := newHasher(t, fastConfig())
	encoded, err := h.Hash("long-enough-secret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := h.Verify("short", encoded)
	if err != nil {
		t.Fatalf("short candidate should compare, got %v", err)
	}
	if ok {
		t.Fatal("short candidate accepted")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newHasher(t, fastConfig())
	if _, err := h.Verify("correct-horse", "$bcrypt$whatever"); err == nil {
		t.Fatal("expected malformed hash error")
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak := newHasher(t, fastConfig())
	strongCfg := fastConfig()
	strongCfg.Time = 2
	strongCfg.Memory = 16 * 1024
	strong := newHasher(t, strongCfg)

	weakHash, err := weak.Hash("upgrade-me-please")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	strongHash, err := strong.Hash("upgrade-me-please")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	tests := []struct {
		name    string
		hasher  *Argon2
		encoded string
		want    bool
	}{
		{"weak hash under strong params", strong, weakHash, true},
		{"own hash", strong, strongHash, false},
		{"stronger hash under weak params", weak, strongHash, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.hasher.NeedsUpgrade(tc.encoded)
			if err != nil {
				t.Fatalf("NeedsUpgrade: %v", err)
			}
			if got != tc.want {
				t.Fatalf("NeedsUpgrade = %v, want %v", got, tc.want)
			}
		})
	}

	keyCfg := fastConfig()
	keyCfg.KeyLength = 32
	if got, err := newHasher(t, keyCfg).NeedsUpgrade(weakHash); err != nil || !got {
		t.Fatalf("expected key length change to need upgrade, got %v err=%v", got, err)
	}

	if _, err := strong.NeedsUpgrade("garbage"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}
