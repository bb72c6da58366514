package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestChangePasswordSuccess(t *testing.T) {
	h := newHarness(t, testConfig())
	identity := h.seedActive(t, "alice@example.com", "old-password-123")

	if err := h.engine.ChangePassword(context.Background(), identity.ID, "old-password-123", "new-password-456"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := h.engine.Login(context.Background(), "alice@example.com", "new-password-456"); err != nil {
		t.Fatalf("expected login with new password, got %v", err)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricPasswordChangeSuccess]; got != 1 {
		t.Fatalf("expected change success metric, got %d", got)
	}
}

func TestChangePasswordWrongCurrentLeavesHashUntouched(t *testing.T) {
	h := newHarness(t, testConfig())
	identity := h.seedActive(t, "alice@example.com", "old-password-123")
	before := h.users.get("alice@example.com").PasswordHash

	err := h.engine.ChangePassword(context.Background(), identity.ID, "guess-password", "new-password-456")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if h.users.get("alice@example.com").PasswordHash != before {
		t.Fatal("hash must not change")
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricPasswordChangeInvalidOld]; got != 1 {
		t.Fatalf("expected invalid-old metric, got %d", got)
	}
}

func TestChangePasswordPolicy(t *testing.T) {
	h := newHarness(t, testConfig())
	identity := h.seedActive(t, "alice@example.com", "old-password-123")

	if err := h.engine.ChangePassword(context.Background(), identity.ID, "old-password-123", "short"); !errors.Is(err, ErrPasswordWeak) {
		t.Fatalf("expected ErrPasswordWeak, got %v", err)
	}
	if err := h.engine.ChangePassword(context.Background(), "", "old-password-123", "new-password-456"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := h.engine.ChangePassword(context.Background(), "missing", "old-password-123", "new-password-456"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestChangePasswordDisabledAccount(t *testing.T) {
	h := newHarness(t, testConfig())
	identity := h.seed(t, "alice@example.com", "old-password-123", StatusDisabled)

	err := h.engine.ChangePassword(context.Background(), identity.ID, "old-password-123", "new-password-456")
	if !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("expected ErrAccountNotActive, got %v", err)
	}
}

func TestChangePasswordStoreFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	identity := h.seedActive(t, "alice@example.com", "old-password-123")
	h.users.updateHashErr = errors.New("timeout")

	err := h.engine.ChangePassword(context.Background(), identity.ID, "old-password-123", "new-password-456")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := h.engine.Login(context.Background(), "alice@example.com", "old-password-123"); err != nil {
		t.Fatalf("old password must still work, got %v", err)
	}
}
