package authcore

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/otp"
)

// AccountStatus is the lifecycle state of an identity.
//
// PENDING moves to ACTIVE on registration OTP verification. ACTIVE moves to
// DISABLED by administrative action.
type AccountStatus string

const (
	StatusPending  AccountStatus = "PENDING"
	StatusActive   AccountStatus = "ACTIVE"
	StatusDisabled AccountStatus = "DISABLED"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusDisabled:
		return true
	}
	return false
}

// ParseAccountStatus parses s case-insensitively.
func ParseAccountStatus(s string) (AccountStatus, error) {
	status := AccountStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", &ValidationError{Field: "status", Reason: "must be one of ACTIVE, PENDING, DISABLED"}
	}
	return status, nil
}

// OTPPurpose scopes a passcode to the registration or the reset flow.
type OTPPurpose = otp.Purpose

const (
	PurposeRegister = otp.PurposeRegister
	PurposeReset    = otp.PurposeReset
)

// Identity is the account record owned by the [UserStore]. Email is stored
// lower-cased and is unique. Roles is a comma-separated set.
type Identity struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Status       AccountStatus
	Roles        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleList splits Roles into its members.
func (i Identity) RoleList() []string {
	return splitRoles(i.Roles)
}

// CreateIdentityInput is the payload passed to [UserStore.Create].
type CreateIdentityInput struct {
	Email        string
	DisplayName  string
	PasswordHash string
	Status       AccountStatus
	Roles        string
}

// UserStore is the identity persistence capability the Engine depends on.
//
// Implementations return ErrUserNotFound for unknown IDs or emails and
// ErrEmailTaken when Create hits the unique email constraint. Any other
// error is treated as the store being unavailable.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (Identity, error)
	GetByID(ctx context.Context, id string) (Identity, error)
	Create(ctx context.Context, input CreateIdentityInput) (Identity, error)
	UpdateStatus(ctx context.Context, id string, status AccountStatus) error
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
	UpdateRoles(ctx context.Context, id string, roles string) error
}

// OTPMessage is what a [CodeSender] delivers out of band.
type OTPMessage struct {
	Purpose     OTPPurpose
	Email       string
	DisplayName string
	Code        string
	TTL         time.Duration
}

// CodeSender delivers passcodes. A delivery failure is logged by the Engine
// and does not fail the request.
type CodeSender interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}

// RegisterRequest is the input of [Engine.Register].
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// PendingResult is returned when a code has been issued. It never carries
// the code.
type PendingResult struct {
	Pending          bool   `json:"pending"`
	Email            string `json:"email"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// Profile is the public view of an identity.
type Profile struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	DisplayName string        `json:"displayName"`
	Status      AccountStatus `json:"status"`
	Roles       []string      `json:"roles"`
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}

// TokenPair is returned by [Engine.Refresh].
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Claims is the verified content of an access token.
type Claims struct {
	Subject     string
	Email       string
	DisplayName string
	Roles       []string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// HasRole reports whether the claims carry role, compared case-insensitively.
func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func profileOf(identity Identity) *Profile {
	return &Profile{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Status:      identity.Status,
		Roles:       identity.RoleList(),
	}
}

func splitRoles(roles string) []string {
	parts := strings.Split(roles, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
