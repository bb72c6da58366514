package authcore

import (
	"context"
	"strings"
)

// GetProfile returns the public view of userID.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Reason: "is required"}
	}
	identity, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, e.storeErr(err, "get user by id")
	}
	return profileOf(identity), nil
}

// UpdateAccountStatus sets the status of userID. Disabling an account
// blocks login and refresh immediately; access tokens already issued stay
// valid until they expire.
func (e *Engine) UpdateAccountStatus(ctx context.Context, userID string, status AccountStatus) (*Profile, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Reason: "is required"}
	}
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "must be one of ACTIVE, PENDING, DISABLED"}
	}

	identity, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, e.storeErr(err, "get user by id")
	}
	if identity.Status == status {
		return profileOf(identity), nil
	}

	previous := identity.Status
	if err := e.users.UpdateStatus(ctx, userID, status); err != nil {
		return nil, e.storeErr(err, "update status")
	}
	identity.Status = status

	e.metricInc(MetricAccountStatusChange)
	e.logger.Info().Str("user_id", userID).Str("from", string(previous)).Str("to", string(status)).Msg("account status changed")
	e.emitAudit(ctx, auditEventAccountStatusChange, true, userID, identity.Email, nil, func() map[string]string {
		return map[string]string{"from": string(previous), "to": string(status)}
	})
	return profileOf(identity), nil
}

// UpdateRoles replaces the role set of userID. Roles are upper-cased and
// de-duplicated. The change reaches tokens at the next login or refresh.
func (e *Engine) UpdateRoles(ctx context.Context, userID string, roles []string) (*Profile, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Reason: "is required"}
	}

	normalized := normalizeRoles(roles)
	if len(normalized) == 0 {
		return nil, &ValidationError{Field: "roles", Reason: "must name at least one role"}
	}
	for _, r := range normalized {
		if strings.ContainsAny(r, ", ") {
			return nil, &ValidationError{Field: "roles", Reason: "must not contain commas or spaces"}
		}
	}

	identity, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, e.storeErr(err, "get user by id")
	}

	joined := strings.Join(normalized, ",")
	if err := e.users.UpdateRoles(ctx, userID, joined); err != nil {
		return nil, e.storeErr(err, "update roles")
	}
	identity.Roles = joined

	e.emitAudit(ctx, auditEventRolesChange, true, userID, identity.Email, nil, func() map[string]string {
		return map[string]string{"roles": joined}
	})
	return profileOf(identity), nil
}

func normalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
