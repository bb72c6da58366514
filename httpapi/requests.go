package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE PENDING DISABLED active pending disabled"`
}

type updateRolesRequest struct {
	Roles string `json:"roles" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads one JSON object into dst and validates it. Failures are
// returned as *authcore.ValidationError.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &authcore.ValidationError{Field: "body", Reason: "is required"}
		}
		return &authcore.ValidationError{Field: "body", Reason: "must be a JSON object"}
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &authcore.ValidationError{Field: verrs[0].Field(), Reason: reason(verrs[0])}
		}
		return &authcore.ValidationError{Field: "body", Reason: "is invalid"}
	}
	return nil
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "len":
		return "must be " + fe.Param() + " characters"
	case "numeric":
		return "must contain digits only"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of ACTIVE, PENDING, DISABLED"
	default:
		return "is invalid"
	}
}
