package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Code:    status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	info := authcore.Describe(err)
	if info.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Int("code", info.Code).Msg("request failed")
	} else {
		h.logger.Debug().Str("path", r.URL.Path).Str("symbol", info.Symbol).Msg("request rejected")
	}
	middleware.WriteError(w, err)
}
