package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docpanel-ai/docpanel/internal/core"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// writeError maps a domain error onto an HTTP status and JSON body.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *core.DomainError
	if !errors.As(err, &domainErr) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Category: string(core.ErrCatInternal),
			Code:     "INTERNAL",
			Message:  err.Error(),
		}})
		return
	}

	writeJSON(w, statusFor(domainErr.Category), errorResponse{Error: errorBody{
		Category: string(domainErr.Category),
		Code:     domainErr.Code,
		Message:  domainErr.Message,
	}})
}

func statusFor(cat core.ErrorCategory) int {
	switch cat {
	case core.ErrCatValidation, core.ErrCatIngestion:
		return http.StatusBadRequest
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatState, core.ErrCatConflict:
		return http.StatusConflict
	case core.ErrCatRateLimit:
		return http.StatusTooManyRequests
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
