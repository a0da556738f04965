// Package httpapi exposes the REST surface: a thin JSON layer over the
// application services. Handlers never talk to the CRM; sync state on
// responses is informational only.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eyedocs/caredesk/internal/common"
)

// envelope is the uniform response shape.
type envelope struct {
	Status     string      `json:"status"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func writeJSON(w http.ResponseWriter, code int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Status: "success", Data: data})
}

func writePage(w http.ResponseWriter, data any, total, limit, offset int) {
	writeJSON(w, http.StatusOK, envelope{
		Status:     "success",
		Data:       data,
		Pagination: &pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// writeError maps service errors onto HTTP statuses. Unknown errors are
// reported as a bare 500; details stay in the server log.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, common.ErrorValidation):
		code, message = http.StatusBadRequest, "validation error"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		code, message = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorNotFound):
		code, message = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		code, message = http.StatusConflict, "already exists"
	}

	writeJSON(w, code, envelope{Status: "error", Message: message})
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.ErrorValidation
	}
	return nil
}
