// Package httpx writes the JSON result envelope shared by every endpoint:
// {"success": bool, ...fields, "message"?: string}.
package httpx

import (
	"encoding/json"
	"net/http"

	"group-chat/internal/apperr"

	"github.com/charmbracelet/log"
)

type Fields map[string]any

func JSON(w http.ResponseWriter, status int, fields Fields) {
	body := Fields{"success": status < http.StatusBadRequest}
	for k, v := range fields {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("encode response", "err", err)
	}
}

func OK(w http.ResponseWriter, fields Fields) {
	JSON(w, http.StatusOK, fields)
}

func Created(w http.ResponseWriter, fields Fields) {
	JSON(w, http.StatusCreated, fields)
}

func Error(w http.ResponseWriter, err error) {
	e := apperr.As(err)
	fields := Fields{"message": e.Message, "code": e.Kind}
	if e.Kind == apperr.KindStorage {
		fields["error"] = e.Detail()
		log.Error("storage failure", "err", e.Err)
	}
	JSON(w, e.Kind.HTTPStatus(), fields)
}

// Decode reads a JSON body into v, reporting malformed input as InvalidInput.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.InvalidInput("malformed JSON in parameters")
	}
	return nil
}
