package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"linkinpurry/backend/apperr"
)

// Envelope is the uniform body of every REST response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Body    interface{} `json:"body"`
}

// WriteJSON writes an envelope with the given status.
func WriteJSON(w http.ResponseWriter, status int, message string, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := Envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Body:    body,
	}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Error().Err(err).Msg("error encoding response")
	}
}

// OK writes a 200 envelope.
func OK(w http.ResponseWriter, message string, body interface{}) {
	WriteJSON(w, http.StatusOK, message, body)
}

// WriteError maps err onto the envelope. Internal causes are logged, never returned.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Code == apperr.CodeInternal {
		log.Error().Err(err).
			Str("request_id", RequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	WriteJSON(w, apperr.HTTPStatus(appErr.Code), appErr.Message, nil)
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.InvalidOperation("invalid request body")
	}
	return nil
}

// PathID parses the named mux variable as a user or row id.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidOperation("invalid " + name)
	}
	return id, nil
}
