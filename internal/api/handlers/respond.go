package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"suitehub/internal/api/middleware"
	"suitehub/internal/engine/access"
	"suitehub/internal/engine/apikeys"
	"suitehub/internal/engine/subscriptions"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/pkg/validator"
	"suitehub/internal/platform/auth"
)

var (
	errNotFound = stderrors.New("resource not found")
	errConflict = stderrors.New("resource already exists")
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v and runs struct validation. It writes the
// 400 response itself and reports whether the handler should continue.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return false
	}
	if err := validator.Struct(v); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed", validator.Details(err))
		return false
	}
	return true
}

// writeDomainError maps engine sentinels onto the error envelope. Anything
// unrecognised is logged and reported as a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case stderrors.Is(err, access.ErrNoTeamSelected):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
	case stderrors.Is(err, access.ErrTeamNotVerified),
		stderrors.Is(err, access.ErrNoPermission),
		stderrors.Is(err, apikeys.ErrNoActiveSubscription),
		stderrors.Is(err, apikeys.ErrSubscriptionInactive):
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, err.Error(), nil)
	case stderrors.Is(err, apikeys.ErrNameRequired),
		stderrors.Is(err, apikeys.ErrNameTooLong),
		stderrors.Is(err, subscriptions.ErrUnknownStatus),
		stderrors.Is(err, subscriptions.ErrUnknownCycle):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
	case stderrors.Is(err, apikeys.ErrKeyNotFound), stderrors.Is(err, errNotFound):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, err.Error(), nil)
	case stderrors.Is(err, apikeys.ErrInvalidKey):
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, err.Error(), nil)
	case stderrors.Is(err, subscriptions.ErrInvalidTransition), stderrors.Is(err, errConflict):
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, err.Error(), nil)
	default:
		internalError(w, r, "Internal server error", err)
	}
}

func internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(message)
	errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, message, nil)
}

func claimsOf(r *http.Request) *auth.Claims {
	return middleware.ClaimsFrom(r.Context())
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
