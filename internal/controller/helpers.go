package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{domainErrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrUnknownPlatform, http.StatusBadRequest, "unknown_platform"},
	{domainErrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domainErrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domainErrors.ErrNoRefreshToken, http.StatusConflict, "account_not_connected"},
	{domainErrors.ErrMaxRetriesExceeded, http.StatusConflict, "max_retries_exceeded"},
	{domainErrors.ErrRateLimited, http.StatusTooManyRequests, "marketplace_rate_limited"},
	{domainErrors.ErrTokenRefreshFailed, http.StatusBadGateway, "token_refresh_failed"},
	{domainErrors.ErrNetwork, http.StatusBadGateway, "marketplace_unreachable"},
	{domainErrors.ErrDecoding, http.StatusBadGateway, "marketplace_bad_response"},
	{domainErrors.ErrInvalidResponse, http.StatusBadGateway, "marketplace_bad_response"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := errorResponse(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unhandled error in handler")
	}
	writeJSON(w, status, resp)
}

func errorResponse(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		return http.StatusBadRequest, resp
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			return m.status, resp
		}
	}

	var httpErr *domainErrors.HTTPError
	if errors.As(err, &httpErr) {
		resp.Code = "marketplace_error"
		return http.StatusBadGateway, resp
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		return http.StatusUnprocessableEntity, resp
	}

	resp.Code = "internal_error"
	resp.Error = "internal server error"
	return http.StatusInternalServerError, resp
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}

func parseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domainErrors.NewValidationError(field, "must be a UUID")
	}
	return id, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates. An empty value yields def.
func parseTime(raw, field string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, domainErrors.NewValidationError(field, "must be RFC 3339 or YYYY-MM-DD")
}
