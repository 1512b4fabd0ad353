package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"shop-insights/internal/domain"

	"github.com/rs/zerolog"
)

// errorBody is the JSON shape of every failed request
type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status hint carried by the error. Store failures
// and unknown errors are logged and reported without their internals.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := domain.HTTPStatusOf(err)
	writeJSON(w, status, errorBody{Error: publicMessage(err, status, logger)})
}

func publicMessage(err error, status int, logger zerolog.Logger) string {
	var apiErr *domain.ExternalAPIError
	var checkErr *domain.CredentialCheckError
	if status < http.StatusInternalServerError || errors.As(err, &apiErr) || errors.As(err, &checkErr) {
		return err.Error()
	}
	logger.Error().Err(err).Msg("Request failed")
	return "internal error"
}
