package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yichen/compass/backend/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondDomainError maps domain sentinel errors onto HTTP statuses
func respondDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, contracts.ErrStrategyNotFound),
		errors.Is(err, contracts.ErrInstrumentNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contracts.ErrEmptyUniverse),
		errors.Is(err, contracts.ErrInvalidWeights),
		errors.Is(err, contracts.ErrInsufficientHistory):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
