package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sheikh-saqib/balance-ledger/internal/ledger"
)

const okMessage = "The operation was successful"

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"OK": okMessage})
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrRateServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrMissingField),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidOperationKind),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrUnknownCurrency),
		errors.Is(err, ledger.ErrInvalidField):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
