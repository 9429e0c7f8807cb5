package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"trendsetter/accounts"
	"trendsetter/relations"
	"trendsetter/storage"
	"trendsetter/utils"

	log "github.com/sirupsen/logrus"
)

const maxJsonBodySize = 1 << 20

func sendError(w http.ResponseWriter, errorCode int, message string) {
	utils.SendError(w, errorCode, message)
}

func sendJson(w http.ResponseWriter, statusCode int, value any) {
	utils.SendJson(w, statusCode, value)
}

// writeError maps domain errors to responses. subject names the resource in
// not-found messages. Unexpected errors are logged and hidden from clients.
func writeError(w http.ResponseWriter, err error, subject string) {
	var validationError *utils.ValidationError
	var maxBytesError *http.MaxBytesError

	switch {
	case errors.As(err, &validationError):
		sendError(w, http.StatusBadRequest, validationError.Message)
	case errors.As(err, &maxBytesError):
		sendError(w, http.StatusBadRequest, "Request body too large")
	case errors.Is(err, storage.ErrDuplicateEmail):
		sendError(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, storage.ErrDuplicateUsername):
		sendError(w, http.StatusBadRequest, "Username already taken")
	case errors.Is(err, accounts.ErrInvalidCredentials):
		sendError(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, relations.ErrSelfFollow):
		sendError(w, http.StatusBadRequest, "You can't follow yourself")
	case errors.Is(err, storage.ErrNotFound):
		sendError(w, http.StatusNotFound, subject+" not found")
	default:
		log.Errorf("Unexpected error: %v", err)
		sendError(w, http.StatusInternalServerError, "Server error")
	}
}

func decodeJson(w http.ResponseWriter, r *http.Request, value any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJsonBodySize))
	if err := decoder.Decode(value); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return utils.NewValidationError("Request body is required")
		}
		return utils.NewValidationError("Invalid JSON body")
	}
	return nil
}
