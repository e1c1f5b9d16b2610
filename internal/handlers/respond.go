package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
)

var errInvalidJSON = errors.New("Invalid JSON")

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.New("Failed to read request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		if errors.Is(err, models.ErrValidation) {
			return err
		}
		return errInvalidJSON
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// statusFor maps store and validation errors to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, db.ErrInvalidID),
		errors.Is(err, db.ErrNoFields):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err as a plain-text message. Server-side failures are
// logged with the operation that hit them.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"op":     op,
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
	}
	http.Error(w, err.Error(), status)
}
