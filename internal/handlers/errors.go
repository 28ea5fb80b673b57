package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"inventar-backend/internal/auth"
	"inventar-backend/internal/middleware"
	"inventar-backend/internal/services"
	"inventar-backend/internal/store"
	"inventar-backend/pkg/utils"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// writeError maps service and store errors onto status codes. Unknown errors
// are logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrLocationCycle):
		utils.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		utils.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrSignupClosed):
		utils.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrLocationInUse):
		utils.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrInUse):
		utils.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrBackupUploadDisabled):
		utils.Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.WithFields(log.Fields{
			"component":  "http",
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFromContext(r.Context()),
		}).WithError(err).Error("request failed")
		utils.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses the {id} route variable
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", services.ErrValidation)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", services.ErrValidation, name)
	}
	return v, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", services.ErrValidation)
	}
	return nil
}
