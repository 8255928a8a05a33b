package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Envelope wraps every response body.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    any    `json:"data"`
}

type errorData struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Status:  status,
		Data:    data,
	})
}

func writeErrorMessage(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, message, errorData{Error: detail})
}

// errorStatus maps service errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrResetCodeInvalid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err with a message for the failed action. Internal
// errors are logged and their detail hidden from the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := errorStatus(err)
	detail := err.Error()
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		detail = verr.Message
	}
	if status == http.StatusInternalServerError {
		h.logger.Error(action,
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		detail = "internal server error"
	}
	writeErrorMessage(w, status, action, detail)
}

// decodeJSON reads a JSON body into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return &service.ValidationError{Message: "request body is required"}
		case errors.As(err, &maxErr):
			return &service.ValidationError{Message: fmt.Sprintf("request body must not exceed %d bytes", maxBodyBytes)}
		default:
			return &service.ValidationError{Message: "invalid JSON body: " + strings.TrimPrefix(err.Error(), "json: ")}
		}
	}
	return nil
}
