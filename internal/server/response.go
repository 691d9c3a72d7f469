package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

// errorResponse is the envelope shared by every failing endpoint.
type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// envelope maps err onto its status and response body. Internal faults
// never expose their message; they carry the correlation id instead.
func envelope(err error, requestID string) (int, errorResponse) {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.StatusCode == 0 || appErr.StatusCode == http.StatusInternalServerError {
		return http.StatusInternalServerError, errorResponse{
			Error:   "internal server error",
			Code:    apperrors.CodeInternal,
			Details: "correlation_id=" + requestID,
		}
	}
	return appErr.StatusCode, errorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := RequestIDFrom(r.Context())
	status, body := envelope(err, requestID)

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", body.Code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", fields...)
	} else {
		s.logger.Debug("Request rejected", fields...)
	}
	writeJSON(w, status, body)
}

// decodeBody reads a JSON body, reporting oversize bodies as 413.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewAppError("request body too large", apperrors.CodePayloadTooLarge, http.StatusRequestEntityTooLarge, map[string]any{
				"limit": tooLarge.Limit,
			}).WithCause(err)
		}
		return apperrors.NewValidationError("malformed JSON body: "+err.Error(), "body", nil)
	}
	return nil
}
