package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondErr maps err onto a status: validation is 400, not found is 404
// with notFoundMsg, anything else is a 500 whose detail only reaches the log.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error, operation, notFoundMsg string) {
	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve):
		s.respondError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, schema.ErrValidation):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, schema.ErrNotFound):
		s.respondError(w, http.StatusNotFound, notFoundMsg)
	default:
		s.logger.Error(operation+" failed",
			logging.Operation(operation),
			logging.String("path", r.URL.Path),
			logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, operation+" failed")
	}
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &schema.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}
