package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// errorResponse is the only error shape the API renders.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err. Errors outside the domain taxonomy are logged and
// reported as a generic 500.
func writeError(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	de, ok := common.AsDomainError(err)
	if !ok {
		log.Error(ctx, "request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			StatusCode: http.StatusInternalServerError,
			ErrorCode:  common.CodeInternal,
			Message:    "Internal server error",
		})
		return
	}
	writeJSON(w, de.StatusCode, errorResponse{
		StatusCode: de.StatusCode,
		ErrorCode:  de.Code,
		Message:    de.Message,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
