package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/config"
	"github.com/sells-group/placemap/internal/dashboard"
	"github.com/sells-group/placemap/internal/orchestrator"
	"github.com/sells-group/placemap/internal/resilience"
)

// Error kinds reported in the "kind" field of error responses.
const (
	KindInvalid       = "invalid"
	KindNotFound      = "not_found"
	KindClient        = "client"
	KindTransient     = "transient"
	KindConfiguration = "configuration"
)

var errSessionNotFound = eris.New("server: session not found")

// errorResponse is the body of every error response.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps err to an HTTP status and an error kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, config.ErrMissingMapToken):
		return http.StatusServiceUnavailable, KindConfiguration
	case errors.Is(err, dashboard.ErrInvalid):
		return http.StatusBadRequest, KindInvalid
	case errors.Is(err, dashboard.ErrNotSelected),
		errors.Is(err, orchestrator.ErrUnknownEntity),
		errors.Is(err, errSessionNotFound):
		return http.StatusNotFound, KindNotFound
	case resilience.IsNotFound(err):
		return http.StatusNotFound, KindNotFound
	case resilience.IsClientError(err):
		return http.StatusBadGateway, KindClient
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, KindTransient
	}
	return http.StatusBadGateway, KindTransient
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= 500 {
		zap.L().Error("server: request failed", zap.String("kind", kind), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decode reads a JSON body into v. Malformed bodies are client errors.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return eris.Wrapf(dashboard.ErrInvalid, "invalid request body: %v", err)
	}
	return nil
}
