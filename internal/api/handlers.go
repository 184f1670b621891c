package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/datadesk/internal/storage"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.progress.Snapshot())
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.respondWithError(w, http.StatusNotFound, "run storage is not configured")
		return
	}
	dataset := chi.URLParam(r, "dataset")
	info, err := s.runs.LatestRun(r.Context(), dataset)
	if errors.Is(err, storage.ErrRunNotFound) {
		s.respondWithError(w, http.StatusNotFound, "no runs stored for "+dataset)
		return
	}
	if err != nil {
		s.logger.Error("failed to get latest run", zap.String("dataset", dataset), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not retrieve run")
		return
	}
	s.respondWithJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"status": "healthy"}
	code := http.StatusOK
	for name, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthStatus["status"] = "degraded"
			code = http.StatusServiceUnavailable
			s.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}
	s.respondWithJSON(w, code, healthStatus)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		code, response = http.StatusInternalServerError, []byte(`{"error":"encoding failed"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
