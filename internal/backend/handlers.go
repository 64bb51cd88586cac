// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/farabi/internal/gateway"
)

// maxRequestBody bounds decoded request bodies.
const maxRequestBody = 32 << 20

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Farabi Research Engine API", "status": "running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gateway.HealthResponse{Status: "healthy"})
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, s.Interview)
}

func (s *Server) handleDecompose(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, func(ctx context.Context, req gateway.DecomposeRequest) (gateway.DecomposeResponse, error) {
		return s.Decompose(ctx, req), nil
	})
}

func (s *Server) handleMultiSearch(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, s.MultiSearch)
}

func (s *Server) handleFetchContent(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, s.FetchContent)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, s.Analyze)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, s.Report)
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, s.Script)
}

func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	serve(s, w, r, s.SaveProject)
}

// serve decodes and validates a Req body, runs op, and writes its result or
// error as JSON.
func serve[Req, Resp any](s *Server, w http.ResponseWriter, r *http.Request, op func(context.Context, Req) (Resp, error)) {
	var req Req
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := op(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var be *Error
		if errors.As(err, &be) {
			status = be.Status
		}
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, gateway.ErrorResponse{Detail: detail})
}

