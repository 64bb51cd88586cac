// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"net/http"

	"github.com/pdiddy/farabi/internal/gateway"
)

// registerRoutes sets up every backend endpoint.
func (s *Server) registerRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET "+gateway.PathHealth, s.handleHealth)
	mux.HandleFunc("POST "+gateway.PathInterview, s.handleInterview)

	mux.HandleFunc("POST "+gateway.PathDecompose, s.handleDecompose)
	mux.HandleFunc("POST "+gateway.PathMultiSearch, s.handleMultiSearch)
	mux.HandleFunc("POST "+gateway.PathFetch, s.handleFetchContent)
	mux.HandleFunc("POST "+gateway.PathAnalyze, s.handleAnalyze)
	mux.HandleFunc("POST "+gateway.PathReport, s.handleReport)
	mux.HandleFunc("POST "+gateway.PathScript, s.handleScript)

	mux.HandleFunc("POST "+gateway.PathSaveProject, s.handleSaveProject)

	return s.corsMiddleware(mux)
}

func (s *Server) isAllowedOrigin(origin string) bool {
	_, ok := s.origins[origin]
	return ok
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Vary", "Origin")
			if s.isAllowedOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
		}

		if r.Method == http.MethodOptions {
			if origin != "" && !s.isAllowedOrigin(origin) {
				writeError(w, http.StatusForbidden, "origin not allowed")
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
