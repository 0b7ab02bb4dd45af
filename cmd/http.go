// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Thermoquad/devrunner/pkg/devlink"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// statusServer exposes a read-only view of a running agent
type statusServer struct {
	engine *devlink.Engine
	srv    *http.Server
}

func newStatusServer(addr string, engine *devlink.Engine) *statusServer {
	s := &statusServer{engine: engine}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *statusServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Get("/commands", s.commands)

	return r
}

// requestLogger logs each request through zerolog. stdout may be the
// protocol transport, so chi's stdout logger must not be used here.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			log.Info().
				Str("component", "http").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// start serves in the background; a listen failure is logged
func (s *statusServer) start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("status endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", s.srv.Addr).Msg("status endpoint failed")
		}
	}()
}

func (s *statusServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("status endpoint shutdown")
	}
}

func (s *statusServer) health(w http.ResponseWriter, r *http.Request) {
	state := "running"
	if s.engine.Exited() {
		state = "exited"
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"agent":  state,
	})
}

func (s *statusServer) status(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.engine.Snapshot())
}

func (s *statusServer) commands(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"commands": s.engine.Commands(),
	})
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
