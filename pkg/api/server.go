// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package api contains the HTTP surface of the aperture gateway: route
// assembly, the shared middleware stack, and the listener lifecycle.
package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aperturehq/aperture/pkg/agent"
	v1 "github.com/aperturehq/aperture/pkg/api/v1"
	"github.com/aperturehq/aperture/pkg/auth"
	"github.com/aperturehq/aperture/pkg/config"
	"github.com/aperturehq/aperture/pkg/logger"
	"github.com/aperturehq/aperture/pkg/ratelimit"
	"github.com/aperturehq/aperture/pkg/session"
	"github.com/aperturehq/aperture/pkg/store"
	"github.com/aperturehq/aperture/pkg/telemetry"
	"github.com/aperturehq/aperture/pkg/vault"
	"github.com/aperturehq/aperture/pkg/worktree"
)

const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second

	// maxRequestBodyBytes bounds REST request bodies. Frame-channel traffic
	// is bounded separately by MAX_MESSAGE_SIZE_BYTES.
	maxRequestBodyBytes = 1 << 20
)

// Deps carries the wired subsystems the HTTP surface serves. Vault is nil
// when no master key is configured and Metrics is nil when telemetry is
// disabled; both are tolerated everywhere downstream.
type Deps struct {
	Config   *config.Config
	Manager  *session.Manager
	Store    store.Store
	Registry *agent.Registry
	Broker   worktree.Broker
	Vault    *vault.Vault
	Metrics  *telemetry.Metrics
}

// Router assembles the full route table and middleware stack. Split out of
// Serve so tests can drive the complete surface through httptest.
func Router(deps Deps) http.Handler {
	gate := auth.NewGate(deps.Config.APIToken)
	limiter := ratelimit.New(deps.Config.RateLimitMax, deps.Config.RateLimitWindow)
	health := v1.NewHealthRoutes(deps.Registry, deps.Store, deps.Config)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		deps.Metrics.Middleware,
		requestBodySizeLimitMiddleware(maxRequestBodyBytes),
		limiter.Middleware,
		gate.Middleware,
	)

	// Request/response endpoints run under a server-side timeout. The
	// sessions router is mounted outside the group because its stream
	// endpoints hold a connection open for the life of a session.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(middlewareTimeout))

		r.Get("/healthz", health.Liveness)
		r.Get("/readyz", health.Readiness)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

		routers := map[string]http.Handler{
			"/v1/credentials": v1.CredentialsRouter(deps.Vault),
			"/v1/workspaces":  v1.WorkspacesRouter(deps.Store, deps.Broker),
		}
		for prefix, router := range routers {
			r.Mount(prefix, router)
		}
	})

	r.Mount("/v1/sessions", v1.SessionsRouter(deps.Manager, deps.Store, deps.Config, deps.Metrics))

	return r
}

// Serve starts the gateway HTTP server and blocks until ctx is cancelled.
// It is assumed that the caller sets up appropriate signal handling.
func Serve(ctx context.Context, deps Deps) error {
	address := deps.Config.Address()

	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              address,
		Handler:           Router(deps),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	logger.Infof("starting HTTP server on %s", address)

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server stopped with error: %v", err)
		}
	}()

	<-ctx.Done()

	// The parent context is already cancelled; drain with a fresh deadline
	// so in-flight requests get the configured grace period.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Infof("HTTP server stopped")
	return nil
}

// requestLogger logs one line per completed request with status, size and
// duration. Stream endpoints log when the connection finally closes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requestBodySizeLimitMiddleware rejects oversized REST bodies. Requests
// that declare an oversized Content-Length fail fast with 413; chunked
// uploads are capped by http.MaxBytesReader, and a handler that surfaces
// the resulting read failure as a 400 has its status rewritten to 413 so
// clients can tell "too large" from "malformed".
func requestBodySizeLimitMiddleware(maxSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxSize {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}
			body := &limitTrackingBody{ReadCloser: http.MaxBytesReader(w, r.Body, maxSize)}
			r.Body = body
			next.ServeHTTP(&bodySizeResponseWriter{ResponseWriter: w, body: body}, r)
		})
	}
}

// limitTrackingBody records whether MaxBytesReader tripped while the
// handler was reading.
type limitTrackingBody struct {
	io.ReadCloser
	exceeded bool
}

func (b *limitTrackingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		b.exceeded = true
	}
	return n, err
}

// bodySizeResponseWriter upgrades a handler-written 400 to 413 when the
// body limit was the actual cause of the failure.
type bodySizeResponseWriter struct {
	http.ResponseWriter
	body        *limitTrackingBody
	wroteHeader bool
}

func (w *bodySizeResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if code == http.StatusBadRequest && w.body.exceeded {
		code = http.StatusRequestEntityTooLarge
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodySizeResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

// Flush lets streaming handlers behind the middleware flush through.
func (w *bodySizeResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is required for WebSocket upgrades through the middleware chain.
func (w *bodySizeResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
