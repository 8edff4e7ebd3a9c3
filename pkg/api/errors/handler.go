// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors translates the gateway error taxonomy into HTTP responses.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/logger"
)

// HandlerWithError is an HTTP handler that reports failure by returning an
// error instead of writing its own error response. The ErrorHandler decorator
// owns the translation to a status code and body, so route handlers stay
// focused on their success path.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// errorBody is the JSON error payload. Type carries the taxonomy tag so
// clients can branch without parsing the message.
type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// ErrorHandler converts a returned error into an HTTP response using the
// status mapping of errors.Code. Client-caused failures (4xx) surface their
// message; anything 5xx is logged with the request id and answered with the
// bare status text so internals never leak.
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		code := errors.Code(err)
		body := errorBody{Error: err.Error(), Type: errors.TypeOf(err)}

		if code >= http.StatusInternalServerError {
			logger.Errorw("request failed",
				"status", code,
				"error", err.Error(),
				"request_id", middleware.GetReqID(r.Context()),
			)
			body.Error = http.StatusText(code)
			body.Type = ""
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
			logger.Debugf("failed to write error response: %v", encodeErr)
		}
	}
}
