// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBodyLimit = 4096

// drainHandler reads the whole body and reports 200, so MaxBytesReader is
// actually exercised.
var drainHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
})

func postBody(t *testing.T, handler http.Handler, body []byte, contentLength int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(body))
	if contentLength != 0 {
		req.ContentLength = contentLength
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequestBodySizeLimit(t *testing.T) {
	t.Parallel()
	handler := requestBodySizeLimitMiddleware(testBodyLimit)(drainHandler)

	t.Run("under and at the limit pass", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, http.StatusOK, postBody(t, handler, make([]byte, testBodyLimit-1), 0).Code)
		assert.Equal(t, http.StatusOK, postBody(t, handler, make([]byte, testBodyLimit), 0).Code)
		assert.Equal(t, http.StatusOK, postBody(t, handler, nil, 0).Code)
	})

	t.Run("declared oversize rejected before the handler runs", func(t *testing.T) {
		t.Parallel()
		ran := false
		h := requestBodySizeLimitMiddleware(testBodyLimit)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			ran = true
			w.WriteHeader(http.StatusOK)
		}))
		rec := postBody(t, h, make([]byte, testBodyLimit+1), 0)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.False(t, ran, "handler must not see a rejected request")
	})

	t.Run("undeclared oversize tripped mid-read becomes 413", func(t *testing.T) {
		t.Parallel()
		// A handler decoding JSON answers 400 when the capped reader cuts
		// the body short; the middleware rewrites that to 413 because the
		// cap, not the JSON, was the real failure.
		h := requestBodySizeLimitMiddleware(testBodyLimit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var v map[string]any
			if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
				http.Error(w, "invalid JSON request body", http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))

		oversize := []byte(`{"pad":"` + strings.Repeat("x", testBodyLimit+64) + `"}`)
		// Lie about the length so the fast Content-Length check passes.
		rec := postBody(t, h, oversize, testBodyLimit-1)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("genuine 400 on a small body is not rewritten", func(t *testing.T) {
		t.Parallel()
		h := requestBodySizeLimitMiddleware(testBodyLimit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var v map[string]any
			if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
				http.Error(w, "invalid JSON request body", http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		rec := postBody(t, h, []byte("{not json"), 0)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "malformed but small bodies keep their 400")
	})

	t.Run("flush passes through to streaming handlers", func(t *testing.T) {
		t.Parallel()
		h := requestBodySizeLimitMiddleware(testBodyLimit)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			f, ok := w.(http.Flusher)
			require.True(t, ok, "middleware must not hide the flusher")
			_, _ = w.Write([]byte("data: ping\n\n"))
			f.Flush()
		}))
		rec := postBody(t, h, nil, 0)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, rec.Flushed)
	})
}
