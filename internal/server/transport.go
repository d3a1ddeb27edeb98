package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
)

// Mount serves h below prefix, e.g. "/api" for a base URL of http://host/api.
func Mount(prefix string, h http.Handler) http.Handler {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return h
	}
	return http.StripPrefix(prefix, h)
}

// MockTransport is an [http.RoundTripper] that serves requests with an in-process handler.
type MockTransport struct {
	Handler http.Handler
}

// NewMockTransport wraps handler, usually the result of [NewMockHandler].
func NewMockTransport(handler http.Handler) *MockTransport {
	return &MockTransport{Handler: handler}
}

// RoundTrip implements [http.RoundTripper].
func (t *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		defer req.Body.Close()
	}

	rec := httptest.NewRecorder()
	t.Handler.ServeHTTP(rec, req)

	if err := req.Context().Err(); err != nil {
		return nil, fmt.Errorf("mock transport: %w", err)
	}

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
