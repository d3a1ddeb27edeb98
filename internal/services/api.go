// Raw API access through the gateway, for debugging commands.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/zipdrop/internal/gateway"
)

// APIService sends arbitrary requests through the gateway and reports the raw result.
type APIService struct {
	api API
}

// NewAPIService creates a new API service instance.
func NewAPIService(api API) *APIService {
	return &APIService{api: api}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, gateway.Request{Method: http.MethodGet, Path: path})
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, gateway.Request{Method: http.MethodPost, Path: path, Body: data})
}

// do returns error statuses as responses so callers can print them. Transport and refresh
// failures are still errors.
func (a *APIService) do(ctx context.Context, req gateway.Request) (*APIResponse, error) {
	resp, err := a.api.Do(ctx, req)
	if err != nil {
		var gwErr *gateway.Error
		if !errors.As(err, &gwErr) || gwErr.Status < http.StatusMultipleChoices {
			return nil, err
		}
		resp = &gateway.Response{StatusCode: gwErr.Status, Body: gwErr.Body}
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       resp.Body,
	}

	var jsonData any
	if err := json.Unmarshal(resp.Body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
