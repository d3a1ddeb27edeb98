package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// Fallback messages shown when the API does not explain a failure.
const (
	MsgListFailed   = "failed to load projects"
	MsgGetFailed    = "failed to load project"
	MsgCreateFailed = "failed to create project"
	MsgDeleteFailed = "failed to delete project"
	MsgToggleFailed = "failed to change project visibility"
)

// API is the request pipeline services send through.
type API interface {
	Do(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// Error pairs a user-facing message with the failure behind it.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func failure(err error, fallback string) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Status == http.StatusNotFound {
		err = errors.Join(shared.ErrProjectNotFound, err)
	}
	return &Error{Message: gateway.Message(err, fallback), Err: err}
}
