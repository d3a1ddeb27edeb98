package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// AuthStatusResult is the machine-readable form of `auth status`.
type AuthStatusResult struct {
	Authenticated bool   `json:"authenticated"`
	BaseURL       string `json:"baseUrl"`
	Mock          bool   `json:"mock"`
}

// AuthLogin signs in and stores the token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := models.Credentials{
		Email:    strings.TrimSpace(cmd.String("email")),
		Password: cmd.String("password"),
	}
	if err := shared.ValidateCredentials(creds.Email, creds.Password); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("signing in", "email", creds.Email)
	resp, err := r.store.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, gateway.Message(err, "login failed"))
	}

	return r.writePlain("✓ Signed in as %s\n", accountName(resp, creds.Email))
}

// AuthRegister creates an account and stores the token.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	creds := models.Credentials{
		Email:    strings.TrimSpace(cmd.String("email")),
		Password: cmd.String("password"),
	}
	confirm := creds.Password
	if cmd.IsSet("confirm") {
		confirm = cmd.String("confirm")
	}
	if err := shared.ValidateRegistration(creds.Email, creds.Password, confirm); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("registering", "email", creds.Email)
	resp, err := r.store.Register(ctx, creds)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, gateway.Message(err, "registration failed"))
	}

	return r.writePlain("✓ Account created, signed in as %s\n", accountName(resp, creds.Email))
}

// AuthLogout signs out. The local session is cleared even when the API call fails.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}
	if !r.store.IsAuthenticated() {
		return r.writePlain("Not signed in\n")
	}

	r.store.Logout(ctx)
	return r.writePlain("✓ Signed out\n")
}

// AuthRefresh exchanges the stored token for a new one.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}
	if !r.store.IsAuthenticated() {
		return fmt.Errorf("%w: run 'zipdrop auth login' first", shared.ErrNotAuthenticated)
	}

	if err := r.store.RefreshSession(ctx); err != nil {
		return fmt.Errorf("%w: signed out, run 'zipdrop auth login' again", err)
	}
	return r.writePlain("✓ Session refreshed\n")
}

// AuthStatus reports whether a token is stored and which API it is for.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	status := AuthStatusResult{
		Authenticated: r.store.IsAuthenticated(),
		BaseURL:       r.gateway.BaseURL(),
		Mock:          r.config.API.Mock,
	}
	if cmd.Bool("json") {
		return r.writeJSON(status, false)
	}

	if status.Authenticated {
		r.writePlain("✓ Signed in\n")
	} else {
		r.writePlain("✗ Not signed in\n")
	}
	r.writePlain("API: %s\n", status.BaseURL)
	if status.Mock {
		r.writePlain("Mode: mock\n")
	}
	return nil
}

func accountName(resp *models.AuthResponse, fallback string) string {
	if resp != nil && resp.User != nil && resp.User.Email != "" {
		return resp.User.Email
	}
	return fallback
}
