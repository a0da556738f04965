// Package crmcheck implements an interactive connectivity check against a
// CRM org. It prompts for credentials on the terminal (secrets without
// echo), performs the OAuth exchange and a test query, and reports the
// outcome without touching any saved settings.
package crmcheck

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/logging"
	"github.com/eyedocs/caredesk/internal/server/config"
)

type App struct {
	config *config.Config
	logger logging.Logger

	in  *bufio.Reader
	out io.Writer
}

func NewApp(c *config.Config, in io.Reader, out io.Writer) *App {
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &App{
		config: c,
		logger: logging.NewSlogLogger(slogger),
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// promptSettings gathers one credential set from the terminal. Enter on the
// username keeps whatever the environment tier provides.
func (app *App) promptSettings() (*crm.Settings, error) {
	username, err := getSimpleText(app.in, "CRM username (leave empty to use SALESFORCE_* environment)", app.out)
	if err != nil {
		return nil, err
	}
	if username == "" {
		return nil, nil
	}

	password, err := getSecret("Password", app.out)
	if err != nil {
		return nil, err
	}

	token, err := getSecret("Security token (Enter if none)", app.out)
	if err != nil {
		return nil, err
	}

	sandbox, err := getSimpleText(app.in, "Sandbox org? (y/N)", app.out)
	if err != nil {
		return nil, err
	}

	loginURL, err := getSimpleText(app.in, "Login URL (Enter for the default)", app.out)
	if err != nil {
		return nil, err
	}

	return &crm.Settings{
		Username:      username,
		Password:      password,
		SecurityToken: token,
		LoginURL:      loginURL,
		Sandbox:       strings.EqualFold(sandbox, "y"),
	}, nil
}

func (app *App) Run(ctx context.Context) error {

	settings, err := app.promptSettings()
	if err != nil {
		return fmt.Errorf("input error: %w", err)
	}

	sessions := crm.NewSessionManager(crm.SessionConfig{
		ClientID:     app.config.CRMClientID,
		ClientSecret: app.config.CRMClientSecret,
		Env: crm.EnvCredentials{
			Username:      app.config.CRMUsername,
			Password:      app.config.CRMPassword,
			SecurityToken: app.config.CRMSecurityToken,
			LoginURL:      app.config.CRMLoginURL,
		},
	}, app.logger)
	sessions.SetCredentials(settings)

	client := crm.NewClient(sessions, nil, app.logger)
	executor := crm.NewExecutor(sessions, client, crm.NewSimulator(0, app.logger), app.logger)

	fmt.Fprintln(app.out, "Checking connection...")
	result := executor.Probe(ctx)

	if result.Connected {
		fmt.Fprintf(app.out, "OK: connected (credentials: %s, checked %s)\n",
			result.Source, result.CheckedAt.Format(time.RFC3339))
		return nil
	}

	fmt.Fprintf(app.out, "FAILED: %s\n", result.Error)
	fmt.Fprintln(app.out, "Writes will fall back to simulation until the connection is fixed.")
	return nil
}
