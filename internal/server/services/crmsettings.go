package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/logging"
)

// SettingsView is the masked representation returned to operators.
// Secrets never leave the server; only their presence is reported.
type SettingsView struct {
	Username         string     `json:"username"`
	LoginURL         string     `json:"loginUrl"`
	Sandbox          bool       `json:"isSandbox"`
	HasPassword      bool       `json:"hasPassword"`
	HasSecurityToken bool       `json:"hasSecurityToken"`
	Source           crm.Source `json:"source"`
	Connected        bool       `json:"connected"`
}

// CRMSettingsService manages operator-supplied CRM credentials with a
// probe-before-save contract: new credentials are persisted only after a
// successful live probe, so a typo can never silently break the sync
// engine. The previous credentials stay active if the probe fails.
type CRMSettingsService struct {
	// mu guards current and is only held for short copies, never across
	// network calls.
	mu sync.Mutex

	// updateMu serializes credential changes (Update, Reset, Load) so a
	// probe always runs against the candidate it just activated.
	updateMu sync.Mutex

	sessions *crm.SessionManager
	executor *crm.Executor
	file     string
	logger   logging.Logger

	current *crm.Settings
}

func NewCRMSettingsService(sessions *crm.SessionManager, executor *crm.Executor, file string, logger logging.Logger) *CRMSettingsService {
	return &CRMSettingsService{
		sessions: sessions,
		executor: executor,
		file:     file,
		logger:   logger,
	}
}

// Load reads persisted settings at startup, if any, and activates them.
// A missing file is the normal first-run state.
func (s *CRMSettingsService) Load(ctx context.Context) error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading settings file: %w", err)
	}

	settings := &crm.Settings{}
	if err := json.Unmarshal(data, settings); err != nil {
		return fmt.Errorf("error parsing settings file: %w", err)
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	s.sessions.SetCredentials(settings)

	s.logger.Info(ctx, "loaded saved CRM settings", "username", settings.Username)
	return nil
}

// View returns the masked current settings plus live connection state.
func (s *CRMSettingsService) View(ctx context.Context) SettingsView {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	view := SettingsView{
		Source:    s.sessions.Source(),
		Connected: s.sessions.Connected(),
	}
	if current != nil {
		view.Username = current.Username
		view.LoginURL = current.LoginURL
		view.Sandbox = current.Sandbox
		view.HasPassword = current.Password != ""
		view.HasSecurityToken = current.SecurityToken != ""
	}
	return view
}

// Update activates the candidate credentials, probes the org, and
// persists them only if the probe connects. On a failed probe the
// previous credentials are restored and the probe result is returned so
// the operator sees the CRM's error.
func (s *CRMSettingsService) Update(ctx context.Context, settings crm.Settings) (crm.ProbeResult, error) {
	if settings.Username == "" || settings.Password == "" {
		return crm.ProbeResult{}, common.ErrorValidation
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.Lock()
	previous := s.current
	s.mu.Unlock()

	s.sessions.SetCredentials(&settings)
	result := s.executor.Probe(ctx)

	if !result.Connected {
		s.sessions.SetCredentials(previous)
		s.logger.Warn(ctx, "rejected CRM settings, probe failed",
			"username", settings.Username, "error", result.Error)
		return result, nil
	}

	if err := s.persist(&settings); err != nil {
		s.sessions.SetCredentials(previous)
		return result, err
	}

	s.mu.Lock()
	s.current = &settings
	s.mu.Unlock()
	s.logger.Info(ctx, "saved CRM settings", "username", settings.Username)
	return result, nil
}

// Reset discards saved credentials and disconnects; the engine falls back
// to the environment or demo tier.
func (s *CRMSettingsService) Reset(ctx context.Context) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	if err := os.Remove(s.file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing settings file: %w", err)
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.sessions.SetCredentials(nil)
	s.sessions.Disconnect()

	s.logger.Info(ctx, "cleared CRM settings")
	return nil
}

// Probe re-checks connectivity with whatever credentials are active.
func (s *CRMSettingsService) Probe(ctx context.Context) crm.ProbeResult {
	return s.executor.Probe(ctx)
}

func (s *CRMSettingsService) persist(settings *crm.Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.file, data, 0o600); err != nil {
		return fmt.Errorf("error writing settings file: %w", err)
	}
	return nil
}
