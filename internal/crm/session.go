package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eyedocs/caredesk/internal/logging"
)

// apiVersion is the CRM REST API version all requests are issued against.
const apiVersion = "v58.0"

// authTimeout bounds the token exchange; a hung login must not stall a
// local write beyond one round trip.
const authTimeout = 30 * time.Second

// session holds the authenticated connection state. It is owned exclusively
// by the SessionManager and handed to the wire client only as a copy.
type session struct {
	accessToken string
	instanceURL string
	apiVersion  string
	connected   bool
}

// SessionConfig carries the static pieces of the connection: the OAuth
// client pair for the username-password grant and the environment credential
// tier. HTTPClient is replaceable for tests; when nil a client with the
// standard auth timeout is used.
type SessionConfig struct {
	ClientID     string
	ClientSecret string
	Env          EnvCredentials
	HTTPClient   *http.Client
}

// SessionManager owns the lifecycle of the authenticated CRM connection:
// lazy connect on first use, forced re-auth after a credential change, and
// explicit disconnect. All methods are safe for concurrent use; concurrent
// sync attempts share a single in-flight login.
type SessionManager struct {
	mu sync.Mutex

	client *http.Client
	logger logging.Logger

	clientID     string
	clientSecret string
	env          EnvCredentials
	user         *Settings

	// dirty forces the next EnsureSession to re-authenticate even if a
	// session is currently live.
	dirty bool

	sess session
}

func NewSessionManager(cfg SessionConfig, logger logging.Logger) *SessionManager {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: authTimeout}
	}
	return &SessionManager{
		client:       client,
		logger:       logger,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		env:          cfg.Env,
	}
}

// SetCredentials replaces the user-settings credential tier. Passing nil
// falls back to the environment/demo tiers. The next EnsureSession
// re-authenticates regardless of current state.
func (m *SessionManager) SetCredentials(s *Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = s
	m.dirty = true
}

// Disconnect clears the session. Idempotent.
func (m *SessionManager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = session{}
}

// Connected reports whether a live session is held.
func (m *SessionManager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.connected
}

// Source returns the tier the current credential resolution would use.
func (m *SessionManager) Source() Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ResolveCredentials(m.user, m.env).Source
}

// EnsureSession makes sure a live session exists, authenticating if needed.
// A no-op when connected and credentials are unchanged. Failures leave the
// manager disconnected and are returned as typed errors; the next sync
// attempt retries, there is no background retry loop.
func (m *SessionManager) EnsureSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess.connected && !m.dirty {
		return nil
	}

	creds := ResolveCredentials(m.user, m.env)
	if creds.Username == "" || creds.Password == "" {
		m.sess = session{}
		return fmt.Errorf("%w (source %s)", ErrMissingCredentials, creds.Source)
	}

	m.logger.Info(ctx, "authenticating with CRM", "source", creds.Source, "loginUrl", creds.LoginURL)

	sess, err := m.authenticate(ctx, creds)
	if err != nil {
		m.sess = session{}
		m.logger.Warn(ctx, "CRM authentication failed", "source", creds.Source, "error", err.Error())
		return err
	}

	m.sess = sess
	m.dirty = false
	m.logger.Info(ctx, "connected to CRM", "instanceUrl", sess.instanceURL, "source", creds.Source)
	return nil
}

// authenticate performs the OAuth2 username-password grant against the
// org's token endpoint. The security token is appended to the password,
// which is the CRM's convention for this flow.
func (m *SessionManager) authenticate(ctx context.Context, creds Credentials) (session, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", m.clientID)
	form.Set("client_secret", m.clientSecret)
	form.Set("username", creds.Username)
	form.Set("password", creds.Password+creds.SecurityToken)

	endpoint := strings.TrimSuffix(creds.LoginURL, "/") + "/services/oauth2/token"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return session{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return session{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return session{}, fmt.Errorf("%w: HTTP %d: %s", ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var auth struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.Unmarshal(body, &auth); err != nil {
		return session{}, fmt.Errorf("%w: malformed token response: %v", ErrAuthFailed, err)
	}
	if auth.AccessToken == "" {
		return session{}, fmt.Errorf("%w: no access token in response", ErrAuthFailed)
	}

	return session{
		accessToken: auth.AccessToken,
		instanceURL: strings.TrimSuffix(auth.InstanceURL, "/"),
		apiVersion:  apiVersion,
		connected:   true,
	}, nil
}

// current returns a copy of the live session or ErrNotConnected.
func (m *SessionManager) current() (session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sess.connected {
		return session{}, ErrNotConnected
	}
	return m.sess, nil
}
