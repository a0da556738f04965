package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eyedocs/caredesk/internal/logging"
)

// callTimeout bounds every data call; a request past it is a failure,
// never left pending.
const callTimeout = 30 * time.Second

// Client issues REST calls against the connected org. It reads the session
// through the SessionManager on every call and never mutates it.
type Client struct {
	sessions *SessionManager
	http     *http.Client
	logger   logging.Logger
}

func NewClient(sessions *SessionManager, httpClient *http.Client, logger logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: callTimeout}
	}
	return &Client{sessions: sessions, http: httpClient, logger: logger}
}

type queryResult struct {
	TotalSize int `json:"totalSize"`
	Records   []struct {
		ID string `json:"Id"`
	} `json:"records"`
}

// Query runs a SOQL query and returns the raw result.
func (c *Client) Query(ctx context.Context, soql string) (*queryResult, error) {
	sess, err := c.sessions.current()
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/query?q=%s", sess.instanceURL, sess.apiVersion, url.QueryEscape(soql))

	body, status, err := c.do(ctx, http.MethodGet, endpoint, sess.accessToken, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &RemoteError{Op: "query", StatusCode: status, Body: excerpt(body)}
	}

	var result queryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("crm: malformed query response: %w", err)
	}
	return &result, nil
}

// CreateObject inserts a record of the given sobject type and returns the
// new remote id.
func (c *Client) CreateObject(ctx context.Context, objectType string, fields map[string]any) (string, error) {
	sess, err := c.sessions.current()
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/%s", sess.instanceURL, sess.apiVersion, objectType)

	body, status, err := c.do(ctx, http.MethodPost, endpoint, sess.accessToken, fields)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", &RemoteError{Op: "create " + objectType, StatusCode: status, Body: excerpt(body)}
	}

	var result struct {
		ID      string `json:"id"`
		Success bool   `json:"success"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("crm: malformed create response: %w", err)
	}
	if result.ID == "" {
		return "", &RemoteError{Op: "create " + objectType, StatusCode: status, Body: "no id in response"}
	}
	return result.ID, nil
}

// UpdateObject patches an existing record by remote id.
func (c *Client) UpdateObject(ctx context.Context, objectType, recordID string, fields map[string]any) error {
	sess, err := c.sessions.current()
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/%s/%s", sess.instanceURL, sess.apiVersion, objectType, recordID)

	body, status, err := c.do(ctx, http.MethodPatch, endpoint, sess.accessToken, fields)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return &RemoteError{Op: "update " + objectType, StatusCode: status, Body: excerpt(body)}
	}
	return nil
}

// DeleteObject removes a record by remote id.
func (c *Client) DeleteObject(ctx context.Context, objectType, recordID string) error {
	sess, err := c.sessions.current()
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/%s/%s", sess.instanceURL, sess.apiVersion, objectType, recordID)

	body, status, err := c.do(ctx, http.MethodDelete, endpoint, sess.accessToken, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return &RemoteError{Op: "delete " + objectType, StatusCode: status, Body: excerpt(body)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, payload map[string]any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("crm: encoding payload: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("crm: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("crm: transport: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return body, resp.StatusCode, nil
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
