// Package sync pushes and pulls the decision collection against a single
// GitHub Gist, gated by an access token that is stored encrypted at rest.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GistFileName is the fixed name of the backup file inside the gist.
const GistFileName = "decision-log-backup.json"

const gistDescription = "Decision Log Backup"

// RemoteError is a non-success response from the gist service. The remote
// error body is the message.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sync: remote service returned %d: %s", e.StatusCode, e.Body)
}

// Client is a minimal GitHub Gist REST client. Single attempt per call;
// retries are a caller concern.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a gist client against baseURL (normally
// https://api.github.com; tests point it at a local server).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type gistFile struct {
	Content string `json:"content"`
}

type gistResponse struct {
	ID        string              `json:"id"`
	Files     map[string]gistFile `json:"files"`
	UpdatedAt string              `json:"updated_at"`
}

// VerifyToken probes the authenticated /user endpoint. It never returns an
// error: any network failure or non-success status reads as false.
func (c *Client) VerifyToken(ctx context.Context, token string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "token "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// CreateGist creates a new secret gist seeded with the backup file and
// returns its id.
func (c *Client) CreateGist(ctx context.Context, token, content string) (string, error) {
	body := map[string]any{
		"description": gistDescription,
		"public":      false,
		"files": map[string]gistFile{
			GistFileName: {Content: content},
		},
	}
	var gist gistResponse
	if err := c.do(ctx, token, http.MethodPost, "/gists", body, &gist); err != nil {
		return "", err
	}
	return gist.ID, nil
}

// UpdateGist overwrites the backup file inside an existing gist.
func (c *Client) UpdateGist(ctx context.Context, token, gistID, content string) error {
	body := map[string]any{
		"files": map[string]gistFile{
			GistFileName: {Content: content},
		},
	}
	return c.do(ctx, token, http.MethodPatch, "/gists/"+gistID, body, nil)
}

// FetchGist retrieves a gist with its file contents.
func (c *Client) FetchGist(ctx context.Context, token, gistID string) (gistResponse, error) {
	var gist gistResponse
	if err := c.do(ctx, token, http.MethodGet, "/gists/"+gistID, nil, &gist); err != nil {
		return gistResponse{}, err
	}
	return gist, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sync: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("sync: build request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sync: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sync: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("sync: decode response: %w", err)
		}
	}
	return nil
}
