// Package backend talks to the remote conversational service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
)

var (
	// ErrNetwork covers failures to reach the backend at all.
	ErrNetwork = errors.New("backend unreachable")
	// ErrBadResponse covers non-success statuses and unusable bodies.
	ErrBadResponse = errors.New("backend returned a bad response")
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 512

// Client calls the chat endpoint of one backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for baseURL. A nil httpClient uses
// http.DefaultClient, so timeouts are whatever the transport applies.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the endpoint root this client posts to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ChatURL returns the chat endpoint for chatbotID.
func (c *Client) ChatURL(chatbotID string) string {
	return fmt.Sprintf("%s/api/v1/chatbots/%s/chat", c.baseURL, url.PathEscape(chatbotID))
}

// Chat posts one user message and returns the backend's answer.
func (c *Client) Chat(ctx context.Context, chatbotID string, req chat.ChatRequest) (*chat.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ChatURL(chatbotID), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "post %s: %v", httpReq.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errors.Wrapf(ErrBadResponse, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chat.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrapf(ErrBadResponse, "decode body: %v", err)
	}
	if out.Response == nil {
		return nil, errors.Wrap(ErrBadResponse, "body has no response field")
	}
	return &out, nil
}
