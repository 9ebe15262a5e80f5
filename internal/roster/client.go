// Package roster verifies teacher emails against the upstream roster. The
// same spreadsheet endpoint that serves the catalogue answers login lookups
// through its action=login query.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FallbackMessage is shown when the upstream rejects a login without saying
// why.
const FallbackMessage = "Login failed. Please contact Academic Team."

// Verdict is the upstream's answer to a login lookup.
type Verdict struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type Client struct {
	sourceURL string
	client    *http.Client
}

func New(sourceURL string, timeout time.Duration) *Client {
	return &Client{
		sourceURL: sourceURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// Verify asks the upstream whether the email belongs to a registered
// teacher. Transport and decode failures return an error; a rejection is not
// an error, it is a Verdict with Success false and the upstream's message
// (or the documented fallback) filled in.
func (c *Client) Verify(ctx context.Context, email string) (Verdict, error) {
	separator := "?"
	if strings.Contains(c.sourceURL, "?") {
		separator = "&"
	}
	target := c.sourceURL + separator + "action=login&email=" + url.QueryEscape(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Verdict{}, fmt.Errorf("build login request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("login lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Verdict{}, fmt.Errorf("login lookup: unexpected status %d", resp.StatusCode)
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return Verdict{}, fmt.Errorf("decode login response: %w", err)
	}

	// A success without a name is unusable for the welcome screen; treat it
	// as a rejection rather than greeting an empty string.
	if verdict.Success && strings.TrimSpace(verdict.Name) == "" {
		verdict.Success = false
	}
	if !verdict.Success && strings.TrimSpace(verdict.Message) == "" {
		verdict.Message = FallbackMessage
	}
	return verdict, nil
}
