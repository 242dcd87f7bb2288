// Package smsapi sends text messages through the SMSAPI gateway. This is the
// only channel back to the parent: both confirmations and validation errors
// go through Send.
package smsapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultSendURL = "https://api.smsapi.pl/sms.do"

type Client struct {
	token  string
	client *http.Client
	logger *slog.Logger
	apiURL string
}

func NewClient(token, apiURL string, logger *slog.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultSendURL
	}
	return &Client{
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		apiURL: apiURL,
	}
}

// Send delivers one message to one recipient. The gateway reports some
// failures with a 200 response and an ERROR body, so both are checked.
func (c *Client) Send(ctx context.Context, to, message string) error {
	params := url.Values{}
	params.Set("to", to)
	params.Set("message", message)
	params.Set("encoding", "utf-8")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("smsapi post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("smsapi returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if strings.HasPrefix(string(body), "ERROR") {
		return fmt.Errorf("smsapi error: %s", strings.TrimSpace(string(body)))
	}

	c.logger.Debug("sms sent", "to", to, "length", len(message))
	return nil
}
