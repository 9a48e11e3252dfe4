// Package client talks to the support API over HTTP and the realtime feed
// over WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// APIError is the server's error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("api http error: %s", resp.Status)
		}
		envelope.Error.Status = resp.StatusCode
		return &envelope.Error
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type list[T any] struct {
	Items []T `json:"items"`
}

func (c *Client) Me(ctx context.Context) (models.Profile, error) {
	var p models.Profile
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &p)
	return p, err
}

func (c *Client) Tickets(ctx context.Context, statuses ...string) ([]models.Ticket, error) {
	path := "/api/tickets"
	if len(statuses) > 0 {
		path += "?status=" + url.QueryEscape(strings.Join(statuses, ","))
	}
	var out list[models.Ticket]
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Items, err
}

func (c *Client) Ticket(ctx context.Context, id string) (models.Ticket, error) {
	var t models.Ticket
	err := c.do(ctx, http.MethodGet, "/api/tickets/"+url.PathEscape(id), nil, &t)
	return t, err
}

func (c *Client) Messages(ctx context.Context, ticketID string) ([]models.TicketMessage, error) {
	var out list[models.TicketMessage]
	err := c.do(ctx, http.MethodGet, "/api/tickets/"+url.PathEscape(ticketID)+"/messages", nil, &out)
	return out.Items, err
}

func (c *Client) Notifications(ctx context.Context, unreadOnly bool) ([]models.Notification, error) {
	var out list[models.Notification]
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/notifications?unread=%t", unreadOnly), nil, &out)
	return out.Items, err
}

type VINResult struct {
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized"`
	Message    string `json:"message"`
}

func (c *Client) ValidateVIN(ctx context.Context, vin string) (VINResult, error) {
	var out VINResult
	err := c.do(ctx, http.MethodPost, "/api/vin/validate", map[string]string{"vin": vin}, &out)
	return out, err
}
