// Package notify implements the notification channel over the Telegram Bot
// API. The pipeline is both a producer (alerts out via sendMessage) and a
// consumer (commands in via getUpdates) of this channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: api status %d: %s", e.StatusCode, e.Description)
}

// Retryable reports whether err is a transient delivery failure worth
// retrying: rate limiting, server errors, and oversized payloads (which a
// later attempt may accept once the transport's limit pressure clears).
// Anything else is a fatal send failure.
func Retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// Network-level errors (timeouts, resets) are transient.
		return err != nil
	}
	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return true
	case apiErr.StatusCode >= 500:
		return true
	case strings.Contains(strings.ToLower(apiErr.Description), "message is too long"):
		return true
	default:
		return false
	}
}

// Update is one inbound message polled from the channel. ID is stable across
// redeliveries of the same backlog.
type Update struct {
	ID     int64
	ChatID string
	Text   string
}

// Telegram is a Bot API client.
type Telegram struct {
	apiBase string
	token   string
	client  *http.Client
}

// NewTelegram creates a Telegram client for the given API base URL and bot
// token. It uses a default HTTP client with a 10-second timeout.
func NewTelegram(apiBase, token string) *Telegram {
	return &Telegram{
		apiBase: strings.TrimRight(apiBase, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// apiResponse is the standard Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// Send posts text to the given chat using the sendMessage API. Failures carry
// an *APIError so callers can classify them as retryable or fatal.
func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	payload := map[string]string{
		"chat_id": chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Description: readDescription(resp.Body),
		}
	}
	return nil
}

// Poll fetches pending inbound messages after the given cursor using the
// getUpdates API. It returns the updates oldest first; non-text updates are
// skipped.
func (t *Telegram) Poll(ctx context.Context, cursor int64, limit int) ([]Update, error) {
	payload := map[string]any{
		"offset": cursor,
		"limit":  limit,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("getUpdates"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: poll request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Description: readDescription(resp.Body),
		}
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("telegram: decode poll response: %w", err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("telegram: poll rejected: %s", envelope.Description)
	}

	var raw []struct {
		UpdateID int64 `json:"update_id"`
		Message  *struct {
			Text string `json:"text"`
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	}
	if err := json.Unmarshal(envelope.Result, &raw); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}

	updates := make([]Update, 0, len(raw))
	for _, u := range raw {
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		updates = append(updates, Update{
			ID:     u.UpdateID,
			ChatID: strconv.FormatInt(u.Message.Chat.ID, 10),
			Text:   u.Message.Text,
		})
	}
	return updates, nil
}

// method builds the full URL for a Bot API method.
func (t *Telegram) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.token, name)
}

// readDescription extracts the API error description from a failed response
// body, falling back to the raw body text.
func readDescription(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 1024))

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Description != "" {
		return envelope.Description
	}
	return string(body)
}
