// Package notify wraps the Telegram Bot API surface the scanner needs:
// sending messages and long-polling updates for commands.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

type TelegramClient struct {
	token  string
	base   string
	client *http.Client
}

// NewTelegram builds a client for the given bot token. base overrides the
// API host, which tests use to point at a local server.
func NewTelegram(token, base string) *TelegramClient {
	if base == "" {
		base = defaultAPIBase
	}
	return &TelegramClient{
		token: token,
		base:  base,
		// Long polls hold the connection open for up to 30s; leave headroom.
		client: &http.Client{Timeout: 40 * time.Second},
	}
}

// Update is one inbound event from getUpdates. Only message text matters
// here; everything else Telegram sends is ignored.
type Update struct {
	ID      int64 `json:"update_id"`
	Message struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			ID int64 `json:"id"`
		} `json:"from"`
	} `json:"message"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// SendMessage posts Markdown text to one chat.
func (t *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]string{
		"chat_id":    strconv.FormatInt(chatID, 10),
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	_, err = t.call(ctx, "sendMessage", body)
	return err
}

// GetUpdates long-polls for updates past offset. A timeout with no updates
// returns an empty slice, not an error.
func (t *TelegramClient) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":  offset,
		"timeout": 30,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal payload: %w", err)
	}

	raw, err := t.call(ctx, "getUpdates", body)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}
	return updates, nil
}

func (t *TelegramClient) call(ctx context.Context, method string, body []byte) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/bot%s/%s", t.base, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("telegram: %s: unexpected status %d: %s", method, resp.StatusCode, string(respBody))
	}

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !api.OK {
		return nil, fmt.Errorf("telegram: %s rejected: %s", method, api.Description)
	}
	return api.Result, nil
}
