package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Telegram delivers via the Bot API sendMessage method.
type Telegram struct {
	apiHost string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegram builds a Telegram notifier. apiHost may be empty for the
// official endpoint.
func NewTelegram(apiHost, token, chatID string) *Telegram {
	if apiHost == "" {
		apiHost = "api.telegram.org"
	}
	return &Telegram{
		apiHost: apiHost,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, msg Message) error {
	endpoint := fmt.Sprintf("https://%s/bot%s/sendMessage", t.apiHost, t.token)

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", msg.Markdown)
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telegram: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram rejected message: %s", parsed.Description)
	}
	return nil
}
