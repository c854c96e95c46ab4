package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Webhook posts the WeCom-style markdown payload to any webhook URL.
// WeCom group bots, and most gateways imitating them, accept this
// shape.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook builds a webhook notifier.
func NewWebhook(url string) *Webhook {
	return &Webhook{url: url, client: &http.Client{Timeout: 15 * time.Second}}
}

func (w *Webhook) Name() string { return "webhook" }

type wecomPayload struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Content string `json:"content"`
	} `json:"markdown"`
}

type wecomResponse struct {
	ErrCode    int `json:"errcode"`
	StatusCode int `json:"StatusCode"`
	Code       int `json:"code"`
}

func (w *Webhook) Send(ctx context.Context, msg Message) error {
	payload := wecomPayload{MsgType: "markdown"}
	payload.Markdown.Content = msg.Markdown
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}

	// Gateways differ on which zero-means-ok field they use; accept
	// any of them, and bodies that are not JSON at all.
	var parsed wecomResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil
	}
	if parsed.ErrCode == 0 && parsed.StatusCode == 0 && parsed.Code == 0 {
		return nil
	}
	return fmt.Errorf("webhook rejected message: %s", string(data))
}
