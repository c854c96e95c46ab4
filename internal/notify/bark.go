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

// Bark pushes to iOS via a day.app-style server. The key may be a bare
// device key (official server) or a full server URL.
type Bark struct {
	push   string
	client *http.Client
}

// NewBark builds a Bark notifier.
func NewBark(push string) *Bark {
	return &Bark{push: push, client: &http.Client{Timeout: 15 * time.Second}}
}

func (b *Bark) Name() string { return "bark" }

func (b *Bark) Send(ctx context.Context, msg Message) error {
	base := b.push
	if !strings.HasPrefix(base, "http") {
		base = "https://api.day.app/" + base
	}
	endpoint := strings.TrimRight(base, "/") + "/" +
		url.PathEscape(msg.Title) + "/" + url.PathEscape(msg.Plain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("bark push: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Code  int `json:"code"`
		Errno int `json:"errno"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode bark response: %w", err)
	}
	if parsed.Code != 200 && parsed.Code != 0 {
		return fmt.Errorf("bark rejected message: code %d", parsed.Code)
	}
	return nil
}
