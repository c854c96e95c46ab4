// Package notify pushes the finished digest out to chat channels. Each
// channel is a Notifier; delivery fans out over all configured ones and
// counts as success when any of them accepts the message.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FooterLink is the "view everything" link appended to every message.
const FooterLink = "https://hot.tuber.cc/"

// Message is one framed notification.
type Message struct {
	Title    string
	Markdown string
	Plain    string
}

// Notifier delivers one message over one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Format frames the digest with a dated header and the footer link.
func Format(content string, techOnly bool, now time.Time) Message {
	kind := "热点新闻"
	if techOnly {
		kind = "科技热点"
	}
	title := fmt.Sprintf("%s %s %s早报", now.Format("2006-01-02"), now.Format("15:04"), kind)
	return Message{
		Title:    title,
		Markdown: fmt.Sprintf("# %s\n\n%s\n\n[查看全部热点](%s)", title, content, FooterLink),
		Plain:    fmt.Sprintf("%s\n\n%s\n\n查看全部热点: %s", title, content, FooterLink),
	}
}

// Dispatcher fans a message out to every configured channel.
type Dispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewDispatcher builds a dispatcher over the given channels.
func NewDispatcher(logger *zap.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, logger: logger}
}

// Send delivers to all channels and reports whether at least one
// succeeded. Channel failures are logged, not propagated.
func (d *Dispatcher) Send(ctx context.Context, msg Message) bool {
	if len(d.notifiers) == 0 {
		d.logger.Warn("no notification channels configured")
		return false
	}
	ok := false
	for _, n := range d.notifiers {
		if err := n.Send(ctx, msg); err != nil {
			d.logger.Warn("notification failed",
				zap.String("channel", n.Name()), zap.Error(err))
			continue
		}
		d.logger.Info("notification sent", zap.String("channel", n.Name()))
		ok = true
	}
	return ok
}
