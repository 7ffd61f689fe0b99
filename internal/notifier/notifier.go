// Package notifier emails users about terminal publish failures. The
// dashboard surfaces the failure reason too, but nobody watches a
// dashboard at 6am when their scheduled post dies.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v3"

	"github.com/Shivang0/linkedinai/internal/domain"
)

// Notifier reports terminal publish failures to the post's owner.
// Implementations are best-effort: callers log, never propagate.
type Notifier interface {
	PublishFailed(ctx context.Context, user domain.User, post domain.Post, reason string) error
}

// Config holds Resend settings. An empty API key disables notifications.
type Config struct {
	APIKey      string `env:"RESEND_API_KEY"`
	SenderEmail string `env:"RESEND_FROM_EMAIL" envDefault:"notifications@linkedinai.app"`
	SenderName  string `env:"RESEND_FROM_NAME" envDefault:"LinkedinAI"`
}

// Resend implements Notifier over the Resend API.
type Resend struct {
	client *resend.Client
	cfg    Config
	log    *slog.Logger
}

// New creates a Resend notifier.
func New(cfg Config, log *slog.Logger) *Resend {
	return &Resend{
		client: resend.NewClient(cfg.APIKey),
		cfg:    cfg,
		log:    log,
	}
}

// PublishFailed sends the failure email. Content is plain text: this is
// an operational notice, not a marketing surface.
func (n *Resend) PublishFailed(ctx context.Context, user domain.User, post domain.Post, reason string) error {
	if n.cfg.APIKey == "" || user.Email == "" {
		return nil
	}

	excerpt := post.Content
	if len(excerpt) > 80 {
		excerpt = excerpt[:77] + "..."
	}

	_, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", n.cfg.SenderName, n.cfg.SenderEmail),
		To:      []string{user.Email},
		Subject: "Your scheduled LinkedIn post could not be published",
		Text: fmt.Sprintf(
			"We tried to publish your scheduled post but gave up after repeated failures.\n\n"+
				"Post: %q\nReason: %s\n\n"+
				"You can edit and reschedule it from your dashboard.\n",
			excerpt, reason,
		),
	})
	if err != nil {
		return fmt.Errorf("notifier: send failure email: %w", err)
	}

	n.log.InfoContext(ctx, "publish failure notification sent",
		slog.String("user_id", user.ID.String()),
		slog.String("post_id", post.ID.String()),
	)
	return nil
}

// Noop discards all notifications (tests, local development).
type Noop struct{}

func (Noop) PublishFailed(context.Context, domain.User, domain.Post, string) error { return nil }
