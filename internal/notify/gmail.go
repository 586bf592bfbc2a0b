package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailNotifier delivers emails through the Gmail API using the
// authorized user's mailbox as sender.
type GmailNotifier struct {
	svc  *gmail.Service
	from string
}

var _ Notifier = (*GmailNotifier)(nil)

// NewGmailFromEnv creates a Gmail notifier from environment variables.
// Required: GMAIL_SENDER plus OAuth client and token material, either
// inline (GOOGLE_OAUTH_CLIENT_JSON / GOOGLE_OAUTH_TOKEN_JSON) or as
// files (GOOGLE_OAUTH_CLIENT_FILE / GOOGLE_OAUTH_TOKEN_FILE). The token
// is the one produced by cmd/oauth-init.
func NewGmailFromEnv(ctx context.Context) (*GmailNotifier, error) {
	from := strings.TrimSpace(os.Getenv("GMAIL_SENDER"))
	if from == "" {
		return nil, errors.New("missing GMAIL_SENDER")
	}

	clientJSON, err := readEnvJSON("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	tokenJSON, err := readEnvJSON("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	cfg, err := google.ConfigFromJSON(clientJSON, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	slog.InfoContext(ctx, "Gmail notifier initialized", "sender", from)

	return &GmailNotifier{svc: svc, from: from}, nil
}

// readEnvJSON returns credential bytes from an inline env var or, as a
// fallback, from a file path env var.
func readEnvJSON(inlineKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(inlineKey)); v != "" {
		return []byte(v), nil
	}
	if path := strings.TrimSpace(os.Getenv(fileKey)); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("set %s or %s", inlineKey, fileKey)
}

func (g *GmailNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	raw := buildMIMEMessage(g.from, to, subject, htmlBody)
	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}

	if _, err := g.svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send gmail message: %w", err)
	}

	slog.InfoContext(ctx, "Email sent", "to", to, "subject", subject)
	return nil
}

// buildMIMEMessage assembles a minimal RFC 2822 message with an HTML body.
func buildMIMEMessage(from, to, subject, htmlBody string) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.String()
}
