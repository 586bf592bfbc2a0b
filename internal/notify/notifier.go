// Package notify delivers alert and report emails. The core only builds
// payloads; delivery goes through the Notifier port so the workers can
// run without a mail backend configured.
package notify

import "context"

// Notifier is the outbound delivery port.
type Notifier interface {
	// Send delivers one HTML email.
	Send(ctx context.Context, to, subject, htmlBody string) error
}
