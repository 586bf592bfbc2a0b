package notify

import (
	"context"
	"sync"
)

// SentMessage is one recorded delivery.
type SentMessage struct {
	To      string
	Subject string
	Body    string
}

// MemoryNotifier records messages instead of delivering them. Used in
// tests and when no mail backend is configured.
type MemoryNotifier struct {
	mu   sync.Mutex
	sent []SentMessage
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (m *MemoryNotifier) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMessage{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// Sent returns a copy of everything recorded so far.
func (m *MemoryNotifier) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

var _ Notifier = (*MemoryNotifier)(nil)
