// Package memory provides an in-process publisher used when no Pub/Sub
// topic is configured. Batch summaries are retained for inspection
// instead of leaving the process.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// PublishedMessage is one retained batch summary.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// Publisher retains everything published to it. Safe for concurrent use.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
}

// New constructs an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish retains the payload under topic. The returned ID is the
// 1-based position of the message, formatted like a server ID so
// callers can log it uniformly.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, PublishedMessage{Topic: topic, Payload: payload})
	return fmt.Sprintf("memory-%d", len(p.messages)), nil
}

// Messages returns a snapshot of everything published so far.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]PublishedMessage(nil), p.messages...)
}
