// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package interview manages the topic-narrowing conversation that precedes
// a research run. The Manager owns an append-only message history, sends
// the whole history to the assistant on every turn, and captures the final
// keywords once the assistant finalizes.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/farabi/pkg/types"
)

// ErrAssistantUnavailable wraps any failure to obtain an assistant turn.
var ErrAssistantUnavailable = errors.New("assistant unavailable")

// ApologyMessage is recorded in place of an assistant reply when the
// assistant cannot be reached.
const ApologyMessage = "Sorry, I'm having trouble connecting right now. Please try again in a moment."

// Assistant produces the next interview decision from the full history.
// *gateway.Client satisfies it.
type Assistant interface {
	ContinueInterview(ctx context.Context, topic string, history []types.ConversationMessage) (types.InterviewDecision, error)
}

// Manager holds one interview conversation. It is safe for use by one
// driving goroutine plus concurrent readers.
type Manager struct {
	assistant Assistant
	topic     string
	log       *zap.Logger
	now       func() time.Time

	mu            sync.RWMutex
	messages      []types.ConversationMessage
	nextID        int
	finalKeywords string
	last          *types.InterviewDecision
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager starts an empty conversation about topic.
func NewManager(assistant Assistant, topic string, opts ...Option) *Manager {
	m := &Manager{
		assistant: assistant,
		topic:     strings.TrimSpace(topic),
		log:       zap.NewNop(),
		now:       time.Now,
		nextID:    1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Topic returns the conversation topic.
func (m *Manager) Topic() string { return m.topic }

// AppendUserMessage appends a user turn. Text that is empty after trimming
// is ignored and ok is false.
func (m *Manager) AppendUserMessage(text string) (msg types.ConversationMessage, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.ConversationMessage{}, false
	}
	return m.appendMessage(types.RoleUser, text), true
}

// RequestAssistantTurn sends the topic and the full ordered history to the
// assistant. Any failure is returned wrapping ErrAssistantUnavailable.
func (m *Manager) RequestAssistantTurn(ctx context.Context) (types.InterviewDecision, error) {
	history := m.Messages()
	d, err := m.assistant.ContinueInterview(ctx, m.topic, history)
	if err != nil {
		return types.InterviewDecision{}, fmt.Errorf("%w: %w", ErrAssistantUnavailable, err)
	}
	return d, nil
}

// RecordAssistantMessage appends the assistant's reply. A finalize decision
// captures its keywords.
func (m *Manager) RecordAssistantMessage(d types.InterviewDecision) types.ConversationMessage {
	msg := m.appendMessage(types.RoleAssistant, d.ReplyText)

	m.mu.Lock()
	defer m.mu.Unlock()
	dc := d
	m.last = &dc
	if d.IsFinal() && d.FinalKeywords != "" {
		m.finalKeywords = d.FinalKeywords
	}
	return msg
}

// Turn runs one exchange: append text, request a decision, record it. When
// the assistant is unavailable the apology is recorded as a follow-up
// question and returned without error, so the conversation always gets a
// response. A cancelled ctx still records the apology but returns ctx.Err().
// An empty text is a no-op that returns the zero decision.
func (m *Manager) Turn(ctx context.Context, text string) (types.InterviewDecision, error) {
	if _, ok := m.AppendUserMessage(text); !ok {
		return types.InterviewDecision{}, nil
	}

	d, err := m.RequestAssistantTurn(ctx)
	if err != nil {
		d = types.InterviewDecision{NextAction: types.ActionProbe, ReplyText: ApologyMessage}
		if cerr := ctx.Err(); cerr != nil {
			// Every user turn gets a reply, even a cancelled one.
			m.RecordAssistantMessage(d)
			return d, cerr
		}
		m.log.Warn("assistant turn failed, substituting apology", zap.Error(err))
	}
	m.RecordAssistantMessage(d)
	return d, nil
}

// Messages returns a copy of the conversation in order.
func (m *Manager) Messages() []types.ConversationMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ConversationMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of messages.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// FinalKeywords returns the captured keywords and whether the interview has
// finalized.
func (m *Manager) FinalKeywords() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.finalKeywords, m.finalKeywords != ""
}

// Finalized reports whether the pipeline may start.
func (m *Manager) Finalized() bool {
	_, ok := m.FinalKeywords()
	return ok
}

// LastDecision returns the most recent recorded decision, if any.
func (m *Manager) LastDecision() (types.InterviewDecision, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return types.InterviewDecision{}, false
	}
	return *m.last, true
}

func (m *Manager) appendMessage(role types.Role, text string) types.ConversationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := types.ConversationMessage{
		ID:        m.nextID,
		Role:      role,
		Text:      text,
		CreatedAt: m.now(),
	}
	m.nextID++
	m.messages = append(m.messages, msg)
	return msg
}
