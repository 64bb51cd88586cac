// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is one turn of an interview. ID is a sequence number
// unique within the conversation; insertion order is causal order. Messages
// are immutable once appended.
type ConversationMessage struct {
	ID        int       `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NextAction is the assistant's decision for an interview turn.
type NextAction string

const (
	ActionProbe    NextAction = "probe"
	ActionPropose  NextAction = "propose"
	ActionFinalize NextAction = "finalize"
)

// Valid reports whether a is one of the three known actions.
func (a NextAction) Valid() bool {
	switch a {
	case ActionProbe, ActionPropose, ActionFinalize:
		return true
	}
	return false
}

// InterviewOption is one research angle offered with a propose action.
type InterviewOption struct {
	Label       string `json:"label" yaml:"label" validate:"required"`
	Description string `json:"description" yaml:"description"`
}

// InterviewDecision is the assistant's structured reply. Options is
// non-empty only for propose; FinalKeywords is set only for finalize.
type InterviewDecision struct {
	NextAction    NextAction        `json:"next_action" yaml:"next_action"`
	ReplyText     string            `json:"reply_message" yaml:"reply_message"`
	Options       []InterviewOption `json:"options" yaml:"options"`
	FinalKeywords string            `json:"final_keywords,omitempty" yaml:"final_keywords,omitempty"`
}

// IsFinal reports whether the decision ends the interview.
func (d InterviewDecision) IsFinal() bool {
	return d.NextAction == ActionFinalize
}

// ErrInvalidDecision is wrapped by Normalize failures.
var ErrInvalidDecision = errors.New("invalid interview decision")

// Normalize enforces the decision invariants: options are kept only for
// propose and keywords only for finalize. An unknown action, or a finalize
// without keywords, is an error.
func (d InterviewDecision) Normalize() (InterviewDecision, error) {
	if !d.NextAction.Valid() {
		return InterviewDecision{}, fmt.Errorf("%w: unknown next action %q", ErrInvalidDecision, d.NextAction)
	}
	out := InterviewDecision{
		NextAction: d.NextAction,
		ReplyText:  d.ReplyText,
	}
	switch d.NextAction {
	case ActionPropose:
		for _, o := range d.Options {
			if strings.TrimSpace(o.Label) == "" {
				continue
			}
			out.Options = append(out.Options, o)
		}
	case ActionFinalize:
		out.FinalKeywords = strings.TrimSpace(d.FinalKeywords)
		if out.FinalKeywords == "" {
			return InterviewDecision{}, fmt.Errorf("%w: finalize without keywords", ErrInvalidDecision)
		}
	}
	return out, nil
}
