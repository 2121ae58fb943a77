// Package events defines the alarm/event message model pushed by the
// event-push feature.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/c360/adapterkit/errors"
)

// Priority indicates the urgency of an event message.
type Priority int

// Priorities in ascending order of urgency.
const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Message is one alarm or event record emitted by an adapter. Messages are
// immutable once built.
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"` // always UTC
	Priority  Priority  `json:"priority"`
	Category  string    `json:"category,omitempty"`
	Text      string    `json:"text"`
	SourceTag string    `json:"source_tag,omitempty"` // optional tag reference
}

// Builder accumulates message fields and validates at Build time.
type Builder struct {
	msg Message
}

// NewMessage starts a builder for an event message.
func NewMessage() *Builder {
	return &Builder{}
}

// WithID sets an explicit message ID. A UUID is generated when omitted.
func (b *Builder) WithID(id string) *Builder {
	b.msg.ID = id
	return b
}

// WithTimestamp sets the event time; it is normalized to UTC.
func (b *Builder) WithTimestamp(t time.Time) *Builder {
	b.msg.Timestamp = t.UTC()
	return b
}

// WithPriority sets the message priority.
func (b *Builder) WithPriority(p Priority) *Builder {
	b.msg.Priority = p
	return b
}

// WithCategory sets the message category.
func (b *Builder) WithCategory(category string) *Builder {
	b.msg.Category = category
	return b
}

// WithText sets the message body. Required.
func (b *Builder) WithText(text string) *Builder {
	b.msg.Text = text
	return b
}

// WithSourceTag links the message to the tag that produced it.
func (b *Builder) WithSourceTag(tagID string) *Builder {
	b.msg.SourceTag = tagID
	return b
}

// Build validates the accumulated fields and returns the message.
func (b *Builder) Build() (Message, error) {
	if b.msg.Text == "" {
		return Message{}, errors.WrapInvalid(errors.ErrValidation, "events.Builder", "Build", "text validation")
	}
	if b.msg.Priority < PriorityLow || b.msg.Priority > PriorityCritical {
		return Message{}, errors.WrapInvalid(errors.ErrValidation, "events.Builder", "Build", "priority validation")
	}

	msg := b.msg
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg, nil
}
