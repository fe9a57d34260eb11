package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a notification.
//
// PENDING, QUEUED and SENDING are the pre-terminal states: created,
// handed to the broker, and claimed by a worker. RETRYING waits for
// NextRetryAt. SENT and FAILED are terminal and never overwritten.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusQueued   Status = "QUEUED"
	StatusSending  Status = "SENDING"
	StatusRetrying Status = "RETRYING"
	StatusSent     Status = "SENT"
	StatusFailed   Status = "FAILED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusQueued, StatusSending, StatusRetrying, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Channel represents the delivery channel.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Priority decides queue routing at enqueue time.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

func ParsePriorityFromString(s string) (Priority, error) {
	pr := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !pr.IsValid() {
		return "", fmt.Errorf("%w: invalid priority %q", ErrValidation, s)
	}
	return pr, nil
}

// Content limits per channel (in characters).
const (
	MaxSMSContent   = 160
	MaxPushContent  = 240
	MaxEmailContent = 10000
)

// DefaultMaxAttempts is the attempt ceiling when the caller does not set one.
const DefaultMaxAttempts = 5

// Notification is the unit of work and its audit trail. Workers hold no
// private copy of authoritative state: every mutation round-trips
// through the repository's guarded transition operations.
type Notification struct {
	ID                string
	IdempotencyKey    *string
	UserID            string
	Channel           Channel
	Priority          Priority
	Recipient         string
	Content           string
	Status            Status
	ProviderMessageID *string
	Attempts          int
	MaxAttempts       int
	LastError         *string
	LastAttemptAt     *time.Time
	NextRetryAt       *time.Time
	ScheduledAt       *time.Time
	TerminalAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks the fields the ingress path is responsible for.
// An unknown channel is deliberately not rejected here: the record is
// still created and immediately failed with a descriptive error, so the
// outcome stays visible to status queries.
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if n.Recipient == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if n.Content == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if !n.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, n.Priority)
	}

	contentLen := len([]rune(n.Content))
	switch n.Channel {
	case ChannelSMS:
		if contentLen > MaxSMSContent {
			return fmt.Errorf("%w: SMS content exceeds %d characters (got %d)", ErrValidation, MaxSMSContent, contentLen)
		}
	case ChannelPush:
		if contentLen > MaxPushContent {
			return fmt.Errorf("%w: push content exceeds %d characters (got %d)", ErrValidation, MaxPushContent, contentLen)
		}
	case ChannelEmail:
		if contentLen > MaxEmailContent {
			return fmt.Errorf("%w: email content exceeds %d characters (got %d)", ErrValidation, MaxEmailContent, contentLen)
		}
	}

	return nil
}

// DueAt reports whether the notification is ready to be enqueued.
func (n *Notification) DueAt(now time.Time) bool {
	if n.ScheduledAt == nil {
		return true
	}
	return !n.ScheduledAt.After(now)
}
