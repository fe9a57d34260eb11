package queue

import (
	"fmt"
	"strings"

	"github.com/pulselabs/pulse/internal/domain"
)

// DeliveryMessage is the broker payload handed to dispatch workers. It
// carries routing data only; the record store stays the single source
// of truth for the notification's state.
type DeliveryMessage struct {
	NotificationID string          `json:"notificationId"`
	CorrelationID  string          `json:"correlationId,omitempty"`
	Channel        domain.Channel  `json:"channel"`
	Priority       domain.Priority `json:"priority"`
}

func (m DeliveryMessage) Validate() error {
	if strings.TrimSpace(m.NotificationID) == "" {
		return fmt.Errorf("notificationId is required")
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("invalid channel %q", m.Channel)
	}
	if !m.Priority.IsValid() {
		return fmt.Errorf("invalid priority %q", m.Priority)
	}
	return nil
}
