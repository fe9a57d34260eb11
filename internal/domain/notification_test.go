package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{name: "pending lower", input: "pending", want: StatusPending},
		{name: "retrying mixed", input: " Retrying ", want: StatusRetrying},
		{name: "sent upper", input: "SENT", want: StatusSent},
		{name: "failed", input: "failed", want: StatusFailed},
		{name: "unknown", input: "delivered", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatusFromString() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []Status{StatusSent, StatusFailed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}

	open := []Status{StatusPending, StatusQueued, StatusSending, StatusRetrying}
	for _, s := range open {
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestParseChannelFromString(t *testing.T) {
	t.Parallel()

	ch, err := ParseChannelFromString("email")
	if err != nil {
		t.Fatalf("ParseChannelFromString() error = %v", err)
	}
	if ch != ChannelEmail {
		t.Fatalf("ParseChannelFromString() = %s, want EMAIL", ch)
	}

	_, err = ParseChannelFromString("carrier-pigeon")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseChannelFromString() error = %v, want ErrValidation", err)
	}
}

func TestNotificationValidate(t *testing.T) {
	t.Parallel()

	valid := Notification{
		UserID:    "user-1",
		Channel:   ChannelSMS,
		Priority:  PriorityNormal,
		Recipient: "+15551230000",
		Content:   "hello",
	}

	tests := []struct {
		name    string
		mutate  func(n *Notification)
		wantErr bool
	}{
		{name: "valid", mutate: func(n *Notification) {}},
		{name: "missing user", mutate: func(n *Notification) { n.UserID = "" }, wantErr: true},
		{name: "missing recipient", mutate: func(n *Notification) { n.Recipient = "" }, wantErr: true},
		{name: "missing content", mutate: func(n *Notification) { n.Content = "" }, wantErr: true},
		{name: "bad priority", mutate: func(n *Notification) { n.Priority = "URGENT" }, wantErr: true},
		{
			name:    "sms too long",
			mutate:  func(n *Notification) { n.Content = strings.Repeat("a", MaxSMSContent+1) },
			wantErr: true,
		},
		{
			name: "push too long",
			mutate: func(n *Notification) {
				n.Channel = ChannelPush
				n.Content = strings.Repeat("a", MaxPushContent+1)
			},
			wantErr: true,
		},
		{
			// The unsupported-channel path creates the record and fails
			// it afterwards, so Validate must let the value through.
			name:   "unknown channel passes",
			mutate: func(n *Notification) { n.Channel = "FAX" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid
			tt.mutate(&n)
			err := n.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestNotificationDueAt(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	n := Notification{}
	if !n.DueAt(now) {
		t.Fatal("nil ScheduledAt should be due")
	}

	past := now.Add(-time.Minute)
	n.ScheduledAt = &past
	if !n.DueAt(now) {
		t.Fatal("past ScheduledAt should be due")
	}

	future := now.Add(time.Minute)
	n.ScheduledAt = &future
	if n.DueAt(now) {
		t.Fatal("future ScheduledAt should not be due")
	}
}

func TestTemplateRender(t *testing.T) {
	t.Parallel()

	tmpl := Template{
		Name:    "welcome_email",
		Channel: ChannelEmail,
		Body:    "Hello {name}, your code is {code}!",
	}

	got := tmpl.Render(map[string]string{"name": "Ada", "code": "1234"})
	if got != "Hello Ada, your code is 1234!" {
		t.Fatalf("Render() = %q", got)
	}

	got = tmpl.Render(nil)
	if got != tmpl.Body {
		t.Fatalf("Render() with no vars = %q, want body unchanged", got)
	}

	got = tmpl.Render(map[string]string{"name": "Ada"})
	if got != "Hello Ada, your code is {code}!" {
		t.Fatalf("Render() = %q, unknown placeholders should stay", got)
	}
}

func TestTemplateValidate(t *testing.T) {
	t.Parallel()

	tmpl := Template{Name: "t1", Channel: ChannelSMS, Body: "hi"}
	if err := tmpl.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	bad := Template{Name: "", Channel: ChannelSMS, Body: "hi"}
	if !errors.Is(bad.Validate(), ErrValidation) {
		t.Fatal("empty name should fail validation")
	}

	bad = Template{Name: "t2", Channel: "FAX", Body: "hi"}
	if !errors.Is(bad.Validate(), ErrValidation) {
		t.Fatal("unknown channel should fail validation")
	}
}
