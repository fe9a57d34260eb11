package domain

import (
	"fmt"
	"strings"
	"time"
)

// Template is a stored message body with {placeholder} slots. Rendering
// happens on the ingress path before a notification record is created;
// the dispatch core never interprets template syntax.
type Template struct {
	ID        string
	Name      string
	Channel   Channel
	Subject   *string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is required", ErrValidation)
	}
	if !t.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, t.Channel)
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("%w: template body is required", ErrValidation)
	}
	return nil
}

// Render substitutes {key} placeholders in the body with the given
// variables. Unknown placeholders are left as-is.
func (t *Template) Render(vars map[string]string) string {
	if len(vars) == 0 {
		return t.Body
	}

	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(t.Body)
}
