package automation

import (
	"encoding/json"
	"fmt"
	"strings"

	"congregation_backend/internal/domain/congregant"
)

// Kind identifies the automation variant. The configuration payload, the
// recipient matching rule and the message rendering all dispatch on it.
type Kind string

const (
	KindBirthdayGreeting Kind = "BIRTHDAY_GREETING"
)

// Config is the kind-specific payload of an automation. Each variant is its
// own struct; adding a new automation kind means adding a struct here plus a
// matcher branch in the dispatch service, nothing else changes.
type Config interface {
	Kind() Kind
}

// BirthdayConfig configures the birthday greeting automation.
type BirthdayConfig struct {
	MessageTemplate string `json:"message_template"`
}

func (*BirthdayConfig) Kind() Kind { return KindBirthdayGreeting }

// Render resolves the message template against a target. Supported
// placeholders: {first_name}, {last_name}. Unknown placeholders pass through
// untouched.
func (c *BirthdayConfig) Render(t congregant.Target) string {
	lastName := ""
	if t.LastName.Valid {
		lastName = t.LastName.String
	}
	msg := c.MessageTemplate
	msg = strings.ReplaceAll(msg, "{first_name}", t.FirstName)
	msg = strings.ReplaceAll(msg, "{last_name}", lastName)
	return strings.TrimSpace(msg)
}

// DecodeConfig unmarshals a stored JSON payload into the variant matching kind.
func DecodeConfig(kind Kind, raw []byte) (Config, error) {
	switch kind {
	case KindBirthdayGreeting:
		cfg := &BirthdayConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("error decoding %s config: %w", kind, err)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("unknown automation kind: %s", kind)
	}
}

// EncodeConfig marshals a config variant for storage.
func EncodeConfig(cfg Config) ([]byte, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("error encoding %s config: %w", cfg.Kind(), err)
	}
	return raw, nil
}
