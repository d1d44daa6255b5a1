// Package provider issues streaming chat-completion requests to an
// OpenAI-compatible AI provider and decodes the event-stream replies.
package provider

import (
	"net/url"
	"strings"

	"inkwell/errs"
)

// Role identifies the sender of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Config addresses one AI provider for one execution. It is a plain
// value supplied by the project each time — nothing here is process-wide.
type Config struct {
	Name        string  `json:"name"`
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url"` // includes the version segment, e.g. https://api.deepseek.com/v1
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Validate reports whether the configuration is usable on the wire.
// Malformed settings are a configuration error, never silently defaulted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errs.New(errs.KindConfig, "provider api key required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errs.New(errs.KindConfig, "provider model required")
	}
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return errs.New(errs.KindConfig, "provider base url required")
	}
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return errs.Newf(errs.KindConfig, "provider base url %q is not absolute", c.BaseURL)
	}
	if c.MaxTokens <= 0 {
		return errs.Newf(errs.KindConfig, "provider max_tokens %d must be positive", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errs.Newf(errs.KindConfig, "provider temperature %v out of range", c.Temperature)
	}
	return nil
}
