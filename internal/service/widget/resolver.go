// Package widget turns host page attributes into a typed widget configuration.
package widget

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	model "github.com/zhouzirui/botura-widget/internal/model/widget"
)

// ErrMissingChatbotID aborts a mount: without a chatbot there is nothing to talk to.
var ErrMissingChatbotID = errors.New("data-chatbot-id is required")

// Resolver applies a set of defaults to host attributes.
type Resolver struct {
	defaults model.Defaults
}

// NewResolver returns a Resolver using defaults; zero fields fall back to the builtin ones.
func NewResolver(defaults model.Defaults) *Resolver {
	builtin := model.BuiltinDefaults()
	if defaults.ChatbotName == "" {
		defaults.ChatbotName = builtin.ChatbotName
	}
	if defaults.AccentColor == "" {
		defaults.AccentColor = builtin.AccentColor
	}
	if defaults.WelcomeMessage == "" {
		defaults.WelcomeMessage = builtin.WelcomeMessage
	}
	if defaults.PlaceholderText == "" {
		defaults.PlaceholderText = builtin.PlaceholderText
	}
	if base, ok := normalizeBaseURL(defaults.APIBaseURL); ok {
		defaults.APIBaseURL = base
	} else {
		defaults.APIBaseURL = builtin.APIBaseURL
	}
	if !defaults.Position.Valid() {
		defaults.Position = builtin.Position
	}
	if !defaults.Size.Valid() {
		defaults.Size = builtin.Size
	}
	return &Resolver{defaults: defaults}
}

var defaultResolver = NewResolver(model.Defaults{})

// Resolve builds a Config with the builtin defaults.
func Resolve(attrs model.Attributes) (model.Config, error) {
	return defaultResolver.Resolve(attrs)
}

// Defaults returns the fallbacks this resolver applies.
func (r *Resolver) Defaults() model.Defaults {
	return r.defaults
}

// Resolve validates attrs and fills every unset optional field.
// Unknown position and size values are treated as not configured.
func (r *Resolver) Resolve(attrs model.Attributes) (model.Config, error) {
	chatbotID := value(attrs, model.AttrChatbotID)
	if chatbotID == "" {
		return model.Config{}, ErrMissingChatbotID
	}

	cfg := model.Config{
		ChatbotID:       chatbotID,
		ChatbotName:     valueOr(attrs, model.AttrChatbotName, r.defaults.ChatbotName),
		AccentColor:     valueOr(attrs, model.AttrColor, r.defaults.AccentColor),
		AvatarImageURL:  value(attrs, model.AttrAvatarImage),
		WelcomeMessage:  valueOr(attrs, model.AttrWelcomeMessage, r.defaults.WelcomeMessage),
		PlaceholderText: valueOr(attrs, model.AttrPlaceholderText, r.defaults.PlaceholderText),
		APIBaseURL:      r.defaults.APIBaseURL,
		Position:        r.defaults.Position,
		Size:            r.defaults.Size,
	}

	if base, ok := normalizeBaseURL(value(attrs, model.AttrAPIURL)); ok {
		cfg.APIBaseURL = base
	}
	if p := model.Position(strings.ToLower(value(attrs, model.AttrPosition))); p.Valid() {
		cfg.Position = p
	}
	if s := model.Size(strings.ToLower(value(attrs, model.AttrSize))); s.Valid() {
		cfg.Size = s
	}

	return cfg, nil
}

func value(attrs model.Attributes, name string) string {
	v, _ := attrs.Lookup(name)
	return strings.TrimSpace(v)
}

func valueOr(attrs model.Attributes, name, fallback string) string {
	if v := value(attrs, name); v != "" {
		return v
	}
	return fallback
}

// normalizeBaseURL accepts absolute http(s) URLs and strips trailing slashes.
func normalizeBaseURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return strings.TrimRight(raw, "/"), true
}
