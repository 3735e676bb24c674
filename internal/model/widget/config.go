package widget

// Position places the launcher in a corner of the host page.
type Position string

const (
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionTopRight    Position = "top-right"
	PositionTopLeft     Position = "top-left"
)

// Valid reports whether p is one of the supported corners.
func (p Position) Valid() bool {
	switch p {
	case PositionBottomRight, PositionBottomLeft, PositionTopRight, PositionTopLeft:
		return true
	}
	return false
}

// Size scales the chat window.
type Size string

const (
	SizeSmall  Size = "small"
	SizeNormal Size = "normal"
	SizeLarge  Size = "large"
)

// Valid reports whether s is one of the supported sizes.
func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeNormal, SizeLarge:
		return true
	}
	return false
}

// Config is the resolved, immutable configuration of one mounted widget.
type Config struct {
	ChatbotID       string   `json:"chatbotId" yaml:"chatbotId"`
	ChatbotName     string   `json:"chatbotName" yaml:"chatbotName"`
	AccentColor     string   `json:"accentColor" yaml:"accentColor"`
	AvatarImageURL  string   `json:"avatarImageUrl,omitempty" yaml:"avatarImageUrl,omitempty"`
	WelcomeMessage  string   `json:"welcomeMessage" yaml:"welcomeMessage"`
	PlaceholderText string   `json:"placeholderText" yaml:"placeholderText"`
	APIBaseURL      string   `json:"apiBaseUrl" yaml:"apiBaseUrl"`
	Position        Position `json:"position" yaml:"position"`
	Size            Size     `json:"size" yaml:"size"`
}

// Defaults holds the fallbacks applied to unset optional attributes.
type Defaults struct {
	ChatbotName     string
	AccentColor     string
	WelcomeMessage  string
	PlaceholderText string
	APIBaseURL      string
	Position        Position
	Size            Size
}

// DefaultAPIBaseURL is used when neither the host nor the process configures a backend.
const DefaultAPIBaseURL = "http://localhost:8000"

// BuiltinDefaults returns the defaults shipped with the widget.
func BuiltinDefaults() Defaults {
	return Defaults{
		ChatbotName:     "Chatbot",
		AccentColor:     "#10b981",
		WelcomeMessage:  "👋 Hi! Wie kann ich dir helfen?",
		PlaceholderText: "Schreibe eine Nachricht...",
		APIBaseURL:      DefaultAPIBaseURL,
		Position:        PositionBottomRight,
		Size:            SizeNormal,
	}
}
