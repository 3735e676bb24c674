package widget

// Host markup attributes read once at mount.
const (
	AttrChatbotID       = "data-chatbot-id"
	AttrChatbotName     = "data-chatbot-name"
	AttrColor           = "data-color"
	AttrAvatarImage     = "data-avatar-image"
	AttrWelcomeMessage  = "data-welcome-message"
	AttrPlaceholderText = "data-placeholder-text"
	AttrAPIURL          = "data-api-url"
	AttrPosition        = "data-position"
	AttrSize            = "data-size"
)

// KnownAttributes lists every attribute the resolver understands.
var KnownAttributes = []string{
	AttrChatbotID,
	AttrChatbotName,
	AttrColor,
	AttrAvatarImage,
	AttrWelcomeMessage,
	AttrPlaceholderText,
	AttrAPIURL,
	AttrPosition,
	AttrSize,
}

// Attributes is the raw, stringly typed input supplied by the host page.
// A missing key and a blank value both mean "not configured".
type Attributes map[string]string

// Lookup returns the value stored under name.
func (a Attributes) Lookup(name string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a[name]
	return v, ok
}
