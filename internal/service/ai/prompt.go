package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/botura-widget/internal/model/chatbot"
)

// BuildSystemPrompt describes the chatbot to the model.
func BuildSystemPrompt(profile chatbot.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, the assistant embedded on this website.\n", profile.Name)
	if profile.Description != "" {
		fmt.Fprintf(&b, "About: %s\n", profile.Description)
	}
	if profile.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", profile.Tone)
	}
	if len(profile.Topics) > 0 {
		fmt.Fprintf(&b, "Topics you can help with:\n- %s\n", strings.Join(profile.Topics, "\n- "))
	}
	if profile.PromptHint != "" {
		b.WriteString(profile.PromptHint)
		b.WriteString("\n")
	}
	b.WriteString("Keep answers short enough for a small chat window. Markdown is rendered.")
	return b.String()
}
