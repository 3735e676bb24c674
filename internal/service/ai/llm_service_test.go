package ai

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
	"github.com/zhouzirui/botura-widget/internal/model/chatbot"
)

// recordingModel answers with a fixed text and keeps the last input.
type recordingModel struct {
	reply string
	input []*schema.Message
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.input = input
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.input = input
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.reply, nil)}), nil
}

func TestServiceReplyBuildsPrompt(t *testing.T) {
	fake := &recordingModel{reply: "Wir haben bis 18 Uhr geöffnet."}
	svc, err := NewService(context.Background(), fake, 2, zerolog.Nop())
	require.NoError(t, err)

	profile := chatbot.Seed()[0]
	history := []chat.Message{
		{Role: chat.RoleUser, Content: "erste"},
		{Role: chat.RoleAssistant, Content: "antwort"},
		{Role: chat.RoleUser, Content: "zweite"},
	}

	reply, err := svc.Reply(context.Background(), profile, history, "Wann habt ihr offen?")
	require.NoError(t, err)
	assert.Equal(t, "Wir haben bis 18 Uhr geöffnet.", reply)

	require.Len(t, fake.input, 4, "system + two history turns + query")
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Contains(t, fake.input[0].Content, "Bastel Laden")
	assert.Equal(t, "antwort", fake.input[1].Content)
	assert.Equal(t, "zweite", fake.input[2].Content)
	assert.Equal(t, "Wann habt ihr offen?", fake.input[3].Content)
}

func TestBuildSystemPrompt(t *testing.T) {
	p := BuildSystemPrompt(chatbot.Profile{Name: "Shop", Topics: []string{"Versand", "Retouren"}})
	assert.Contains(t, p, "You are Shop")
	assert.Contains(t, p, "- Versand\n- Retouren")
}

func TestEchoReplier(t *testing.T) {
	profile := chatbot.Profile{Greeting: "Hallo!"}

	first, err := EchoReplier{}.Reply(context.Background(), profile, nil, " Hi ")
	require.NoError(t, err)
	assert.Equal(t, "Hallo!\n\nDu hast geschrieben: **Hi**", first)

	later, err := EchoReplier{}.Reply(context.Background(), profile, []chat.Message{{Role: chat.RoleUser}}, "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Du hast geschrieben: **Hi**", later)
}
