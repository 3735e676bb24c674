// Package ai produces chatbot replies for the development backend.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/botura-widget/internal/config"
	"github.com/zhouzirui/botura-widget/internal/model/chat"
	"github.com/zhouzirui/botura-widget/internal/model/chatbot"
)

const defaultHistoryLimit = 10

// Replier answers one visitor message given the prior transcript.
type Replier interface {
	Reply(ctx context.Context, profile chatbot.Profile, history []chat.Message, query string) (string, error)
}

// Service answers through an eino chain: prompt template then chat model.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
	logger       zerolog.Logger
}

var _ Replier = (*Service)(nil)

// NewServiceFromConfig builds the Ark chat model described by cfg and wraps it.
func NewServiceFromConfig(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create chat model")
	}
	return NewService(ctx, chatModel, cfg.HistoryLimit, logger)
}

// NewService compiles the reply chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, historyLimit int, logger zerolog.Logger) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "compile chat chain")
	}

	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	return &Service{
		chain:        runnable,
		historyLimit: historyLimit,
		logger:       logger,
	}, nil
}

// Reply runs the chain for one visitor message.
func (s *Service) Reply(ctx context.Context, profile chatbot.Profile, history []chat.Message, query string) (string, error) {
	input := map[string]any{
		"system":  BuildSystemPrompt(profile),
		"history": s.historyMessages(history),
		"query":   query,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", errors.Wrap(err, "run chat chain")
	}

	s.logger.Debug().
		Str("chatbot_id", profile.ID).
		Int("history", len(history)).
		Int("length", len(response.Content)).
		Msg("generated reply")
	return response.Content, nil
}

// historyMessages keeps the most recent historyLimit turns.
func (s *Service) historyMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	start := max(len(messages)-s.historyLimit, 0)

	history := make([]*schema.Message, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}

// EchoReplier answers without a model. It lets the backend run with no
// credentials configured.
type EchoReplier struct{}

var _ Replier = EchoReplier{}

// Reply echoes the visitor message back.
func (EchoReplier) Reply(_ context.Context, profile chatbot.Profile, history []chat.Message, query string) (string, error) {
	if len(history) == 0 && profile.Greeting != "" {
		return fmt.Sprintf("%s\n\nDu hast geschrieben: **%s**", profile.Greeting, strings.TrimSpace(query)), nil
	}
	return fmt.Sprintf("Du hast geschrieben: **%s**", strings.TrimSpace(query)), nil
}
