package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/skillup-labs/skillup/backend/internal/config"
	convomodel "github.com/skillup-labs/skillup/backend/internal/model/convo"
)

var (
	// ErrQuotaExceeded marks rate-limit or quota exhaustion at the reply
	// service. Retriable later by the user, never automatically.
	ErrQuotaExceeded = errors.New("reply service quota exceeded")
	// ErrNoUserTurn is returned when the history does not end with a user turn.
	ErrNoUserTurn = errors.New("turn history must end with a user turn")
)

// FallbackContent is substituted when the model returns an empty reply.
const FallbackContent = "I apologize, but I couldn't generate a response. Please try again."

// systemPrompt fixes the assistant's behavior for the whole session. It is
// never part of the visible turn history.
const systemPrompt = `You are a helpful AI learning assistant focused on skill development and education. You provide clear, concise, and supportive responses to help users with their learning journey. You have expertise in various courses including:

- Full Stack Development (MERN Stack)
- AI & Machine Learning
- Cloud Computing (AWS)
- DevOps & CI/CD
- Blockchain Development
- UI/UX Design
- Data Science
- Cybersecurity
- Mobile App Development
- Python Programming
- Digital Marketing
- IoT Development
- Game Development
- Cloud Native Development
- Data Engineering

When users ask about these courses, provide specific, relevant information about the curriculum, prerequisites, and career opportunities. Keep responses friendly and encouraging, and be able to assist in multiple languages.`

// Service produces the assistant's next turn from the full dialogue history.
// It is stateless between calls; the dialogue session is the sole holder of
// conversational context.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
	log   zerolog.Logger
}

// NewService compiles the prompt/model chain from configuration.
func NewService(ctx context.Context, cfg config.AIConfig, log zerolog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

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
		return nil, fmt.Errorf("compile reply chain: %w", err)
	}

	return &Service{chain: runnable, log: log}, nil
}

// Generate sends the entire ordered turn history and returns one assistant
// turn. The last turn must belong to the user.
func (s *Service) Generate(ctx context.Context, turns []convomodel.Turn) (convomodel.Turn, error) {
	if len(turns) == 0 || turns[len(turns)-1].Role != convomodel.RoleUser {
		return convomodel.Turn{}, ErrNoUserTurn
	}

	last := turns[len(turns)-1]
	input := map[string]any{
		"system":  systemPrompt,
		"history": historyMessages(turns[:len(turns)-1]),
		"query":   last.Content,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		if isQuotaError(err) {
			return convomodel.Turn{}, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return convomodel.Turn{}, fmt.Errorf("run reply chain: %w", err)
	}

	content := strings.TrimSpace(response.Content)
	if content == "" {
		content = FallbackContent
	}

	s.log.Debug().
		Str("session", last.SessionID).
		Int("history", len(turns)-1).
		Int("length", len(content)).
		Msg("generated reply")

	return convomodel.Turn{
		SessionID: last.SessionID,
		Role:      convomodel.RoleAssistant,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// historyMessages maps prior turns to role/content pairs only, dropping any
// other metadata before they cross the wire.
func historyMessages(turns []convomodel.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case convomodel.RoleUser:
			history = append(history, schema.UserMessage(t.Content))
		case convomodel.RoleAssistant:
			history = append(history, schema.AssistantMessage(t.Content, nil))
		}
	}
	return history
}

// isQuotaError classifies remote rate-limit and quota exhaustion, matching
// on the markers the completion backends put in their error bodies.
func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"insufficient_quota", "quota", "rate limit", "rate_limit", "429", "too many requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
