package reply

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"

	convomodel "github.com/skillup-labs/skillup/backend/internal/model/convo"
)

func TestIsQuotaError(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Error code: 429 - insufficient_quota", true},
		{"You exceeded your current quota, please check your plan", true},
		{"Rate limit reached for requests", true},
		{"rate_limit_exceeded", true},
		{"429 Too Many Requests", true},
		{"connection refused", false},
		{"model not found", false},
		{"context deadline exceeded", false},
	}

	for _, tc := range cases {
		if got := isQuotaError(errors.New(tc.msg)); got != tc.want {
			t.Errorf("isQuotaError(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestHistoryMessages(t *testing.T) {
	turns := []convomodel.Turn{
		{Role: convomodel.RoleAssistant, Content: "welcome"},
		{Role: convomodel.RoleUser, Content: "hi"},
		{Role: convomodel.RoleAssistant, Content: "how can I help?"},
	}

	history := historyMessages(turns)

	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	if history[0].Role != schema.Assistant || history[0].Content != "welcome" {
		t.Fatalf("unexpected first message: %+v", history[0])
	}
	if history[1].Role != schema.User || history[1].Content != "hi" {
		t.Fatalf("unexpected second message: %+v", history[1])
	}
}

func TestHistoryMessagesEmpty(t *testing.T) {
	if got := historyMessages(nil); got != nil {
		t.Fatalf("expected nil history, got %v", got)
	}
}

func TestGenerateRequiresUserTurn(t *testing.T) {
	svc := &Service{}

	if _, err := svc.Generate(context.Background(), nil); !errors.Is(err, ErrNoUserTurn) {
		t.Fatalf("expected ErrNoUserTurn for empty history, got %v", err)
	}

	turns := []convomodel.Turn{{Role: convomodel.RoleAssistant, Content: "welcome"}}
	if _, err := svc.Generate(context.Background(), turns); !errors.Is(err, ErrNoUserTurn) {
		t.Fatalf("expected ErrNoUserTurn for assistant-last history, got %v", err)
	}
}
