// Package generate is the boundary to the text-generation service: role
// tagged messages in, raw text out. Callers must treat the text as untrusted
// and route it through the decoder.
package generate

import (
	"context"
	"net/http"

	"github.com/tansive/mockinterview/internal/common/apperrors"
)

// Role is the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System, User and Assistant build a Message for their role.
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Generator produces a completion for the conversation so far.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, messages []Message) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

var (
	ErrGenerate    apperrors.Error = apperrors.New("text generation failed").SetStatusCode(http.StatusBadGateway)
	ErrUnavailable apperrors.Error = ErrGenerate.New("text generation is not configured").SetStatusCode(http.StatusServiceUnavailable)
	ErrEmptyReply  apperrors.Error = ErrGenerate.New("text generation returned no content")
	ErrNoMessages  apperrors.Error = ErrGenerate.New("no messages to send").SetStatusCode(http.StatusBadRequest)
)

// Unavailable always fails. It stands in when no provider is configured so
// every turn takes the heuristic path.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, []Message) (string, error) {
	return "", ErrUnavailable
}
