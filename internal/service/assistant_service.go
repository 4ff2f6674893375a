package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk-service/internal/assistant"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util/errorutil"
)

// AssistantService wraps the conversational assistant for ticket drafting.
type AssistantService struct {
	client *assistant.Client
	logger *zap.Logger
}

// NewAssistantService builds the service.
func NewAssistantService(client *assistant.Client, logger *zap.Logger) *AssistantService {
	return &AssistantService{client: client, logger: logger}
}

// Chat forwards the conversation to the assistant and returns its reply.
func (s *AssistantService) Chat(ctx context.Context, messages []assistant.Message) (string, error) {
	if len(messages) == 0 {
		return "", apperrors.NewValidationError("messages required", nil)
	}
	for _, m := range messages {
		if strings.TrimSpace(m.Text) == "" {
			return "", apperrors.NewValidationError("message text must not be empty", nil)
		}
	}

	reply, err := s.client.Generate(ctx, messages)
	if err != nil {
		s.logger.Warn("assistant request failed", zap.Error(err))
		return "", apperrors.NewInternalError(err)
	}
	return reply, nil
}
