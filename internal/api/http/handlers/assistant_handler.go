package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk-service/internal/api/dto"
	"github.com/helpdeskhq/helpdesk-service/internal/assistant"
	"github.com/helpdeskhq/helpdesk-service/internal/service"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util/errorutil"
)

// AssistantHandler exposes the drafting assistant.
type AssistantHandler struct {
	assistant *service.AssistantService
}

// NewAssistantHandler constructs handler.
func NewAssistantHandler(assistantService *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistantService}
}

// Chat POST /assistant/chat.
func (h *AssistantHandler) Chat(c *fiber.Ctx) error {
	var req dto.AssistantChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	messages := make([]assistant.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, assistant.Message{Role: m.Role, Text: m.Text})
	}

	reply, err := h.assistant.Chat(c.UserContext(), messages)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssistantChatResponse{Reply: reply}})
}
