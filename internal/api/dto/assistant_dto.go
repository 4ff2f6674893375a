package dto

// AssistantMessage is one turn in the assistant conversation.
type AssistantMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// AssistantChatRequest payload.
type AssistantChatRequest struct {
	Messages []AssistantMessage `json:"messages"`
}

// AssistantChatResponse payload.
type AssistantChatResponse struct {
	Reply string `json:"reply"`
}
