package models

import "encoding/json"

// Speaker roles accepted in a conversation.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one message in a conversation.
type Turn struct {
	Role string `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text" validate:"required"`
}

// Conversation is the ordered transcript submitted for a multi-turn completion.
type Conversation []Turn

// GenerateTextRequest is the payload of the single-turn endpoint. Prompt is
// kept raw so a non-string value can be told apart from a missing one.
type GenerateTextRequest struct {
	Prompt json.RawMessage `json:"prompt"`
}

// ChatRequest is the payload of the multi-turn endpoint.
type ChatRequest struct {
	Conversation json.RawMessage `json:"conversation"`
}

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}
