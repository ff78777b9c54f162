package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/generative-ai-go/genai"

	"gemchat-backend/internal/models"
)

var (
	turnValidator *validator.Validate
	validatorOnce sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		turnValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return turnValidator
}

var (
	errNotObject   = errors.New("must be an object")
	errTurnShape   = errors.New("must have exactly the fields role and text")
	errRoleInvalid = errors.New(`role must be "user" or "model"`)
	errTextInvalid = errors.New("text must be a non-empty string")
)

// ParseConversation decodes and validates the raw conversation field of a
// chat request. Any invalid element rejects the whole conversation; the
// per-element reasons are reported in ValidationError.Fields.
func ParseConversation(raw json.RawMessage) (models.Conversation, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ValidationError{Message: "conversation must be an array"}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, &ValidationError{Message: "conversation must be an array"}
	}
	if len(elems) == 0 {
		return nil, &ValidationError{Message: "conversation must not be empty"}
	}

	fields := make(map[string]string)
	conv := make(models.Conversation, 0, len(elems))
	for i, elem := range elems {
		turn, err := parseTurn(elem)
		if err != nil {
			fields[fmt.Sprintf("conversation[%d]", i)] = err.Error()
			continue
		}
		conv = append(conv, turn)
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Message: "conversation messages must be valid", Fields: fields}
	}
	return conv, nil
}

func parseTurn(raw json.RawMessage) (models.Turn, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return models.Turn{}, errNotObject
	}

	roleRaw, hasRole := obj["role"]
	textRaw, hasText := obj["text"]
	if len(obj) != 2 || !hasRole || !hasText {
		return models.Turn{}, errTurnShape
	}

	var turn models.Turn
	if err := json.Unmarshal(roleRaw, &turn.Role); err != nil {
		return models.Turn{}, errRoleInvalid
	}
	if err := json.Unmarshal(textRaw, &turn.Text); err != nil {
		return models.Turn{}, errTextInvalid
	}

	if err := getValidator().Struct(turn); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "Role" {
			return models.Turn{}, errRoleInvalid
		}
		return models.Turn{}, errTextInvalid
	}

	return turn, nil
}

// ToContents reshapes a conversation into the Gemini content list, one entry
// per turn with order and role preserved.
func ToContents(conv models.Conversation) []*genai.Content {
	contents := make([]*genai.Content, len(conv))
	for i, turn := range conv {
		contents[i] = &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		}
	}
	return contents
}
