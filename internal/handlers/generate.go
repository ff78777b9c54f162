package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"gemchat-backend/internal/models"
	"gemchat-backend/internal/services"
)

var errPromptInvalid = &services.ValidationError{Message: "prompt must be a non-empty string"}

type GenerateHandler struct {
	gemini replyGenerator
	logger *zap.Logger
}

func NewGenerateHandler(gemini replyGenerator, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		gemini: gemini,
		logger: logger,
	}
}

// GenerateText answers a single prompt.
func (h *GenerateHandler) GenerateText(w http.ResponseWriter, r *http.Request) {
	prompt, err := readPrompt(r)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp, err := h.gemini.GenerateReply(r.Context(), []*genai.Content{
		{Role: models.RoleUser, Parts: []genai.Part{genai.Text(prompt)}},
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, successResp(services.ExtractText(resp)))
}

// readPrompt accepts a JSON body or a form post carrying a prompt field.
func readPrompt(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return "", &services.ValidationError{Message: "request body must be a valid form"}
		}
		values, ok := r.PostForm["prompt"]
		if !ok || len(values) == 0 || values[0] == "" {
			return "", errPromptInvalid
		}
		return values[0], nil
	}

	var req models.GenerateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", &services.ValidationError{Message: invalidBodyMsg}
	}

	var prompt string
	if len(req.Prompt) == 0 || json.Unmarshal(req.Prompt, &prompt) != nil || prompt == "" {
		return "", errPromptInvalid
	}
	return prompt, nil
}
