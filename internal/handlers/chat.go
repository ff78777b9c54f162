package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"gemchat-backend/internal/models"
	"gemchat-backend/internal/services"
)

type ChatHandler struct {
	gemini replyGenerator
	logger *zap.Logger
}

func NewChatHandler(gemini replyGenerator, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		gemini: gemini,
		logger: logger,
	}
}

// Chat continues a conversation sent in full by the client.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		handleServiceError(w, r, h.logger, &services.ValidationError{Message: invalidBodyMsg})
		return
	}

	conv, err := services.ParseConversation(req.Conversation)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp, err := h.gemini.GenerateReply(r.Context(), services.ToContents(conv))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	text := services.ExtractText(resp)
	if text == "" {
		h.logger.Warn("gemini returned no text", zap.Int("turns", len(conv)))
	}

	writeJSON(w, http.StatusOK, successResp(text))
}
