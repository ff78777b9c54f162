package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"gemchat-backend/internal/middleware"
	"gemchat-backend/internal/models"
	"gemchat-backend/internal/services"
)

const (
	successMessage = "Answered by Gemini"
	invalidBodyMsg = "request body must be valid JSON"
	maxFormMemory  = 1 << 20
)

// replyGenerator is the upstream call both handlers make.
type replyGenerator interface {
	GenerateReply(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func successResp(text string) models.Envelope {
	return models.Envelope{Success: true, Message: successMessage, Data: text}
}

func failureResp(message string) models.Envelope {
	return models.Envelope{Success: false, Message: message, Data: nil}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	requestID := zap.String("request_id", middleware.GetRequestID(r.Context()))

	switch e := err.(type) {
	case *services.ValidationError:
		logger.Info("rejected invalid request",
			requestID,
			zap.String("path", r.URL.Path),
			zap.String("reason", e.Message),
			zap.Any("fields", e.Fields),
		)
		writeJSON(w, http.StatusBadRequest, failureResp(e.Message))
	case *services.UpstreamError:
		logger.Error("gemini request failed", requestID, zap.String("path", r.URL.Path), zap.Error(e))
		writeJSON(w, http.StatusInternalServerError, failureResp(e.PublicMessage()))
	default:
		logger.Error("request failed", requestID, zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, failureResp(services.GenericUpstreamMessage))
	}
}
