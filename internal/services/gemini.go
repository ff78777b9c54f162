package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	generativelanguage "cloud.google.com/go/ai/generativelanguage/apiv1beta"
	pb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiService calls generateContent through the generativelanguage REST
// client so the full content list, roles included, reaches the API as given.
type GeminiService struct {
	client            *generativelanguage.GenerativeClient
	model             string
	systemInstruction *pb.Content
	timeout           time.Duration
	logger            *zap.Logger
	rateChan          chan struct{} // Token bucket
}

func NewGeminiService(
	apiKey string,
	modelName string,
	systemInstruction string,
	concurrentReqs int,
	timeout time.Duration,
	logger *zap.Logger,
	opts ...option.ClientOption,
) (*GeminiService, error) {
	ctx := context.Background()
	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := generativelanguage.NewGenerativeRESTClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if !strings.Contains(modelName, "/") {
		modelName = "models/" + modelName
	}

	var instruction *pb.Content
	if systemInstruction != "" {
		instruction = &pb.Content{
			Parts: []*pb.Part{{Data: &pb.Part_Text{Text: systemInstruction}}},
		}
	}

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:            client,
		model:             modelName,
		systemInstruction: instruction,
		timeout:           timeout,
		logger:            logger,
		rateChan:          rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until an upstream slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GenerateReply submits the whole content list in one generateContent call.
// The upstream timeout covers both the wait for a slot and the call itself.
// A blocked prompt or reply is not an error: the response simply carries no
// text. Every failure is returned as *UpstreamError.
func (s *GeminiService) GenerateReply(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	if len(contents) == 0 {
		return nil, errors.New("no contents to send")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.acquireRate(ctx); err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer s.releaseRate()

	resp, err := s.client.GenerateContent(ctx, &pb.GenerateContentRequest{
		Model:             s.model,
		SystemInstruction: s.systemInstruction,
		Contents:          toProtoContents(contents),
	})
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	if fb := resp.GetPromptFeedback(); fb.GetBlockReason() != pb.GenerateContentResponse_PromptFeedback_BLOCK_REASON_UNSPECIFIED {
		s.logger.Warn("gemini blocked the prompt", zap.String("reason", fb.GetBlockReason().String()))
	}
	for i, cand := range resp.GetCandidates() {
		reason := cand.GetFinishReason()
		if reason != pb.Candidate_STOP && reason != pb.Candidate_FINISH_REASON_UNSPECIFIED {
			s.logger.Warn("gemini stopped early", zap.Int("candidate", i), zap.String("finish_reason", reason.String()))
		}
	}

	return fromProtoResponse(resp), nil
}

func toProtoContents(contents []*genai.Content) []*pb.Content {
	out := make([]*pb.Content, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		pc := &pb.Content{Role: c.Role}
		for _, part := range c.Parts {
			switch p := part.(type) {
			case genai.Text:
				pc.Parts = append(pc.Parts, &pb.Part{Data: &pb.Part_Text{Text: string(p)}})
			case genai.Blob:
				pc.Parts = append(pc.Parts, &pb.Part{Data: &pb.Part_InlineData{
					InlineData: &pb.Blob{MimeType: p.MIMEType, Data: p.Data},
				}})
			}
		}
		out = append(out, pc)
	}
	return out
}

func fromProtoResponse(resp *pb.GenerateContentResponse) *genai.GenerateContentResponse {
	out := &genai.GenerateContentResponse{}
	for _, c := range resp.GetCandidates() {
		out.Candidates = append(out.Candidates, &genai.Candidate{
			Index:        c.GetIndex(),
			Content:      fromProtoContent(c.GetContent()),
			FinishReason: genai.FinishReason(c.GetFinishReason()),
		})
	}
	if fb := resp.GetPromptFeedback(); fb != nil {
		out.PromptFeedback = &genai.PromptFeedback{BlockReason: genai.BlockReason(fb.GetBlockReason())}
	}
	return out
}

func fromProtoContent(c *pb.Content) *genai.Content {
	if c == nil {
		return nil
	}
	out := &genai.Content{Role: c.GetRole()}
	for _, part := range c.GetParts() {
		switch d := part.GetData().(type) {
		case *pb.Part_Text:
			out.Parts = append(out.Parts, genai.Text(d.Text))
		case *pb.Part_InlineData:
			out.Parts = append(out.Parts, genai.Blob{
				MIMEType: d.InlineData.GetMimeType(),
				Data:     d.InlineData.GetData(),
			})
		}
	}
	return out
}
