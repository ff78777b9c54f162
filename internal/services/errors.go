package services

import (
	"context"
	"errors"

	"google.golang.org/api/googleapi"
)

// GenericUpstreamMessage is shown to clients when the upstream failure
// carries nothing safe to relay.
const GenericUpstreamMessage = "Something went wrong on the server, please try again later."

type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// UpstreamError wraps any failure of the Gemini call.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "gemini request failed: " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

// PublicMessage returns the part of the upstream failure that can be shown
// to a client.
func (e *UpstreamError) PublicMessage() string {
	var apiErr *googleapi.Error
	if errors.As(e.Err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "The model took too long to respond, please try again."
	}

	return GenericUpstreamMessage
}
