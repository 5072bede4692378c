package core

import (
	"context"
	"errors"
)

// ErrTextGenUnavailable is returned when no text-generation backend is
// configured or the backend cannot be reached. Callers surface it as a
// degraded feature, never as a workflow failure.
var ErrTextGenUnavailable = errors.New("text generation service unavailable")

// TextGenService is an optional external text-generation collaborator used
// for assignment-idea suggestions and feedback drafting.
type TextGenService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
