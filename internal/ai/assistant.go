package ai

import (
	"context"
)

const (
	DefaultModel       = "gemini-2.5-flash-lite"
	DefaultTemperature = 0.2
)

// Settings describes how a completion is requested from the provider.
type Settings struct {
	Model       string
	Temperature float64
	// SystemInstruction is sent alongside every prompt when not empty.
	SystemInstruction string
}

// Completer is the language model boundary: a prompt goes in, completion text comes out.
type Completer interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}
