// Package processing runs the troubleshooting pipeline: sanitize the error
// output, render the prompt, count tokens, report usage, generate an answer
// and report failures.
package processing

import (
	"context"

	"github.com/teilomillet/nbassist/gemini"
)

// Request is a troubleshooting request sent by a notebook front-end.
// All three fields are required; any of them may be empty.
type Request struct {
	ErrorOutput string `json:"errorOutput"`
	Code        string `json:"code"`
	Language    string `json:"language"`
}

// LanguageModel is the upstream the pipeline talks to.
// *gemini.Client implements it.
type LanguageModel interface {
	CountTokens(ctx context.Context, prompt string) (int, error)
	GenerateContent(ctx context.Context, prompt string) (*gemini.GenerateContentResponse, error)
}

// Notifier receives best-effort usage and error reports.
// *webhook.Client implements it.
type Notifier interface {
	Enabled() bool
	SendTokenInfo(ctx context.Context, language string, totalTokens int, cleanedErrorOutput string) error
	SendErrorLog(ctx context.Context, msg string) error
}
