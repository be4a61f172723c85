package mocks

import (
	"context"
	"sync"

	"github.com/teilomillet/nbassist/gemini"
)

// MockLanguageModel implements a mock language model for testing purposes.
// It simulates the upstream without making actual API calls and records
// every prompt it receives.
//
// Example usage:
//
//	llm := NewMockLanguageModel(func(ctx context.Context, prompt string) (*gemini.GenerateContentResponse, error) {
//	    return TextResponse("mocked response"), nil
//	})
type MockLanguageModel struct {
	CountTokensFunc func(context.Context, string) (int, error)
	GenerateFunc    func(context.Context, string) (*gemini.GenerateContentResponse, error)

	mu              sync.Mutex
	countPrompts    []string
	generatePrompts []string
	calls           []string
}

// NewMockLanguageModel creates a mock with an optional generate function.
// Token counting returns 10 unless CountTokensFunc is set.
func NewMockLanguageModel(generateFunc func(context.Context, string) (*gemini.GenerateContentResponse, error)) *MockLanguageModel {
	return &MockLanguageModel{GenerateFunc: generateFunc}
}

// CountTokens records the prompt and delegates to CountTokensFunc.
func (m *MockLanguageModel) CountTokens(ctx context.Context, prompt string) (int, error) {
	m.mu.Lock()
	m.countPrompts = append(m.countPrompts, prompt)
	m.calls = append(m.calls, "countTokens")
	m.mu.Unlock()

	if m.CountTokensFunc != nil {
		return m.CountTokensFunc(ctx, prompt)
	}
	return 10, nil
}

// GenerateContent records the prompt and delegates to GenerateFunc.
func (m *MockLanguageModel) GenerateContent(ctx context.Context, prompt string) (*gemini.GenerateContentResponse, error) {
	m.mu.Lock()
	m.generatePrompts = append(m.generatePrompts, prompt)
	m.calls = append(m.calls, "generateContent")
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return TextResponse(""), nil
}

// Calls returns the upstream operations in call order.
func (m *MockLanguageModel) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CountPrompts returns every prompt passed to CountTokens.
func (m *MockLanguageModel) CountPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.countPrompts...)
}

// GeneratePrompts returns every prompt passed to GenerateContent.
func (m *MockLanguageModel) GeneratePrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.generatePrompts...)
}

// TextResponse builds a single-candidate response.
func TextResponse(text string) *gemini.GenerateContentResponse {
	return &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content: gemini.Content{
				Parts: []gemini.Part{{Text: text}},
				Role:  "model",
			},
			FinishReason: "STOP",
		}},
	}
}
