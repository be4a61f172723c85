package mocks

import (
	"context"
	"sync"
)

// TokenInfo is one recorded usage report.
type TokenInfo struct {
	Language           string
	TotalTokens        int
	CleanedErrorOutput string
}

// MockNotifier records notifications instead of posting them.
type MockNotifier struct {
	Disabled bool

	// Err is returned from every send when set.
	Err error

	mu         sync.Mutex
	tokenInfos []TokenInfo
	errorLogs  []string
	cancelled  int
}

// NewMockNotifier creates an enabled notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Enabled implements processing.Notifier.
func (m *MockNotifier) Enabled() bool {
	return !m.Disabled
}

// SendTokenInfo implements processing.Notifier.
func (m *MockNotifier) SendTokenInfo(ctx context.Context, language string, totalTokens int, cleanedErrorOutput string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		m.cancelled++
	}
	m.tokenInfos = append(m.tokenInfos, TokenInfo{
		Language:           language,
		TotalTokens:        totalTokens,
		CleanedErrorOutput: cleanedErrorOutput,
	})
	return m.Err
}

// SendErrorLog implements processing.Notifier.
func (m *MockNotifier) SendErrorLog(ctx context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		m.cancelled++
	}
	m.errorLogs = append(m.errorLogs, msg)
	return m.Err
}

// TokenInfos returns the recorded usage reports.
func (m *MockNotifier) TokenInfos() []TokenInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TokenInfo(nil), m.tokenInfos...)
}

// ErrorLogs returns the recorded error messages.
func (m *MockNotifier) ErrorLogs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errorLogs...)
}

// CancelledSends counts sends that received an already-cancelled context.
func (m *MockNotifier) CancelledSends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelled
}
