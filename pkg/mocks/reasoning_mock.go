package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockReasoningClient is a mock implementation of reasoning.Client interface.
type MockReasoningClient struct {
	mock.Mock
}

func (m *MockReasoningClient) GenerateContent(ctx context.Context, prompt, systemInstruction string) (string, error) {
	args := m.Called(ctx, prompt, systemInstruction)

	return args.String(0), args.Error(1)
}
