package testutils

import (
	"context"
)

// MockGenerator is a test generation provider
type MockGenerator struct {
	// Response is returned by Generate
	Response string

	// Err is returned by Generate when set
	Err error

	// Calls counts Generate invocations; LastPrompt records the most
	// recent prompt
	Calls      int
	LastPrompt string

	// ModelName is reported by Model; defaults to "mock-model"
	ModelName string
}

func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{
		Response:  response,
		ModelName: "mock-model",
	}
}

func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.Calls++
	m.LastPrompt = prompt

	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockGenerator) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

func (m *MockGenerator) Close() error {
	return nil
}
