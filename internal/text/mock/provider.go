// Package mock provides test doubles for the text provider boundary.
package mock

import (
	"context"

	"github.com/castpress/castpress/internal/text"
)

// Provider satisfies text.Provider for testing.
type Provider struct {
	Name_        string
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// Calls records every prompt seen, in order.
	Calls []string
}

func (m *Provider) Name() string { return m.Name_ }

func (m *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls = append(m.Calls, prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

// NewStatic returns a provider that always answers with the given text.
func NewStatic(name, answer string) *Provider {
	return &Provider{
		Name_: name,
		GenerateFunc: func(_ context.Context, _ string) (string, error) {
			return answer, nil
		},
	}
}

// NewFailing returns a provider that always returns the given error.
func NewFailing(name string, err error) *Provider {
	return &Provider{
		Name_: name,
		GenerateFunc: func(_ context.Context, _ string) (string, error) {
			return "", err
		},
	}
}

var _ text.Provider = (*Provider)(nil)
