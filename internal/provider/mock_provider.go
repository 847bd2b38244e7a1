package provider

import (
	"context"
	"sync"

	"github.com/raine/room-design-studio/internal/design"
)

// MockProvider is a test double for Provider.
// GenerateDesignFunc can be overridden; by default a successful image
// result with a fixed reference is returned. Thread-safe.
type MockProvider struct {
	ProviderName       string
	ProviderKind       Kind
	GenerateDesignFunc func(ctx context.Context, req design.Request) design.Result

	mu sync.Mutex

	// Requests records every request passed to GenerateDesign.
	Requests []design.Request
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) GenerateDesign(ctx context.Context, req design.Request) design.Result {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn := m.GenerateDesignFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return design.Result{
		Success:     true,
		ImageRef:    "https://images.example/mock.png",
		ImageSource: design.ImageSourceProvider,
		Provider:    m.Name(),
	}
}

func (m *MockProvider) Kind() Kind { return m.ProviderKind }

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// CallCount returns how many times GenerateDesign was called.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request, if any.
func (m *MockProvider) LastRequest() (design.Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return design.Request{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}
