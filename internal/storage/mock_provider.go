package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of the Provider interface for testing.
type MockProvider struct {
	mock.Mock
}

// Get is the mock implementation of the Get method.
func (m *MockProvider) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	args := m.Called(ctx, namespace, key)
	return args.String(0), args.Bool(1), args.Error(2) //nolint:wrapcheck
}

// Put is the mock implementation of the Put method.
func (m *MockProvider) Put(ctx context.Context, namespace, key, value string) error {
	args := m.Called(ctx, namespace, key, value)
	return args.Error(0) //nolint:wrapcheck
}

// List is the mock implementation of the List method.
func (m *MockProvider) List(ctx context.Context, namespace string) ([]Entry, error) {
	args := m.Called(ctx, namespace)
	entries, _ := args.Get(0).([]Entry)
	return entries, args.Error(1) //nolint:wrapcheck
}

// Ping is the mock implementation of the Ping method.
func (m *MockProvider) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0) //nolint:wrapcheck
}

// Close is the mock implementation of the Close method.
func (m *MockProvider) Close() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck
}
