package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockRemote is a testify mock of the remote cache backend
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Get(ctx context.Context, key string) (interface{}, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Bool(1), args.Error(2)
}

func (m *MockRemote) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockRemote) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRemote) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
