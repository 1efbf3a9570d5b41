package walletsync

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gabapcia/walletcore/internal/secretvault"
)

// mockTestingT is the subset of *testing.T the mocks need.
type mockTestingT interface {
	mock.TestingT
	Cleanup(func())
}

// EngineMock is a testify mock for the Engine interface.
type EngineMock struct {
	mock.Mock
}

func NewEngineMock(t mockTestingT) *EngineMock {
	m := new(EngineMock)
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *EngineMock) Open(ctx context.Context, secret secretvault.WalletSecret) (Handle, error) {
	args := m.Called(ctx, secret)

	var handle Handle
	if v := args.Get(0); v != nil {
		handle = v.(Handle)
	}
	return handle, args.Error(1)
}

type EngineMockExpecter struct {
	mock *mock.Mock
}

func (m *EngineMock) EXPECT() *EngineMockExpecter {
	return &EngineMockExpecter{mock: &m.Mock}
}

func (e *EngineMockExpecter) Open(ctx, secret any) *mock.Call {
	return e.mock.On("Open", ctx, secret)
}

// Ensure compile-time compliance with the mocked interfaces.
var _ Engine = (*EngineMock)(nil)
