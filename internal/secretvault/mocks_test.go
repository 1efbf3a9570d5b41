package secretvault

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// mockTestingT is the subset of *testing.T the mocks need.
type mockTestingT interface {
	mock.TestingT
	Cleanup(func())
}

// SecretStorageMock is a testify mock for the SecretStorage interface.
type SecretStorageMock struct {
	mock.Mock
}

func NewSecretStorageMock(t mockTestingT) *SecretStorageMock {
	m := new(SecretStorageMock)
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SecretStorageMock) Load(ctx context.Context) (*WalletSecret, error) {
	args := m.Called(ctx)

	var secret *WalletSecret
	if v := args.Get(0); v != nil {
		secret = v.(*WalletSecret)
	}
	return secret, args.Error(1)
}

func (m *SecretStorageMock) Save(ctx context.Context, secret WalletSecret) error {
	return m.Called(ctx, secret).Error(0)
}

func (m *SecretStorageMock) Delete(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type SecretStorageMockExpecter struct {
	mock *mock.Mock
}

func (m *SecretStorageMock) EXPECT() *SecretStorageMockExpecter {
	return &SecretStorageMockExpecter{mock: &m.Mock}
}

func (e *SecretStorageMockExpecter) Load(ctx any) *mock.Call {
	return e.mock.On("Load", ctx)
}

func (e *SecretStorageMockExpecter) Save(ctx, secret any) *mock.Call {
	return e.mock.On("Save", ctx, secret)
}

func (e *SecretStorageMockExpecter) Delete(ctx any) *mock.Call {
	return e.mock.On("Delete", ctx)
}

// FlagStorageMock is a testify mock for the FlagStorage interface.
type FlagStorageMock struct {
	mock.Mock
}

func NewFlagStorageMock(t mockTestingT) *FlagStorageMock {
	m := new(FlagStorageMock)
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *FlagStorageMock) BackupComplete(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *FlagStorageMock) SetBackupComplete(ctx context.Context, complete bool) error {
	return m.Called(ctx, complete).Error(0)
}

type FlagStorageMockExpecter struct {
	mock *mock.Mock
}

func (m *FlagStorageMock) EXPECT() *FlagStorageMockExpecter {
	return &FlagStorageMockExpecter{mock: &m.Mock}
}

func (e *FlagStorageMockExpecter) BackupComplete(ctx any) *mock.Call {
	return e.mock.On("BackupComplete", ctx)
}

func (e *FlagStorageMockExpecter) SetBackupComplete(ctx, complete any) *mock.Call {
	return e.mock.On("SetBackupComplete", ctx, complete)
}

// BackgroundSchedulerMock is a testify mock for the BackgroundScheduler
// interface.
type BackgroundSchedulerMock struct {
	mock.Mock
}

func NewBackgroundSchedulerMock(t mockTestingT) *BackgroundSchedulerMock {
	m := new(BackgroundSchedulerMock)
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BackgroundSchedulerMock) EnableBackgroundSync(ctx context.Context, network Network) error {
	return m.Called(ctx, network).Error(0)
}

type BackgroundSchedulerMockExpecter struct {
	mock *mock.Mock
}

func (m *BackgroundSchedulerMock) EXPECT() *BackgroundSchedulerMockExpecter {
	return &BackgroundSchedulerMockExpecter{mock: &m.Mock}
}

func (e *BackgroundSchedulerMockExpecter) EnableBackgroundSync(ctx, network any) *mock.Call {
	return e.mock.On("EnableBackgroundSync", ctx, network)
}

// Interface compliance checks for the mocks.
var (
	_ SecretStorage       = (*SecretStorageMock)(nil)
	_ FlagStorage         = (*FlagStorageMock)(nil)
	_ BackgroundScheduler = (*BackgroundSchedulerMock)(nil)
)
