package cli

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gabapcia/walletcore/internal/pkg/stream"
	"github.com/gabapcia/walletcore/internal/secretvault"
	"github.com/gabapcia/walletcore/internal/walletsync"
	"github.com/gabapcia/walletcore/internal/walletview"
)

// mockTestingT is the subset of *testing.T the mocks need.
type mockTestingT interface {
	mock.TestingT
	Cleanup(func())
}

// VaultMock is a testify mock for the secretvault.Service interface.
type VaultMock struct {
	mock.Mock
}

var _ secretvault.Service = (*VaultMock)(nil)

func NewVaultMock(t mockTestingT) *VaultMock {
	m := new(VaultMock)
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *VaultMock) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *VaultMock) CreateWallet(ctx context.Context, network secretvault.Network) (*secretvault.WalletSecret, error) {
	args := m.Called(ctx, network)

	var secret *secretvault.WalletSecret
	if v := args.Get(0); v != nil {
		secret = v.(*secretvault.WalletSecret)
	}
	return secret, args.Error(1)
}

func (m *VaultMock) RestoreWallet(ctx context.Context, seedPhrase string, network secretvault.Network, birthday uint64) (*secretvault.WalletSecret, error) {
	args := m.Called(ctx, seedPhrase, network, birthday)

	var secret *secretvault.WalletSecret
	if v := args.Get(0); v != nil {
		secret = v.(*secretvault.WalletSecret)
	}
	return secret, args.Error(1)
}

func (m *VaultMock) ConfirmBackup(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *VaultMock) Wipe(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *VaultMock) State() *stream.Value[secretvault.SecretState] {
	return m.Called().Get(0).(*stream.Value[secretvault.SecretState])
}

func (m *VaultMock) Secret() *stream.Value[*secretvault.WalletSecret] {
	return m.Called().Get(0).(*stream.Value[*secretvault.WalletSecret])
}

func (m *VaultMock) Close() {
	m.Called()
}

type VaultMockExpecter struct {
	mock *mock.Mock
}

func (m *VaultMock) EXPECT() *VaultMockExpecter {
	return &VaultMockExpecter{mock: &m.Mock}
}

func (e *VaultMockExpecter) CreateWallet(ctx, network any) *mock.Call {
	return e.mock.On("CreateWallet", ctx, network)
}

func (e *VaultMockExpecter) RestoreWallet(ctx, seedPhrase, network, birthday any) *mock.Call {
	return e.mock.On("RestoreWallet", ctx, seedPhrase, network, birthday)
}

func (e *VaultMockExpecter) ConfirmBackup(ctx any) *mock.Call {
	return e.mock.On("ConfirmBackup", ctx)
}

func (e *VaultMockExpecter) State() *mock.Call {
	return e.mock.On("State")
}

// CoordinatorMock is a testify mock for the walletsync.Service interface.
type CoordinatorMock struct {
	mock.Mock
}

var _ walletsync.Service = (*CoordinatorMock)(nil)

func NewCoordinatorMock(t mockTestingT) *CoordinatorMock {
	m := new(CoordinatorMock)
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *CoordinatorMock) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *CoordinatorMock) Handle() *stream.Value[walletsync.Handle] {
	return m.Called().Get(0).(*stream.Value[walletsync.Handle])
}

func (m *CoordinatorMock) Rescan(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *CoordinatorMock) Wipe(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *CoordinatorMock) Close() {
	m.Called()
}

type CoordinatorMockExpecter struct {
	mock *mock.Mock
}

func (m *CoordinatorMock) EXPECT() *CoordinatorMockExpecter {
	return &CoordinatorMockExpecter{mock: &m.Mock}
}

func (e *CoordinatorMockExpecter) Rescan(ctx any) *mock.Call {
	return e.mock.On("Rescan", ctx)
}

func (e *CoordinatorMockExpecter) Wipe(ctx any) *mock.Call {
	return e.mock.On("Wipe", ctx)
}

// viewStub implements walletview.Service on top of two plain stream values.
type viewStub struct {
	snapshots    *stream.Value[*walletview.WalletSnapshot]
	transactions *stream.Value[[]walletsync.Transaction]
}

var _ walletview.Service = (*viewStub)(nil)

func newViewStub() *viewStub {
	return &viewStub{
		snapshots:    stream.NewValue[*walletview.WalletSnapshot](),
		transactions: stream.NewValue[[]walletsync.Transaction](),
	}
}

func (s *viewStub) Snapshot() (<-chan *walletview.WalletSnapshot, stream.UnsubscribeFunc) {
	return s.snapshots.Subscribe()
}

func (s *viewStub) Transactions() (<-chan []walletsync.Transaction, stream.UnsubscribeFunc) {
	return s.transactions.Subscribe()
}

func (s *viewStub) Close() {
	s.snapshots.Close()
	s.transactions.Close()
}
