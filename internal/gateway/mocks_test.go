package gateway

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/interpay/interbank/internal/models"
)

type MockBank struct {
	mock.Mock
}

func (m *MockBank) PrepareTransaction(ctx context.Context, req models.PrepareRequest) (models.PrepareResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.PrepareResponse), args.Error(1)
}

func (m *MockBank) CommitTransaction(ctx context.Context, req models.CommitRequest) (models.StatusResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.StatusResponse), args.Error(1)
}

func (m *MockBank) Registration(ctx context.Context, req models.RegistrationRequest) (models.StatusResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.StatusResponse), args.Error(1)
}

func (m *MockBank) MakePayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.PaymentResponse), args.Error(1)
}

func (m *MockBank) CheckBalance(ctx context.Context, accountID string) (models.BalanceResponse, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(models.BalanceResponse), args.Error(1)
}
