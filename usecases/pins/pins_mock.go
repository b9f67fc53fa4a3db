package pins

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pinbot/models"
)

// MockPinsUseCase implements the usecases.PinsUseCaseInterface for testing
type MockPinsUseCase struct {
	mock.Mock
}

func (m *MockPinsUseCase) HandleCommand(ctx context.Context, inv models.CommandInvocation) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}
