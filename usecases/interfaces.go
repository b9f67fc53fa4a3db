package usecases

import (
	"context"

	"pinbot/models"
)

// PinsUseCaseInterface handles one pin or unpin command invocation
type PinsUseCaseInterface interface {
	HandleCommand(ctx context.Context, inv models.CommandInvocation) error
}
