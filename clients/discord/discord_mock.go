package discord

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pinbot/clients"
	"pinbot/models"
)

// MockDiscordClient implements the clients.DiscordClient interface for testing
type MockDiscordClient struct {
	mock.Mock
}

func (m *MockDiscordClient) CreatePin(ctx context.Context, channelID, messageID, reason string) error {
	args := m.Called(ctx, channelID, messageID, reason)
	return args.Error(0)
}

func (m *MockDiscordClient) DeletePin(ctx context.Context, channelID, messageID, reason string) error {
	args := m.Called(ctx, channelID, messageID, reason)
	return args.Error(0)
}

func (m *MockDiscordClient) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}

func (m *MockDiscordClient) CreateInteractionResponse(
	ctx context.Context,
	ref clients.InteractionRef,
	resp clients.InteractionResponse,
) error {
	args := m.Called(ctx, ref, resp)
	return args.Error(0)
}

func (m *MockDiscordClient) CreateFollowup(
	ctx context.Context,
	ref clients.InteractionRef,
	msg clients.FollowupMessage,
) error {
	args := m.Called(ctx, ref, msg)
	return args.Error(0)
}

// MockGatewayClient implements the clients.GatewayClient interface for testing.
// Tests push events into EventsCh and close it to end the stream.
type MockGatewayClient struct {
	mock.Mock
	EventsCh chan models.GatewayEvent
}

func NewMockGatewayClient(buffer int) *MockGatewayClient {
	return &MockGatewayClient{
		EventsCh: make(chan models.GatewayEvent, buffer),
	}
}

func (m *MockGatewayClient) Open(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGatewayClient) Events() <-chan models.GatewayEvent {
	return m.EventsCh
}

func (m *MockGatewayClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
