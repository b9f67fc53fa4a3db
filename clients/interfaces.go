package clients

import (
	"context"

	"pinbot/models"
)

// DiscordClient is the REST surface the bot acts through.
type DiscordClient interface {
	CreatePin(ctx context.Context, channelID, messageID, reason string) error
	DeletePin(ctx context.Context, channelID, messageID, reason string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	CreateInteractionResponse(ctx context.Context, ref InteractionRef, resp InteractionResponse) error
	CreateFollowup(ctx context.Context, ref InteractionRef, msg FollowupMessage) error
}

// GatewayClient owns the single gateway connection and exposes its events in arrival
// order. The channel is closed once the connection is shut down.
type GatewayClient interface {
	Open(ctx context.Context) error
	Events() <-chan models.GatewayEvent
	Close() error
}
