package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"pinbot/clients"
)

// Discord JSON error codes the bot distinguishes in its logs
const (
	apiCodeUnknownMessage     = 10008
	apiCodeMaxPinsReached     = 30003
	apiCodeMissingPermissions = 50013
)

const maxAuditLogReasonLength = 512

// DiscordClient implements the clients.DiscordClient interface on top of a discordgo session
type DiscordClient struct {
	session *discordgo.Session
}

// NewDiscordClient creates a REST client sharing the gateway session's token and HTTP client
func NewDiscordClient(session *discordgo.Session) clients.DiscordClient {
	return &DiscordClient{
		session: session,
	}
}

// CreatePin pins a message in a channel
func (c *DiscordClient) CreatePin(ctx context.Context, channelID, messageID, reason string) error {
	err := c.session.ChannelMessagePin(channelID, messageID, requestOptions(ctx, reason)...)
	if err != nil {
		return newActionError("create pin", err)
	}
	return nil
}

// DeletePin unpins a message in a channel
func (c *DiscordClient) DeletePin(ctx context.Context, channelID, messageID, reason string) error {
	err := c.session.ChannelMessageUnpin(channelID, messageID, requestOptions(ctx, reason)...)
	if err != nil {
		return newActionError("delete pin", err)
	}
	return nil
}

// DeleteMessage deletes a message in a channel
func (c *DiscordClient) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := c.session.ChannelMessageDelete(channelID, messageID, requestOptions(ctx, "")...)
	if err != nil {
		return newActionError("delete message", err)
	}
	return nil
}

// CreateInteractionResponse sends the initial response to an interaction
func (c *DiscordClient) CreateInteractionResponse(
	ctx context.Context,
	ref clients.InteractionRef,
	resp clients.InteractionResponse,
) error {
	var sdkResponse *discordgo.InteractionResponse
	switch resp.Type {
	case clients.InteractionResponseDeferred:
		sdkResponse = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		}
	case clients.InteractionResponseMessage:
		sdkResponse = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:         resp.Content,
				AllowedMentions: noMentions(),
			},
		}
	default:
		return fmt.Errorf("unsupported interaction response type %d", resp.Type)
	}

	err := c.session.InteractionRespond(toSDKInteraction(ref), sdkResponse, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to create interaction response: %w", err)
	}
	return nil
}

// CreateFollowup sends a follow-up message for a previously acknowledged interaction
func (c *DiscordClient) CreateFollowup(
	ctx context.Context,
	ref clients.InteractionRef,
	msg clients.FollowupMessage,
) error {
	params := &discordgo.WebhookParams{
		Content:         msg.Content,
		AllowedMentions: noMentions(),
	}

	if len(msg.Components) > 0 {
		buttons := make([]discordgo.MessageComponent, 0, len(msg.Components))
		for _, button := range msg.Components {
			buttons = append(buttons, discordgo.Button{
				Label: button.Label,
				Style: discordgo.LinkButton,
				URL:   button.URL,
			})
		}
		params.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		}
	}

	_, err := c.session.FollowupMessageCreate(toSDKInteraction(ref), true, params, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to create followup message: %w", err)
	}
	return nil
}

// noMentions keeps user-supplied names in content from pinging anyone
func noMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
}

func toSDKInteraction(ref clients.InteractionRef) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:    ref.ID,
		AppID: ref.ApplicationID,
		Token: ref.Token,
	}
}

func requestOptions(ctx context.Context, reason string) []discordgo.RequestOption {
	options := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		// The header must be percent-encoded UTF-8; discordgo sets it verbatim
		options = append(options, discordgo.WithAuditLogReason(url.PathEscape(truncateReason(reason))))
	}
	return options
}

// truncateReason caps the audit log reason at Discord's limit without splitting a rune
func truncateReason(reason string) string {
	if utf8.RuneCountInString(reason) <= maxAuditLogReasonLength {
		return reason
	}
	runes := []rune(reason)
	return string(runes[:maxAuditLogReasonLength])
}

func newActionError(op string, err error) error {
	return &clients.ActionError{
		Op:     op,
		Reason: classifyRESTError(err),
		Err:    err,
	}
}

func classifyRESTError(err error) clients.ActionFailureReason {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return clients.ReasonUnknown
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case apiCodeMissingPermissions:
			return clients.ReasonMissingPermissions
		case apiCodeMaxPinsReached:
			return clients.ReasonPinLimitReached
		case apiCodeUnknownMessage:
			return clients.ReasonNotFound
		}
	}

	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return clients.ReasonMissingPermissions
		case http.StatusNotFound:
			return clients.ReasonNotFound
		}
	}

	return clients.ReasonUnknown
}
