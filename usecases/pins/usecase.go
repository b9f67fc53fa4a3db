package pins

import (
	"context"
	"fmt"

	"pinbot/clients"
	"pinbot/core"
	"pinbot/core/log"
	"pinbot/models"
)

// Command names as registered for the message context menu
const (
	PinCommandName   = "Pin Message"
	UnpinCommandName = "Unpin Message"
)

// User-visible texts. No other text, and never error details, is shown to users.
const (
	GuildOnlyMessage = "You can't pin messages in a direct message channel. Try in a server instead!"
	FailureMessage   = "Encountered some error, sorry about that... Try again?"
	LinkButtonLabel  = "Message"
)

// ResolveCommand maps a command name to the pin flag. ok is false for any command this
// bot doesn't handle.
func ResolveCommand(name string) (pin bool, ok bool) {
	switch name {
	case PinCommandName:
		return true, true
	case UnpinCommandName:
		return false, true
	default:
		return false, false
	}
}

// PinsUseCase handles the pin and unpin message commands
type PinsUseCase struct {
	discordClient clients.DiscordClient
}

func NewPinsUseCase(discordClient clients.DiscordClient) *PinsUseCase {
	return &PinsUseCase{
		discordClient: discordClient,
	}
}

// HandleCommand runs one invocation to completion: resolve, guild check, defer, pin or
// unpin, then exactly one follow-up. Every exit after the deferral goes through the
// follow-up; errors before it mean nothing more was sent.
func (u *PinsUseCase) HandleCommand(ctx context.Context, inv models.CommandInvocation) error {
	pin, ok := ResolveCommand(inv.CommandName)
	if !ok {
		log.Debug("🔍 Ignoring unrecognized command", "command", inv.CommandName, "interaction_id", inv.InteractionID)
		return nil
	}

	ref := clients.NewInteractionRef(inv)

	if inv.InDirectMessage() {
		log.Info("📨 Pin command used outside a guild, sending guild-only notice",
			"interaction_id", inv.InteractionID, "channel_id", inv.ChannelID)
		err := u.discordClient.CreateInteractionResponse(ctx, ref, clients.InteractionResponse{
			Type:    clients.InteractionResponseMessage,
			Content: GuildOnlyMessage,
		})
		if err != nil {
			return fmt.Errorf("failed to send guild-only response: %w", err)
		}
		return nil
	}

	target, ok := inv.Target.Get()
	if !ok {
		return fmt.Errorf("%w: command %q has no resolved target message (interaction %s)",
			core.ErrProtocolViolation, inv.CommandName, inv.InteractionID)
	}
	user, ok := inv.User.Get()
	if !ok {
		return fmt.Errorf("%w: command %q has no invoking user (interaction %s)",
			core.ErrProtocolViolation, inv.CommandName, inv.InteractionID)
	}

	// The pin call can outlast the first-response window, so acknowledge first
	err := u.discordClient.CreateInteractionResponse(ctx, ref, clients.InteractionResponse{
		Type: clients.InteractionResponseDeferred,
	})
	if err != nil {
		return fmt.Errorf("failed to defer interaction response: %w", err)
	}

	displayName := user.DisplayName()
	reason := auditReason(displayName, inv)

	if pin {
		err = u.discordClient.CreatePin(ctx, target.ChannelID, target.MessageID, reason)
	} else {
		err = u.discordClient.DeletePin(ctx, target.ChannelID, target.MessageID, reason)
	}

	if err != nil {
		log.Error("❌ Failed to process pin",
			"error", err,
			"reason", clients.FailureReason(err),
			"pin", pin,
			"channel_id", target.ChannelID,
			"message_id", target.MessageID,
			"user_id", user.ID)

		return u.sendFollowup(ctx, ref, clients.FollowupMessage{Content: FailureMessage})
	}

	content := ResultContent(displayName, pin)
	log.Info(fmt.Sprintf("[%s] %s", target.ChannelID, content))

	return u.sendFollowup(ctx, ref, clients.FollowupMessage{
		Content: content,
		Components: []clients.LinkButton{
			{Label: LinkButtonLabel, URL: target.Link()},
		},
	})
}

func (u *PinsUseCase) sendFollowup(ctx context.Context, ref clients.InteractionRef, msg clients.FollowupMessage) error {
	if err := u.discordClient.CreateFollowup(ctx, ref, msg); err != nil {
		return fmt.Errorf("failed to send followup message: %w", err)
	}
	return nil
}

// ResultContent is the follow-up text for a successful pin or unpin
func ResultContent(displayName string, pin bool) string {
	prefix := "un"
	if pin {
		prefix = ""
	}
	return fmt.Sprintf("\U0001F4CC **%s** %spinned message in this channel.", displayName, prefix)
}

// auditReason is recorded in the guild audit log; the channel id stands in when the
// name isn't cached
func auditReason(displayName string, inv models.CommandInvocation) string {
	channel := inv.ChannelName
	if channel == "" {
		channel = inv.ChannelID
	}
	return fmt.Sprintf("Requested by %s in #%s", displayName, channel)
}
