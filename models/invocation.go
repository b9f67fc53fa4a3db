package models

import (
	"fmt"

	"github.com/samber/mo"
)

// DiscordWebBase is the host used for message jump links.
const DiscordWebBase = "https://discord.com"

// CommandInvocation is one user-triggered application command. Token is single use and
// expires shortly after the interaction is created.
type CommandInvocation struct {
	InteractionID string
	ApplicationID string
	Token         string
	CommandName   string
	// GuildID is empty for invocations from a direct message channel
	GuildID     string
	ChannelID   string
	ChannelName string
	User        mo.Option[InvokingUser]
	Target      mo.Option[MessageRef]
}

// InDirectMessage reports whether the command was invoked outside a guild.
func (c CommandInvocation) InDirectMessage() bool {
	return c.GuildID == ""
}

type InvokingUser struct {
	ID            string
	Username      string
	Discriminator string
}

// DisplayName returns name#discriminator for accounts that still carry a legacy
// discriminator, and the plain username otherwise.
func (u InvokingUser) DisplayName() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return fmt.Sprintf("%s#%s", u.Username, u.Discriminator)
}

// MessageRef identifies the message a context-menu command was invoked on.
type MessageRef struct {
	MessageID string
	ChannelID string
	GuildID   string
}

// Link returns the jump URL for the message.
func (m MessageRef) Link() string {
	return fmt.Sprintf("%s/channels/%s/%s/%s", DiscordWebBase, m.GuildID, m.ChannelID, m.MessageID)
}
