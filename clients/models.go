package clients

import "pinbot/models"

// InteractionRef is what the REST API needs to answer an interaction.
type InteractionRef struct {
	ID            string
	ApplicationID string
	Token         string
}

// NewInteractionRef builds the reference for a command invocation
func NewInteractionRef(inv models.CommandInvocation) InteractionRef {
	return InteractionRef{
		ID:            inv.InteractionID,
		ApplicationID: inv.ApplicationID,
		Token:         inv.Token,
	}
}

type InteractionResponseType int

const (
	// InteractionResponseMessage answers immediately with a visible message.
	InteractionResponseMessage InteractionResponseType = iota
	// InteractionResponseDeferred acknowledges now and promises a follow-up.
	InteractionResponseDeferred
)

type InteractionResponse struct {
	Type    InteractionResponseType
	Content string
}

type LinkButton struct {
	Label string
	URL   string
}

type FollowupMessage struct {
	Content    string
	Components []LinkButton
}
