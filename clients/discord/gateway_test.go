package discord

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinbot/models"
)

func createTestCommandInteraction(name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:        "i-1",
			AppID:     "app-1",
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "g-1",
			ChannelID: "c-1",
			Token:     "tok-1",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "u-1", Username: "Alice", Discriminator: "0"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				ID:       "cmd-1",
				Name:     name,
				TargetID: "m-1",
				Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
					Messages: map[string]*discordgo.Message{
						"m-1": {ID: "m-1", ChannelID: "c-1"},
					},
				},
			},
		},
	}
}

func TestMapInteraction_GuildCommand(t *testing.T) {
	event := mapInteraction(createTestCommandInteraction("Pin Message"), "general")

	interaction, ok := event.(models.InteractionEvent)
	require.True(t, ok, "expected InteractionEvent, got %T", event)

	inv := interaction.Invocation
	assert.Equal(t, "i-1", inv.InteractionID)
	assert.Equal(t, "app-1", inv.ApplicationID)
	assert.Equal(t, "tok-1", inv.Token)
	assert.Equal(t, "Pin Message", inv.CommandName)
	assert.Equal(t, "g-1", inv.GuildID)
	assert.Equal(t, "c-1", inv.ChannelID)
	assert.Equal(t, "general", inv.ChannelName)
	assert.Equal(t, models.InvokingUser{ID: "u-1", Username: "Alice", Discriminator: "0"}, inv.User.MustGet())
	assert.Equal(t, models.MessageRef{MessageID: "m-1", ChannelID: "c-1", GuildID: "g-1"}, inv.Target.MustGet())
}

func TestMapInteraction_DirectMessageUsesUser(t *testing.T) {
	interaction := createTestCommandInteraction("Pin Message")
	interaction.GuildID = ""
	interaction.Member = nil
	interaction.User = &discordgo.User{ID: "u-2", Username: "Bob", Discriminator: "4321"}

	event := mapInteraction(interaction, "")

	inv := event.(models.InteractionEvent).Invocation
	assert.True(t, inv.InDirectMessage())
	assert.Equal(t, "Bob#4321", inv.User.MustGet().DisplayName())
}

func TestMapInteraction_MissingResolvedData(t *testing.T) {
	interaction := createTestCommandInteraction("Pin Message")
	data := interaction.Data.(discordgo.ApplicationCommandInteractionData)
	data.Resolved = nil
	interaction.Data = data
	interaction.Member = nil

	event := mapInteraction(interaction, "")

	inv := event.(models.InteractionEvent).Invocation
	assert.False(t, inv.Target.IsPresent())
	assert.False(t, inv.User.IsPresent())
}

func TestMapInteraction_FallsBackToFirstResolvedMessage(t *testing.T) {
	interaction := createTestCommandInteraction("Unpin Message")
	data := interaction.Data.(discordgo.ApplicationCommandInteractionData)
	data.TargetID = ""
	data.Resolved.Messages = map[string]*discordgo.Message{
		"m-9": {ID: "m-9"},
		"m-2": {ID: "m-2"},
	}
	interaction.Data = data

	event := mapInteraction(interaction, "")

	inv := event.(models.InteractionEvent).Invocation
	assert.Equal(t, "m-2", inv.Target.MustGet().MessageID)
}

func TestMapInteraction_NonCommandInteraction(t *testing.T) {
	interaction := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:   "i-1",
			Type: discordgo.InteractionMessageComponent,
			Data: discordgo.MessageComponentInteractionData{CustomID: "button"},
		},
	}

	event := mapInteraction(interaction, "")

	assert.IsType(t, models.OtherEvent{}, event)
}

func TestMapEvent(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected models.GatewayEvent
	}{
		{
			name:     "ready",
			input:    &discordgo.Ready{SessionID: "s-1", User: &discordgo.User{ID: "U1"}},
			expected: models.ReadyEvent{SelfUserID: "U1", SessionID: "s-1"},
		},
		{
			name:     "ready without user",
			input:    &discordgo.Ready{SessionID: "s-1"},
			expected: models.ReadyEvent{SessionID: "s-1"},
		},
		{
			name: "pin notice",
			input: &discordgo.MessageCreate{Message: &discordgo.Message{
				ID:        "m-notice",
				ChannelID: "c-1",
				GuildID:   "g-1",
				Author:    &discordgo.User{ID: "U1"},
				Type:      discordgo.MessageTypeChannelPinnedMessage,
			}},
			expected: models.MessageCreatedEvent{
				MessageID: "m-notice",
				ChannelID: "c-1",
				GuildID:   "g-1",
				AuthorID:  "U1",
				Kind:      models.MessageKindChannelPinnedMessage,
			},
		},
		{
			name: "message without author",
			input: &discordgo.MessageCreate{Message: &discordgo.Message{
				ID:        "m-2",
				ChannelID: "c-1",
			}},
			expected: models.MessageCreatedEvent{
				MessageID: "m-2",
				ChannelID: "c-1",
				Kind:      models.MessageKindDefault,
			},
		},
		{
			name:     "resumed is ignored",
			input:    &discordgo.Resumed{},
			expected: models.OtherEvent{Type: "*discordgo.Resumed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapEvent(tt.input))
		})
	}
}

func TestMapEvent_DisconnectIsRecoverable(t *testing.T) {
	event := mapEvent(&discordgo.Disconnect{})

	transportErr, ok := event.(models.TransportErrorEvent)
	require.True(t, ok)
	assert.False(t, transportErr.Fatal)
	assert.Error(t, transportErr.Err)
}

func TestClassifyGatewayError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"authentication failed", &websocket.CloseError{Code: 4004, Text: "Authentication failed."}, true},
		{"disallowed intents", &websocket.CloseError{Code: 4014, Text: "Disallowed intent(s)."}, true},
		{"wrapped invalid shard", fmt.Errorf("gateway: %w", &websocket.CloseError{Code: 4010}), true},
		{"unknown error is recoverable", &websocket.CloseError{Code: 4000, Text: "Unknown error."}, false},
		{"session timed out is recoverable", &websocket.CloseError{Code: 4009}, false},
		{"abnormal closure", &websocket.CloseError{Code: websocket.CloseAbnormalClosure}, false},
		{"untyped close text is not classified", errors.New("websocket: close 4004: Authentication failed."), false},
		{"timeout", errors.New("read tcp: i/o timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyGatewayError(tt.err))
		})
	}
}

func TestGatewayError(t *testing.T) {
	tests := []struct {
		name          string
		line          string
		expectedCode  int
		expectedFatal bool
	}{
		{
			name:          "authentication failed",
			line:          "error reading from gateway wss://gateway.discord.gg/?v=10&encoding=json websocket, websocket: close 4004: Authentication failed.",
			expectedCode:  4004,
			expectedFatal: true,
		},
		{
			name:          "disallowed intents",
			line:          "websocket: close 4014: Disallowed intent(s).",
			expectedCode:  4014,
			expectedFatal: true,
		},
		{
			name:         "going away",
			line:         "websocket: close 1001 (going away)",
			expectedCode: 1001,
		},
		{
			name:         "session timed out",
			line:         "websocket: close 4009: Session timed out.",
			expectedCode: 4009,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gatewayError(tt.line)

			var closeErr *websocket.CloseError
			require.ErrorAs(t, err, &closeErr)
			assert.Equal(t, tt.expectedCode, closeErr.Code)
			assert.Equal(t, tt.line, closeErr.Text)
			assert.Equal(t, tt.expectedFatal, ClassifyGatewayError(err))
		})
	}

	t.Run("line without close code", func(t *testing.T) {
		err := gatewayError("error reading from gateway: read tcp: i/o timeout")

		var closeErr *websocket.CloseError
		assert.False(t, errors.As(err, &closeErr))
		assert.False(t, ClassifyGatewayError(err))
		assert.EqualError(t, err, "error reading from gateway: read tcp: i/o timeout")
	})
}

func setupGatewayTest(t *testing.T) *GatewayClient {
	session, err := NewSession("test-token")
	require.NoError(t, err)

	assert.True(t, session.SyncEvents)
	assert.Equal(t, discordgo.IntentsGuildMessages, session.Identify.Intents)

	return NewGatewayClient(session)
}

func receiveEvent(t *testing.T, g *GatewayClient) models.GatewayEvent {
	select {
	case event := <-g.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for gateway event")
		return nil
	}
}

func TestGatewayClient_OnEventPreservesOrder(t *testing.T) {
	g := setupGatewayTest(t)

	g.onEvent(nil, &discordgo.Event{Type: "READY"})
	g.onEvent(nil, &discordgo.Ready{User: &discordgo.User{ID: "U1"}})
	g.onEvent(nil, createTestCommandInteraction("Pin Message"))
	g.onEvent(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:     "m-notice",
		Author: &discordgo.User{ID: "U1"},
		Type:   discordgo.MessageTypeChannelPinnedMessage,
	}})

	assert.IsType(t, models.ReadyEvent{}, receiveEvent(t, g))
	assert.IsType(t, models.InteractionEvent{}, receiveEvent(t, g))
	assert.IsType(t, models.MessageCreatedEvent{}, receiveEvent(t, g))
	assert.Len(t, g.Events(), 0, "raw event envelopes must not be forwarded")
}

func TestGatewayClient_LogBridgeSurfacesTransportErrors(t *testing.T) {
	g := setupGatewayTest(t)

	g.logBridge(discordgo.LogInformational, 0, "connected to gateway %s", "wss://gateway.discord.gg")
	assert.Len(t, g.Events(), 0)

	g.logBridge(discordgo.LogWarning, 0, "error reading from gateway %s websocket, %s", "wss://gateway.discord.gg", "read tcp: i/o timeout")
	recoverable := receiveEvent(t, g).(models.TransportErrorEvent)
	assert.False(t, recoverable.Fatal)
	assert.Contains(t, recoverable.Err.Error(), "i/o timeout")

	g.logBridge(discordgo.LogWarning, 0, "error reading from gateway %s websocket, %s", "wss://gateway.discord.gg",
		&websocket.CloseError{Code: 4004, Text: "Authentication failed."})
	fatal := receiveEvent(t, g).(models.TransportErrorEvent)
	assert.True(t, fatal.Fatal)
	var closeErr *websocket.CloseError
	require.ErrorAs(t, fatal.Err, &closeErr)
	assert.Equal(t, 4004, closeErr.Code)
}

func TestGatewayClient_CloseEndsStream(t *testing.T) {
	g := setupGatewayTest(t)

	require.NoError(t, g.Close())

	for range g.Events() {
	}

	// Late events and a second Close are harmless
	g.onEvent(nil, &discordgo.Ready{User: &discordgo.User{ID: "U1"}})
	g.logBridge(discordgo.LogError, 0, "late error")
	assert.NoError(t, g.Close())
}
