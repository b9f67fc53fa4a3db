package discord

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	"github.com/samber/mo"

	"pinbot/clients"
	"pinbot/core/log"
	"pinbot/models"
)

const (
	ShardID    = 0
	shardCount = 1

	defaultEventBuffer = 256
)

// Gateway close codes after which reconnecting with the same credentials can't succeed.
// https://discord.com/developers/docs/topics/opcodes-and-status-codes#gateway-gateway-close-event-codes
var fatalCloseCodes = map[int]string{
	4004: "authentication failed",
	4010: "invalid shard",
	4011: "sharding required",
	4012: "invalid API version",
	4013: "invalid intents",
	4014: "disallowed intents",
}

var closeCodePattern = regexp.MustCompile(`close (\d{4})`)

// NewSession creates the discordgo session shared by the gateway and REST clients.
// Only guild message events are requested; interactions are delivered regardless of intents.
func NewSession(botToken string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages
	session.ShardID = ShardID
	session.ShardCount = shardCount
	// Handlers must run in arrival order; the dispatch loop does its own fan-out
	session.SyncEvents = true
	session.ShouldReconnectOnError = true
	session.LogLevel = discordgo.LogWarning

	return session, nil
}

// GatewayClient adapts discordgo's callback API into an ordered stream of models.GatewayEvent
type GatewayClient struct {
	session *discordgo.Session
	events  chan models.GatewayEvent
	done    chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewGatewayClient wires the event bridge into the session. The connection is not opened
// until Open is called.
func NewGatewayClient(session *discordgo.Session) *GatewayClient {
	g := &GatewayClient{
		session: session,
		events:  make(chan models.GatewayEvent, defaultEventBuffer),
		done:    make(chan struct{}),
	}
	session.AddHandler(g.onEvent)
	return g
}

var _ clients.GatewayClient = (*GatewayClient)(nil)

// Open connects to the gateway. A failure here is startup-fatal for the caller.
func (g *GatewayClient) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	discordgo.Logger = g.logBridge

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	log.Info("🤖 Discord gateway connection established", "shard", ShardID, "shard_count", shardCount)
	return nil
}

// Events returns the ordered event stream. It is closed by Close.
func (g *GatewayClient) Events() <-chan models.GatewayEvent {
	return g.events
}

// Close shuts down the gateway connection and closes the event stream
func (g *GatewayClient) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.done)

		err = g.session.Close()

		g.mu.Lock()
		g.closed = true
		close(g.events)
		g.mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

func (g *GatewayClient) emit(event models.GatewayEvent) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return
	}

	select {
	case <-g.done:
		return
	default:
	}

	select {
	case g.events <- event:
	case <-g.done:
	}
}

func (g *GatewayClient) onEvent(s *discordgo.Session, event interface{}) {
	// discordgo delivers the raw envelope before the typed event; only the typed one is used
	if _, ok := event.(*discordgo.Event); ok {
		return
	}

	switch e := event.(type) {
	case *discordgo.InteractionCreate:
		channelName := ""
		if e.Interaction != nil {
			channelName = g.channelName(s, e.ChannelID)
		}
		g.emit(mapInteraction(e, channelName))
	default:
		g.emit(mapEvent(event))
	}
}

// channelName looks the channel up in the session state cache; no REST call is made.
func (g *GatewayClient) channelName(s *discordgo.Session, channelID string) string {
	if s == nil || s.State == nil || channelID == "" {
		return ""
	}
	channel, err := s.State.Channel(channelID)
	if err != nil || channel == nil {
		return ""
	}
	return channel.Name
}

// logBridge routes discordgo's internal log lines into our logger. Gateway warnings and
// errors are also surfaced to the dispatch loop as transport errors.
func (g *GatewayClient) logBridge(msgL, caller int, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)

	switch msgL {
	case discordgo.LogError:
		log.Error("❌ discordgo: "+msg, "caller", caller)
	case discordgo.LogWarning:
		log.Warn("⚠️ discordgo: "+msg, "caller", caller)
	case discordgo.LogInformational:
		log.Info("discordgo: "+msg, "caller", caller)
		return
	default:
		log.Debug("discordgo: "+msg, "caller", caller)
		return
	}

	err := gatewayError(msg)
	g.emit(models.TransportErrorEvent{Err: err, Fatal: ClassifyGatewayError(err)})
}

// gatewayError turns a discordgo log line into an error. Lines that report a websocket
// close carry the close code as a *websocket.CloseError.
func gatewayError(msg string) error {
	matches := closeCodePattern.FindStringSubmatch(msg)
	if len(matches) == 2 {
		if code, err := strconv.Atoi(matches[1]); err == nil {
			return &websocket.CloseError{Code: code, Text: msg}
		}
	}
	return errors.New(msg)
}

// ClassifyGatewayError reports whether a gateway error is fatal, i.e. the session was
// closed with a code that rules out reconnecting with the same token and settings.
func ClassifyGatewayError(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	_, fatal := fatalCloseCodes[closeErr.Code]
	return fatal
}

func mapEvent(event interface{}) models.GatewayEvent {
	switch e := event.(type) {
	case *discordgo.Ready:
		return mapReady(e)
	case *discordgo.MessageCreate:
		return mapMessageCreate(e)
	case *discordgo.Disconnect:
		return models.TransportErrorEvent{Err: errors.New("gateway connection lost"), Fatal: false}
	default:
		return models.OtherEvent{Type: fmt.Sprintf("%T", event)}
	}
}

func mapReady(r *discordgo.Ready) models.GatewayEvent {
	ready := models.ReadyEvent{SessionID: r.SessionID}
	if r.User != nil {
		ready.SelfUserID = r.User.ID
	}
	return ready
}

func mapMessageCreate(m *discordgo.MessageCreate) models.GatewayEvent {
	if m.Message == nil {
		return models.OtherEvent{Type: "MessageCreate"}
	}

	created := models.MessageCreatedEvent{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Kind:      models.MessageKind(m.Type),
	}
	if m.Author != nil {
		created.AuthorID = m.Author.ID
	}
	return created
}

// mapInteraction maps an application command interaction to a CommandInvocation. Missing
// user or target message data is left absent; the pins use case treats that as a
// contract violation.
func mapInteraction(i *discordgo.InteractionCreate, channelName string) models.GatewayEvent {
	if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return models.OtherEvent{Type: "InteractionCreate"}
	}

	data, ok := i.Data.(discordgo.ApplicationCommandInteractionData)
	if !ok {
		return models.OtherEvent{Type: "InteractionCreate"}
	}

	invocation := models.CommandInvocation{
		InteractionID: i.ID,
		ApplicationID: i.AppID,
		Token:         i.Token,
		CommandName:   data.Name,
		GuildID:       i.GuildID,
		ChannelID:     i.ChannelID,
		ChannelName:   channelName,
	}

	if user := interactionUser(i.Interaction); user != nil {
		invocation.User = mo.Some(models.InvokingUser{
			ID:            user.ID,
			Username:      user.Username,
			Discriminator: user.Discriminator,
		})
	}

	if message := resolvedTarget(data); message != nil {
		invocation.Target = mo.Some(models.MessageRef{
			MessageID: message.ID,
			ChannelID: i.ChannelID,
			GuildID:   i.GuildID,
		})
	}

	return models.InteractionEvent{Invocation: invocation}
}

// interactionUser returns the member's user in guilds and the plain user in DMs
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// resolvedTarget picks the message the context-menu command targets, falling back to the
// first resolved message (by id) when no target id is set.
func resolvedTarget(data discordgo.ApplicationCommandInteractionData) *discordgo.Message {
	if data.Resolved == nil || len(data.Resolved.Messages) == 0 {
		return nil
	}

	if message, ok := data.Resolved.Messages[data.TargetID]; ok && message != nil {
		return message
	}

	ids := make([]string, 0, len(data.Resolved.Messages))
	for id := range data.Resolved.Messages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if message := data.Resolved.Messages[id]; message != nil {
			return message
		}
	}
	return nil
}
