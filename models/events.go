package models

// GatewayEvent is one inbound event from the gateway connection, already mapped out of the
// SDK types. The set of variants is closed: ReadyEvent, InteractionEvent,
// MessageCreatedEvent, TransportErrorEvent and OtherEvent.
type GatewayEvent interface {
	gatewayEvent()
}

// ReadyEvent is received after every successful identify, including after a reconnect.
type ReadyEvent struct {
	SelfUserID string
	SessionID  string
}

// InteractionEvent carries an application command invocation.
type InteractionEvent struct {
	Invocation CommandInvocation
}

type MessageCreatedEvent struct {
	MessageID string
	ChannelID string
	GuildID   string
	AuthorID  string
	Kind      MessageKind
}

// TransportErrorEvent reports a gateway-level error. Fatal errors mean the connection
// can't be recovered by the transport and the bot must stop.
type TransportErrorEvent struct {
	Err   error
	Fatal bool
}

// OtherEvent is any gateway event the bot doesn't act on.
type OtherEvent struct {
	Type string
}

func (ReadyEvent) gatewayEvent()          {}
func (InteractionEvent) gatewayEvent()    {}
func (MessageCreatedEvent) gatewayEvent() {}
func (TransportErrorEvent) gatewayEvent() {}
func (OtherEvent) gatewayEvent()          {}

// MessageKind mirrors Discord's message type values.
type MessageKind int

const (
	MessageKindDefault              MessageKind = 0
	MessageKindChannelPinnedMessage MessageKind = 6
	MessageKindReply                MessageKind = 19
	MessageKindChatInputCommand     MessageKind = 20
	MessageKindContextMenuCommand   MessageKind = 23
)

// IsPinNotice reports whether the message is the automatic "pinned a message" system notice.
func (k MessageKind) IsPinNotice() bool {
	return k == MessageKindChannelPinnedMessage
}
