package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"

	"pinbot/clients"
	"pinbot/core"
	"pinbot/core/log"
	"pinbot/models"
	"pinbot/services/identity"
	"pinbot/usecases"
	"pinbot/usecases/pins"
	"pinbot/utils"
)

type GatewayEventsHandler struct {
	gatewayClient   clients.GatewayClient
	discordClient   clients.DiscordClient
	pinsUseCase     usecases.PinsUseCaseInterface
	identityService *identity.IdentityService
	cleanupWorkers  int
}

func NewGatewayEventsHandler(
	gatewayClient clients.GatewayClient,
	discordClient clients.DiscordClient,
	pinsUseCase usecases.PinsUseCaseInterface,
	identityService *identity.IdentityService,
	cleanupWorkers int,
) *GatewayEventsHandler {
	utils.AssertInvariant(cleanupWorkers >= 1, "cleanup workers must be at least 1")

	return &GatewayEventsHandler{
		gatewayClient:   gatewayClient,
		discordClient:   discordClient,
		pinsUseCase:     pinsUseCase,
		identityService: identityService,
		cleanupWorkers:  cleanupWorkers,
	}
}

// Run consumes gateway events in arrival order until the stream ends, ctx is cancelled or
// a fatal transport error arrives. Every command invocation gets its own goroutine so its
// deferral is never queued behind another invocation's REST calls; pin notice cleanup
// shares a bounded worker pool. Both are drained before Run returns.
func (h *GatewayEventsHandler) Run(ctx context.Context) error {
	var invocations sync.WaitGroup
	wp := workerpool.New(h.cleanupWorkers)
	defer func() {
		invocations.Wait()
		wp.StopWait()
	}()

	// In-flight invocations still owe the user a follow-up after a shutdown signal
	workCtx := context.WithoutCancel(ctx)

	log.Info("🤖 Dispatch loop started", "cleanup_workers", h.cleanupWorkers)

	events := h.gatewayClient.Events()
	for {
		select {
		case <-ctx.Done():
			log.Info("🛑 Dispatch loop stopped", "reason", ctx.Err())
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				log.Info("🔌 Gateway event stream closed, dispatch loop exiting")
				return nil
			}
			if err := h.handleEvent(workCtx, &invocations, wp, event); err != nil {
				return err
			}
		}
	}
}

func (h *GatewayEventsHandler) handleEvent(
	ctx context.Context,
	invocations *sync.WaitGroup,
	wp *workerpool.WorkerPool,
	event models.GatewayEvent,
) error {
	switch e := event.(type) {
	case models.ReadyEvent:
		log.Info("✅ Gateway session ready", "self_id", e.SelfUserID, "session_id", e.SessionID)
		h.identityService.SetSelfID(e.SelfUserID)
	case models.InteractionEvent:
		h.handleInteraction(ctx, invocations, e.Invocation)
	case models.MessageCreatedEvent:
		h.handleMessageCreated(ctx, wp, e)
	case models.TransportErrorEvent:
		if e.Fatal {
			log.Error("💀 Fatal gateway error, shutting down", "error", e.Err)
			return fmt.Errorf("%w: %v", core.ErrFatalTransport, e.Err)
		}
		log.Warn("⚠️ Gateway error, waiting for reconnect", "error", e.Err)
	case models.OtherEvent:
		// Nothing to do
	default:
		log.Debug("🔍 Ignoring unexpected gateway event", "type", fmt.Sprintf("%T", event))
	}
	return nil
}

func (h *GatewayEventsHandler) handleInteraction(ctx context.Context, invocations *sync.WaitGroup, inv models.CommandInvocation) {
	if _, ok := pins.ResolveCommand(inv.CommandName); !ok {
		log.Debug("🔍 Ignoring interaction for unhandled command",
			"command", inv.CommandName, "interaction_id", inv.InteractionID)
		return
	}

	traceID := core.NewID("inv")
	log.Info("📨 Command invocation received",
		"trace_id", traceID,
		"command", inv.CommandName,
		"interaction_id", inv.InteractionID,
		"guild_id", inv.GuildID,
		"channel_id", inv.ChannelID)

	invocations.Add(1)
	go func() {
		defer invocations.Done()
		if err := h.pinsUseCase.HandleCommand(ctx, inv); err != nil {
			log.Error("❌ Failed to handle command invocation",
				"trace_id", traceID,
				"command", inv.CommandName,
				"interaction_id", inv.InteractionID,
				"protocol_violation", core.IsProtocolViolation(err),
				"error", err)
			return
		}
		log.Debug("✅ Command invocation handled", "trace_id", traceID)
	}()
}

// handleMessageCreated removes the system notice Discord posts when the bot itself pins a
// message, so the follow-up is the only trace of the command in the channel.
func (h *GatewayEventsHandler) handleMessageCreated(ctx context.Context, wp *workerpool.WorkerPool, msg models.MessageCreatedEvent) {
	if !msg.Kind.IsPinNotice() || !h.identityService.IsSelf(msg.AuthorID) {
		return
	}

	wp.Submit(func() {
		if err := h.discordClient.DeleteMessage(ctx, msg.ChannelID, msg.MessageID); err != nil {
			log.Warn("⚠️ Failed to delete own pin notice",
				"channel_id", msg.ChannelID,
				"message_id", msg.MessageID,
				"reason", clients.FailureReason(err),
				"error", err)
			return
		}
		log.Debug("🧹 Deleted own pin notice", "channel_id", msg.ChannelID, "message_id", msg.MessageID)
	})
}
