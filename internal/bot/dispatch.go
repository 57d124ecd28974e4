package bot

import (
	"context"

	"relaybot/internal/levelroute"
	"relaybot/internal/platform"
	"relaybot/internal/relay"
	"relaybot/internal/store"
	logx "relaybot/pkg/logx"
)

// Relayer is the broadcast fan-out the dispatcher feeds.
type Relayer interface {
	Relay(ctx context.Context, table, originTenantID string, msg relay.Message, opts relay.Options) (relay.DeliveryReport, error)
}

// Router triages recruitment posts into level buckets.
type Router interface {
	Route(ctx context.Context, msg *platform.Message) levelroute.Outcome
}

// Rules applies the local posting rules.
type Rules interface {
	Apply(ctx context.Context, msg *platform.Message)
}

// InteractionHandler consumes interactive events it claims via Handles.
type InteractionHandler interface {
	Handles(componentID string) bool
	HandleInteraction(ctx context.Context, it *platform.Interaction)
}

// Registrations resolves a tenant's chat-relay registration.
type Registrations interface {
	Registration(ctx context.Context, table, tenantID string) (store.Registration, bool, error)
}

// Dispatcher fans inbound gateway updates out to the routing engines.
// Updates are handled one at a time; the engines themselves decide whether
// an update concerns them.
type Dispatcher struct {
	relayer  Relayer
	router   Router
	rules    Rules
	handlers []InteractionHandler
	commands *Commands
	regs     Registrations
	log      logx.Logger

	// triageChannelName is the channel (matched by name, any tenant) whose
	// posts go through the level router.
	triageChannelName string
}

func NewDispatcher(relayer Relayer, router Router, rules Rules, commands *Commands, regs Registrations, triageChannelName string, log logx.Logger) *Dispatcher {
	return &Dispatcher{
		relayer:  relayer,
		router:   router,
		rules:    rules,
		commands: commands,
		regs:     regs,
		log:      log,

		triageChannelName: triageChannelName,
	}
}

// AddInteractionHandler registers an interactive-component consumer.
func (d *Dispatcher) AddInteractionHandler(h InteractionHandler) {
	d.handlers = append(d.handlers, h)
}

// Run consumes updates until the channel closes or ctx ends.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan platform.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			d.dispatch(ctx, u)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, u platform.Update) {
	switch u.Kind {
	case platform.UpdateMessage:
		if u.Message != nil {
			d.handleMessage(ctx, u.Message)
		}
	case platform.UpdateInteraction:
		if u.Interaction != nil {
			d.handleInteraction(ctx, u.Interaction)
		}
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *platform.Message) {
	if msg.AuthorIsBot {
		return
	}

	if reg, ok, err := d.regs.Registration(ctx, store.TableChatRelay, msg.TenantID); err != nil {
		d.log.Warn("chat-relay lookup failed", logx.String("tenant", msg.TenantID), logx.Err(err))
	} else if ok && reg.ChannelID == msg.ChannelID {
		out := relay.Message{
			Text:         msg.Text,
			Attachments:  msg.Attachments,
			SenderName:   msg.AuthorName,
			SenderAvatar: msg.AuthorAvatar,
		}
		if _, err := d.relayer.Relay(ctx, store.TableChatRelay, msg.TenantID, out, relay.Options{}); err != nil {
			d.log.Error("chat relay failed", logx.String("tenant", msg.TenantID), logx.Err(err))
		}
	}

	if d.triageChannelName != "" && msg.ChannelName == d.triageChannelName {
		d.router.Route(ctx, msg)
	}

	d.rules.Apply(ctx, msg)
}

func (d *Dispatcher) handleInteraction(ctx context.Context, it *platform.Interaction) {
	if it.Kind == platform.InteractionCommand {
		d.commands.Handle(ctx, it)
		return
	}
	for _, h := range d.handlers {
		if h.Handles(it.ComponentID) {
			h.HandleInteraction(ctx, it)
			return
		}
	}
	d.log.Debug("unclaimed interaction", logx.String("component", it.ComponentID))
}
