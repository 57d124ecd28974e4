package platform

import (
	"context"
	"time"
)

type UpdateKind string

const (
	UpdateMessage     UpdateKind = "message"
	UpdateInteraction UpdateKind = "interaction"
)

type Update struct {
	Kind        UpdateKind
	Message     *Message
	Interaction *Interaction
}

// Message is an inbound channel post, already reduced to the fields the
// routing engines need.
type Message struct {
	ID           string
	TenantID     string
	ChannelID    string
	ChannelName  string
	AuthorID     string
	AuthorName   string
	AuthorAvatar string
	AuthorIsBot  bool
	Text         string
	Attachments  []string // attachment URLs
}

type InteractionKind string

const (
	InteractionCommand InteractionKind = "command"
	InteractionButton  InteractionKind = "button"
	InteractionSelect  InteractionKind = "select"
	InteractionModal   InteractionKind = "modal"
)

// Interaction is one inbound interactive event (slash command, button press,
// select choice, or modal submission).
//
// Token is the platform's short-lived response token: the first
// acknowledgement must happen while it is still valid.
type Interaction struct {
	Token       string
	Kind        InteractionKind
	TenantID    string
	ChannelID   string
	ActorID     string
	ActorName   string
	Command     string
	Args        map[string]string
	ComponentID string
	Values      map[string]string
}

// ChannelRef addresses one channel inside one tenant.
type ChannelRef struct {
	TenantID  string
	ChannelID string
}

// Identity is a cached broadcast sender identity bound to one destination
// channel (the platform's webhook-style send-as mechanism).
type Identity struct {
	ID        string
	ChannelID string
	Name      string
	AvatarRef string
}

// Profile overrides the displayed sender of an identity send, so relayed
// messages appear attributed to the original author rather than the bot.
type Profile struct {
	DisplayName string
	AvatarRef   string
}

// Outgoing is one message to deliver.
type Outgoing struct {
	Text        string
	Attachments []string
	Embed       *Embed
}

type Embed struct {
	Title       string
	URL         string
	Author      string
	Description string
	Thumbnail   string
	Color       int
	Timestamp   time.Time
}

// AckRef identifies an interaction acknowledgement for later edits.
type AckRef struct {
	Token string
}

type SelectOption struct {
	Label string
	Value string
}

type ModalField struct {
	ID          string
	Label       string
	Multiline   bool
	Required    bool
	Placeholder string
}

type Modal struct {
	ComponentID string
	Title       string
	Fields      []ModalField
}

type TenantInfo struct {
	ID   string
	Name string
}

// Gateway is the messaging-platform adapter. The gateway connection itself
// is out of scope here; everything in this repo talks to it through this
// interface so tests can substitute a fake.
type Gateway interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	// Channels and plain sends.
	ResolveChannel(ctx context.Context, ref ChannelRef) (bool, error)
	FindChannelByName(ctx context.Context, tenantID, name string) (ChannelRef, bool, error)
	Send(ctx context.Context, to ChannelRef, out Outgoing) (string, error)
	SendTransient(ctx context.Context, to ChannelRef, text string, ttl time.Duration) error
	DeleteMessage(ctx context.Context, to ChannelRef, messageID string) error

	// Relay identities (webhook-style send-as).
	FindIdentity(ctx context.Context, to ChannelRef, name string) (Identity, bool, error)
	CreateIdentity(ctx context.Context, to ChannelRef, name, avatarRef string) (Identity, error)
	SendAs(ctx context.Context, id Identity, as Profile, out Outgoing) error

	// Users.
	TenantOwner(ctx context.Context, tenantID string) (string, error)
	SendDM(ctx context.Context, userID, text string) error
	ListTenants(ctx context.Context) ([]TenantInfo, error)

	// Interaction surface.
	PresentButton(ctx context.Context, to ChannelRef, text, label, componentID string) (string, error)
	Ack(ctx context.Context, it *Interaction, text string, ephemeral bool) (AckRef, error)
	UpdateAck(ctx context.Context, ref AckRef, text string) error
	PresentSelect(ctx context.Context, it *Interaction, prompt, componentID string, opts []SelectOption) error
	PresentModal(ctx context.Context, it *Interaction, m Modal) error
}
