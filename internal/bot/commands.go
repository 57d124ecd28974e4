package bot

import (
	"context"
	"regexp"
	"strings"

	"relaybot/internal/platform"
	"relaybot/internal/store"
	logx "relaybot/pkg/logx"
)

// feedSourcePattern extracts the source ID from a pasted channel URL.
var feedSourcePattern = regexp.MustCompile(`(?:channel/|c/|user/)([\w-]+)`)

// Authorizer decides whether an actor may run an administrative command.
// The permission model (owner roles, moderator roles, allow-lists) lives
// with the platform, not here.
type Authorizer interface {
	Allow(ctx context.Context, it *platform.Interaction, command string) (bool, error)
}

// CommandGateway is the interaction surface the command layer needs.
type CommandGateway interface {
	Ack(ctx context.Context, it *platform.Interaction, text string, ephemeral bool) (platform.AckRef, error)
	PresentButton(ctx context.Context, to platform.ChannelRef, text, label, componentID string) (string, error)
	SendDM(ctx context.Context, userID, text string) error
	ListTenants(ctx context.Context) ([]platform.TenantInfo, error)
}

// Settings is the slice of the settings store the commands mutate.
type Settings interface {
	SetRegistration(ctx context.Context, table, tenantID string, reg store.Registration) error
	DeleteRegistration(ctx context.Context, table, tenantID string) error
	SetFeedSubscription(ctx context.Context, tenantID string, sub store.FeedSubscription) error
	DeleteFeedSubscription(ctx context.Context, tenantID string) error
}

// PanelPoster places a standing entry button in a channel.
type PanelPoster interface {
	PostPanel(ctx context.Context, to platform.ChannelRef) error
}

// Commands implements the administrative slash commands.
type Commands struct {
	gw       CommandGateway
	settings Settings
	auth     Authorizer
	report   PanelPoster
	log      logx.Logger

	recruitOpenComponent string
}

func NewCommands(gw CommandGateway, settings Settings, auth Authorizer, report PanelPoster, recruitOpenComponent string, log logx.Logger) *Commands {
	return &Commands{
		gw:       gw,
		settings: settings,
		auth:     auth,
		report:   report,
		log:      log,

		recruitOpenComponent: recruitOpenComponent,
	}
}

// Handle runs one slash command. Every path acknowledges the interaction.
func (c *Commands) Handle(ctx context.Context, it *platform.Interaction) {
	allowed, err := c.auth.Allow(ctx, it, it.Command)
	if err != nil {
		c.log.Warn("authorization check failed",
			logx.String("command", it.Command), logx.String("actor", it.ActorID), logx.Err(err))
		c.ack(ctx, it, "Something went wrong. Please try again later.")
		return
	}
	if !allowed {
		c.ack(ctx, it, "You do not have permission to use this command.")
		return
	}

	here := platform.ChannelRef{TenantID: it.TenantID, ChannelID: it.ChannelID}

	switch it.Command {
	case "setglobal":
		c.register(ctx, it, store.TableChatRelay, "This channel now carries the shared global chat.")
	case "unsetglobal":
		c.unregister(ctx, it, store.TableChatRelay, "This channel no longer carries the shared global chat.")
	case "setrecruitnormal":
		if !c.register(ctx, it, store.TableRecruitNormal, "Normal recruitment posts will be delivered here.") {
			return
		}
		c.postRecruitPanel(ctx, here)
	case "setrecruitraid":
		if !c.register(ctx, it, store.TableRecruitRaid, "Raid recruitment posts will be delivered here.") {
			return
		}
		c.postRecruitPanel(ctx, here)
	case "setreportchannel":
		if err := c.report.PostPanel(ctx, here); err != nil {
			c.log.Warn("report panel failed", logx.String("tenant", it.TenantID), logx.Err(err))
			c.ack(ctx, it, "Something went wrong. Please try again later.")
			return
		}
		c.register(ctx, it, store.NamespaceReport, "Reports can now be filed from this channel.")
	case "setwordchain":
		c.register(ctx, it, store.NamespaceWordchain, "Word-chain rules are now enforced in this channel.")
	case "unsetwordchain":
		c.unregister(ctx, it, store.NamespaceWordchain, "Word-chain rules are no longer enforced here.")
	case "watchfeed":
		c.watchFeed(ctx, it)
	case "unwatchfeed":
		c.unwatchFeed(ctx, it)
	case "dm":
		c.directMessage(ctx, it)
	case "listservers":
		c.listServers(ctx, it)
	default:
		c.ack(ctx, it, "Unknown command.")
	}
}

// register stores the current channel as the tenant's registration in table.
// Returns false when the write failed (already acknowledged).
func (c *Commands) register(ctx context.Context, it *platform.Interaction, table, okText string) bool {
	reg := store.Registration{ChannelID: it.ChannelID}
	if err := c.settings.SetRegistration(ctx, table, it.TenantID, reg); err != nil {
		c.log.Error("registration write failed",
			logx.String("table", table), logx.String("tenant", it.TenantID), logx.Err(err))
		c.ack(ctx, it, "Something went wrong. Please try again later.")
		return false
	}
	c.log.Info("registration set",
		logx.String("table", table), logx.String("tenant", it.TenantID), logx.String("channel", it.ChannelID))
	c.ack(ctx, it, okText)
	return true
}

func (c *Commands) unregister(ctx context.Context, it *platform.Interaction, table, okText string) {
	if err := c.settings.DeleteRegistration(ctx, table, it.TenantID); err != nil {
		c.log.Error("registration delete failed",
			logx.String("table", table), logx.String("tenant", it.TenantID), logx.Err(err))
		c.ack(ctx, it, "Something went wrong. Please try again later.")
		return
	}
	c.ack(ctx, it, okText)
}

func (c *Commands) postRecruitPanel(ctx context.Context, to platform.ChannelRef) {
	if c.recruitOpenComponent == "" {
		return
	}
	if _, err := c.gw.PresentButton(ctx, to, "Open a recruitment request here", "Recruit", c.recruitOpenComponent); err != nil {
		c.log.Warn("recruit panel failed", logx.String("tenant", to.TenantID), logx.Err(err))
	}
}

func (c *Commands) watchFeed(ctx context.Context, it *platform.Interaction) {
	m := feedSourcePattern.FindStringSubmatch(it.Args["url"])
	if m == nil {
		c.ack(ctx, it, "That does not look like a channel URL.")
		return
	}
	sub := store.FeedSubscription{SourceID: m[1], ChannelID: it.ChannelID}
	if err := c.settings.SetFeedSubscription(ctx, it.TenantID, sub); err != nil {
		c.log.Error("feed subscription write failed", logx.String("tenant", it.TenantID), logx.Err(err))
		c.ack(ctx, it, "Something went wrong. Please try again later.")
		return
	}
	c.ack(ctx, it, "New uploads will be announced in this channel.")
}

func (c *Commands) unwatchFeed(ctx context.Context, it *platform.Interaction) {
	if err := c.settings.DeleteFeedSubscription(ctx, it.TenantID); err != nil {
		c.log.Error("feed subscription delete failed", logx.String("tenant", it.TenantID), logx.Err(err))
		c.ack(ctx, it, "Something went wrong. Please try again later.")
		return
	}
	c.ack(ctx, it, "Upload announcements are off.")
}

func (c *Commands) directMessage(ctx context.Context, it *platform.Interaction) {
	user := it.Args["user"]
	text := it.Args["message"]
	if user == "" || text == "" {
		c.ack(ctx, it, "Both a user and a message are required.")
		return
	}
	if err := c.gw.SendDM(ctx, user, text); err != nil {
		c.log.Warn("dm failed", logx.String("user", user), logx.Err(err))
		c.ack(ctx, it, "The message could not be delivered.")
		return
	}
	c.ack(ctx, it, "Message sent.")
}

func (c *Commands) listServers(ctx context.Context, it *platform.Interaction) {
	tenants, err := c.gw.ListTenants(ctx)
	if err != nil {
		c.log.Warn("tenant list failed", logx.Err(err))
		c.ack(ctx, it, "Something went wrong. Please try again later.")
		return
	}
	names := make([]string, 0, len(tenants))
	for _, t := range tenants {
		names = append(names, t.Name)
	}
	c.ack(ctx, it, "Connected communities:\n"+strings.Join(names, "\n"))
}

func (c *Commands) ack(ctx context.Context, it *platform.Interaction, text string) {
	if _, err := c.gw.Ack(ctx, it, text, true); err != nil {
		c.log.Debug("command ack failed", logx.String("command", it.Command), logx.Err(err))
	}
}
