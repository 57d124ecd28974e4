package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"relaybot/internal/platform"
	"relaybot/internal/store"
	logx "relaybot/pkg/logx"
)

type fakeCmdGW struct {
	acks    []string
	buttons []string // component IDs
	dms     []string
	dmTo    []string
	tenants []platform.TenantInfo
}

func (g *fakeCmdGW) Ack(_ context.Context, _ *platform.Interaction, text string, _ bool) (platform.AckRef, error) {
	g.acks = append(g.acks, text)
	return platform.AckRef{Token: "ack"}, nil
}

func (g *fakeCmdGW) PresentButton(_ context.Context, _ platform.ChannelRef, _, _, componentID string) (string, error) {
	g.buttons = append(g.buttons, componentID)
	return "panel-1", nil
}

func (g *fakeCmdGW) SendDM(_ context.Context, userID, text string) error {
	g.dmTo = append(g.dmTo, userID)
	g.dms = append(g.dms, text)
	return nil
}

func (g *fakeCmdGW) ListTenants(context.Context) ([]platform.TenantInfo, error) {
	return g.tenants, nil
}

type fakeSettings struct {
	regs    map[string]store.Registration // table+"/"+tenant
	feeds   map[string]store.FeedSubscription
	failSet bool
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{
		regs:  map[string]store.Registration{},
		feeds: map[string]store.FeedSubscription{},
	}
}

func (f *fakeSettings) SetRegistration(_ context.Context, table, tenantID string, reg store.Registration) error {
	if f.failSet {
		return errors.New("disk full")
	}
	f.regs[table+"/"+tenantID] = reg
	return nil
}

func (f *fakeSettings) DeleteRegistration(_ context.Context, table, tenantID string) error {
	delete(f.regs, table+"/"+tenantID)
	return nil
}

func (f *fakeSettings) SetFeedSubscription(_ context.Context, tenantID string, sub store.FeedSubscription) error {
	f.feeds[tenantID] = sub
	return nil
}

func (f *fakeSettings) DeleteFeedSubscription(_ context.Context, tenantID string) error {
	delete(f.feeds, tenantID)
	return nil
}

type allowAll struct{}

func (allowAll) Allow(context.Context, *platform.Interaction, string) (bool, error) {
	return true, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, *platform.Interaction, string) (bool, error) {
	return false, nil
}

type fakePanel struct {
	posted int
	err    error
}

func (p *fakePanel) PostPanel(context.Context, platform.ChannelRef) error {
	if p.err != nil {
		return p.err
	}
	p.posted++
	return nil
}

func cmdInteraction(command string, args map[string]string) *platform.Interaction {
	return &platform.Interaction{
		Kind: platform.InteractionCommand, Command: command, Args: args,
		TenantID: "tenant-a", ChannelID: "chan-1", ActorID: "user-1", ActorName: "alice",
	}
}

func newCommands(gw *fakeCmdGW, settings *fakeSettings, auth Authorizer, panel *fakePanel) *Commands {
	return NewCommands(gw, settings, auth, panel, "recruit.open", logx.Nop())
}

func TestSetGlobalRegistersCurrentChannel(t *testing.T) {
	gw := &fakeCmdGW{}
	settings := newFakeSettings()
	c := newCommands(gw, settings, allowAll{}, &fakePanel{})

	c.Handle(context.Background(), cmdInteraction("setglobal", nil))

	if got := settings.regs[store.TableChatRelay+"/tenant-a"]; got.ChannelID != "chan-1" {
		t.Fatalf("registration = %+v", got)
	}
	if len(gw.acks) != 1 {
		t.Fatalf("acks = %v", gw.acks)
	}
}

func TestUnsetGlobalRemovesRegistration(t *testing.T) {
	gw := &fakeCmdGW{}
	settings := newFakeSettings()
	settings.regs[store.TableChatRelay+"/tenant-a"] = store.Registration{ChannelID: "chan-1"}
	c := newCommands(gw, settings, allowAll{}, &fakePanel{})

	c.Handle(context.Background(), cmdInteraction("unsetglobal", nil))

	if _, ok := settings.regs[store.TableChatRelay+"/tenant-a"]; ok {
		t.Fatal("registration not removed")
	}
}

func TestPermissionDenied(t *testing.T) {
	gw := &fakeCmdGW{}
	settings := newFakeSettings()
	c := newCommands(gw, settings, denyAll{}, &fakePanel{})

	c.Handle(context.Background(), cmdInteraction("setglobal", nil))

	if len(settings.regs) != 0 {
		t.Fatal("denied command still wrote settings")
	}
	if len(gw.acks) != 1 || !strings.Contains(gw.acks[0], "permission") {
		t.Fatalf("acks = %v", gw.acks)
	}
}

func TestSetRecruitPostsEntryButton(t *testing.T) {
	gw := &fakeCmdGW{}
	settings := newFakeSettings()
	c := newCommands(gw, settings, allowAll{}, &fakePanel{})

	c.Handle(context.Background(), cmdInteraction("setrecruitraid", nil))

	if got := settings.regs[store.TableRecruitRaid+"/tenant-a"]; got.ChannelID != "chan-1" {
		t.Fatalf("registration = %+v", got)
	}
	if len(gw.buttons) != 1 || gw.buttons[0] != "recruit.open" {
		t.Fatalf("buttons = %v", gw.buttons)
	}
}

func TestSetReportChannelPostsPanel(t *testing.T) {
	gw := &fakeCmdGW{}
	settings := newFakeSettings()
	panel := &fakePanel{}
	c := newCommands(gw, settings, allowAll{}, panel)

	c.Handle(context.Background(), cmdInteraction("setreportchannel", nil))

	if panel.posted != 1 {
		t.Fatal("report panel not posted")
	}
	if got := settings.regs[store.NamespaceReport+"/tenant-a"]; got.ChannelID != "chan-1" {
		t.Fatalf("registration = %+v", got)
	}
}

func TestWatchFeedParsesSourceFromURL(t *testing.T) {
	for _, tc := range []struct {
		url  string
		want string
	}{
		{url: "https://example.com/channel/UCabc_123", want: "UCabc_123"},
		{url: "https://example.com/c/creator-name", want: "creator-name"},
		{url: "https://example.com/user/someone", want: "someone"},
	} {
		gw := &fakeCmdGW{}
		settings := newFakeSettings()
		c := newCommands(gw, settings, allowAll{}, &fakePanel{})

		c.Handle(context.Background(), cmdInteraction("watchfeed", map[string]string{"url": tc.url}))

		sub, ok := settings.feeds["tenant-a"]
		if !ok || sub.SourceID != tc.want {
			t.Fatalf("url %q: subscription = %+v", tc.url, sub)
		}
		if sub.ChannelID != "chan-1" {
			t.Fatalf("url %q: channel = %q", tc.url, sub.ChannelID)
		}
	}
}

func TestWatchFeedRejectsBadURL(t *testing.T) {
	gw := &fakeCmdGW{}
	settings := newFakeSettings()
	c := newCommands(gw, settings, allowAll{}, &fakePanel{})

	c.Handle(context.Background(), cmdInteraction("watchfeed", map[string]string{"url": "not a url"}))

	if len(settings.feeds) != 0 {
		t.Fatal("bad URL produced a subscription")
	}
	if len(gw.acks) != 1 || !strings.Contains(gw.acks[0], "channel URL") {
		t.Fatalf("acks = %v", gw.acks)
	}
}

func TestUnwatchFeed(t *testing.T) {
	gw := &fakeCmdGW{}
	settings := newFakeSettings()
	settings.feeds["tenant-a"] = store.FeedSubscription{SourceID: "src"}
	c := newCommands(gw, settings, allowAll{}, &fakePanel{})

	c.Handle(context.Background(), cmdInteraction("unwatchfeed", nil))

	if len(settings.feeds) != 0 {
		t.Fatal("subscription not removed")
	}
}

func TestDirectMessage(t *testing.T) {
	gw := &fakeCmdGW{}
	c := newCommands(gw, newFakeSettings(), allowAll{}, &fakePanel{})

	c.Handle(context.Background(), cmdInteraction("dm", map[string]string{"user": "user-9", "message": "hello"}))

	if len(gw.dms) != 1 || gw.dmTo[0] != "user-9" || gw.dms[0] != "hello" {
		t.Fatalf("dms = %v to %v", gw.dms, gw.dmTo)
	}
}

func TestListServers(t *testing.T) {
	gw := &fakeCmdGW{tenants: []platform.TenantInfo{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}}}
	c := newCommands(gw, newFakeSettings(), allowAll{}, &fakePanel{})

	c.Handle(context.Background(), cmdInteraction("listservers", nil))

	if len(gw.acks) != 1 || !strings.Contains(gw.acks[0], "Alpha") || !strings.Contains(gw.acks[0], "Beta") {
		t.Fatalf("acks = %v", gw.acks)
	}
}

func TestSettingsWriteFailure(t *testing.T) {
	gw := &fakeCmdGW{}
	settings := newFakeSettings()
	settings.failSet = true
	c := newCommands(gw, settings, allowAll{}, &fakePanel{})

	c.Handle(context.Background(), cmdInteraction("setglobal", nil))

	if len(gw.acks) != 1 || !strings.Contains(gw.acks[0], "went wrong") {
		t.Fatalf("acks = %v", gw.acks)
	}
}
