package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"relaybot/internal/platform"
	logx "relaybot/pkg/logx"
)

type fakeGW struct {
	buttons []string // component IDs
	modals  []platform.Modal
	acks    []string
	dms     []string
	dmTo    []string

	owner     string
	ownerErr  error
	dmErr     error
}

func (g *fakeGW) PresentButton(_ context.Context, _ platform.ChannelRef, _, _, componentID string) (string, error) {
	g.buttons = append(g.buttons, componentID)
	return "panel-1", nil
}

func (g *fakeGW) PresentModal(_ context.Context, _ *platform.Interaction, m platform.Modal) error {
	g.modals = append(g.modals, m)
	return nil
}

func (g *fakeGW) Ack(_ context.Context, _ *platform.Interaction, text string, _ bool) (platform.AckRef, error) {
	g.acks = append(g.acks, text)
	return platform.AckRef{Token: "ack"}, nil
}

func (g *fakeGW) TenantOwner(_ context.Context, _ string) (string, error) {
	return g.owner, g.ownerErr
}

func (g *fakeGW) SendDM(_ context.Context, userID, text string) error {
	if g.dmErr != nil {
		return g.dmErr
	}
	g.dmTo = append(g.dmTo, userID)
	g.dms = append(g.dms, text)
	return nil
}

func submit(f *Flow, subject, reason string) {
	f.HandleInteraction(context.Background(), &platform.Interaction{
		Kind: platform.InteractionModal, ComponentID: componentForm,
		TenantID: "tenant-a", ActorID: "user-1", ActorName: "alice",
		Values: map[string]string{"subject": subject, "reason": reason},
	})
}

func TestPostPanel(t *testing.T) {
	gw := &fakeGW{}
	f := New(gw, logx.Nop())

	if err := f.PostPanel(context.Background(), platform.ChannelRef{TenantID: "tenant-a", ChannelID: "chan"}); err != nil {
		t.Fatalf("PostPanel: %v", err)
	}
	if len(gw.buttons) != 1 || gw.buttons[0] != ComponentOpen {
		t.Fatalf("buttons = %v", gw.buttons)
	}
}

func TestButtonOpensForm(t *testing.T) {
	gw := &fakeGW{}
	f := New(gw, logx.Nop())

	f.HandleInteraction(context.Background(), &platform.Interaction{
		Kind: platform.InteractionButton, ComponentID: ComponentOpen, ActorID: "user-1",
	})

	if len(gw.modals) != 1 {
		t.Fatal("form not presented")
	}
	if gw.modals[0].ComponentID != componentForm {
		t.Fatalf("modal component = %q", gw.modals[0].ComponentID)
	}
}

func TestSubmissionReachesTenantOwner(t *testing.T) {
	gw := &fakeGW{owner: "owner-9"}
	f := New(gw, logx.Nop())

	submit(f, "bob", "spamming invite links")

	if len(gw.dms) != 1 || gw.dmTo[0] != "owner-9" {
		t.Fatalf("dm to %v", gw.dmTo)
	}
	for _, part := range []string{"alice", "bob", "spamming invite links"} {
		if !strings.Contains(gw.dms[0], part) {
			t.Fatalf("report body %q missing %q", gw.dms[0], part)
		}
	}
	if len(gw.acks) != 1 || !strings.Contains(gw.acks[0], "sent") {
		t.Fatalf("acks = %v", gw.acks)
	}
}

func TestOwnerLookupFailure(t *testing.T) {
	gw := &fakeGW{ownerErr: errors.New("tenant unavailable")}
	f := New(gw, logx.Nop())

	submit(f, "bob", "reason")

	if len(gw.dms) != 0 {
		t.Fatal("report delivered without an owner")
	}
	if len(gw.acks) != 1 || !strings.Contains(gw.acks[0], "could not be delivered") {
		t.Fatalf("acks = %v", gw.acks)
	}
}

func TestDeliveryFailureStillAcks(t *testing.T) {
	gw := &fakeGW{owner: "owner-9", dmErr: errors.New("dms closed")}
	f := New(gw, logx.Nop())

	submit(f, "bob", "reason")

	if len(gw.acks) != 1 || !strings.Contains(gw.acks[0], "could not be delivered") {
		t.Fatalf("acks = %v", gw.acks)
	}
}

func TestHandles(t *testing.T) {
	if !Handles(ComponentOpen) || !Handles(componentForm) {
		t.Fatal("report components not recognized")
	}
	if Handles("recruit.open") {
		t.Fatal("foreign component claimed")
	}
}
