// Package report lets members report another user through a button and a
// form; the report is forwarded to the tenant owner by direct message.
package report

import (
	"context"
	"fmt"
	"strings"

	"relaybot/internal/platform"
	logx "relaybot/pkg/logx"
)

const (
	ComponentOpen = "report.open"
	componentForm = "report.form"
)

// Gateway is the interaction surface the report flow needs.
type Gateway interface {
	PresentButton(ctx context.Context, to platform.ChannelRef, text, label, componentID string) (string, error)
	PresentModal(ctx context.Context, it *platform.Interaction, m platform.Modal) error
	Ack(ctx context.Context, it *platform.Interaction, text string, ephemeral bool) (platform.AckRef, error)
	TenantOwner(ctx context.Context, tenantID string) (string, error)
	SendDM(ctx context.Context, userID, text string) error
}

// Flow handles the report entry button and form submissions.
type Flow struct {
	gw  Gateway
	log logx.Logger
}

func New(gw Gateway, log logx.Logger) *Flow {
	return &Flow{gw: gw, log: log}
}

// Handles reports whether componentID belongs to the report flow.
func Handles(componentID string) bool {
	return componentID == ComponentOpen || componentID == componentForm
}

func (f *Flow) Handles(componentID string) bool { return Handles(componentID) }

// PostPanel places the standing entry button in a channel.
func (f *Flow) PostPanel(ctx context.Context, to platform.ChannelRef) error {
	_, err := f.gw.PresentButton(ctx, to, "Report a user here", "Report", ComponentOpen)
	return err
}

// HandleInteraction dispatches one interactive event.
func (f *Flow) HandleInteraction(ctx context.Context, it *platform.Interaction) {
	switch it.ComponentID {
	case ComponentOpen:
		f.openForm(ctx, it)
	case componentForm:
		f.submitted(ctx, it)
	}
}

func (f *Flow) openForm(ctx context.Context, it *platform.Interaction) {
	m := platform.Modal{
		ComponentID: componentForm,
		Title:       "Report a user",
		Fields: []platform.ModalField{
			{ID: "subject", Label: "Who are you reporting?", Required: true},
			{ID: "reason", Label: "Reason", Multiline: true, Required: true},
		},
	}
	if err := f.gw.PresentModal(ctx, it, m); err != nil {
		f.log.Warn("report form failed", logx.String("actor", it.ActorID), logx.Err(err))
	}
}

func (f *Flow) submitted(ctx context.Context, it *platform.Interaction) {
	subject := strings.TrimSpace(it.Values["subject"])
	reason := strings.TrimSpace(it.Values["reason"])

	owner, err := f.gw.TenantOwner(ctx, it.TenantID)
	if err != nil {
		f.log.Error("tenant owner lookup failed", logx.String("tenant", it.TenantID), logx.Err(err))
		f.ack(ctx, it, "The report could not be delivered. Please contact a moderator directly.")
		return
	}

	body := fmt.Sprintf("A report was filed.\nReporter: %s\nSubject: %s\nReason: %s",
		it.ActorName, subject, reason)
	if err := f.gw.SendDM(ctx, owner, body); err != nil {
		f.log.Error("report delivery failed",
			logx.String("tenant", it.TenantID), logx.String("owner", owner), logx.Err(err))
		f.ack(ctx, it, "The report could not be delivered. Please contact a moderator directly.")
		return
	}

	f.log.Info("report delivered", logx.String("tenant", it.TenantID), logx.String("actor", it.ActorID))
	f.ack(ctx, it, "Your report was sent.")
}

func (f *Flow) ack(ctx context.Context, it *platform.Interaction, text string) {
	if _, err := f.gw.Ack(ctx, it, text, true); err != nil {
		f.log.Debug("report ack failed", logx.Err(err))
	}
}
