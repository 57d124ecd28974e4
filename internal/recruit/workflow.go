package recruit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"relaybot/internal/platform"
	"relaybot/internal/relay"
	"relaybot/internal/store"
	logx "relaybot/pkg/logx"
)

// Component IDs route interactive events back to the workflow. The part
// after ':' is the session token.
const (
	ComponentOpen     = "recruit.open"
	componentCategory = "recruit.category"
	componentForm     = "recruit.form"
)

const (
	codeLength      = 8
	DefaultCooldown = 5 * time.Minute
)

// Gateway is the interaction surface the workflow needs.
type Gateway interface {
	Ack(ctx context.Context, it *platform.Interaction, text string, ephemeral bool) (platform.AckRef, error)
	UpdateAck(ctx context.Context, ref platform.AckRef, text string) error
	PresentSelect(ctx context.Context, it *platform.Interaction, prompt, componentID string, opts []platform.SelectOption) error
	PresentModal(ctx context.Context, it *platform.Interaction, m platform.Modal) error
}

// Relayer hands the finished submission to the broadcast relay.
type Relayer interface {
	Relay(ctx context.Context, table, originTenantID string, msg relay.Message, opts relay.Options) (relay.DeliveryReport, error)
}

// Workflow drives the recruitment submission sequence:
// entry control -> category select -> detail form -> validate -> cooldown ->
// fan-out to every tenant registered for the category's routing table.
type Workflow struct {
	gw       Gateway
	relayer  Relayer
	sessions *SessionStore
	cooldown *Cooldown
	window   time.Duration
	log      logx.Logger

	now func() time.Time
}

func New(gw Gateway, relayer Relayer, window time.Duration, log logx.Logger) *Workflow {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Workflow{
		gw:       gw,
		relayer:  relayer,
		sessions: NewSessionStore(0),
		cooldown: NewCooldown(),
		window:   window,
		log:      log,
		now:      time.Now,
	}
}

// Handles reports whether componentID belongs to this workflow.
func Handles(componentID string) bool {
	return componentID == ComponentOpen ||
		strings.HasPrefix(componentID, componentCategory+":") ||
		strings.HasPrefix(componentID, componentForm+":")
}

func (w *Workflow) Handles(componentID string) bool { return Handles(componentID) }

// HandleInteraction dispatches one interactive event to the right step.
func (w *Workflow) HandleInteraction(ctx context.Context, it *platform.Interaction) {
	prefix, token := splitComponent(it.ComponentID)
	switch prefix {
	case ComponentOpen:
		w.openCategorySelect(ctx, it)
	case componentCategory:
		w.categoryChosen(ctx, it, token)
	case componentForm:
		w.formSubmitted(ctx, it, token)
	}
}

// openCategorySelect starts a fresh instance for this actor and presents the
// category menu ("normal" plus levels 1-15).
func (w *Workflow) openCategorySelect(ctx context.Context, it *platform.Interaction) {
	token := w.sessions.Put(Session{
		ActorID:   it.ActorID,
		ActorName: it.ActorName,
		TenantID:  it.TenantID,
		ChannelID: it.ChannelID,
		State:     StateCategoryPending,
	})

	opts := make([]platform.SelectOption, 0, 16)
	opts = append(opts, platform.SelectOption{Label: "Normal", Value: "normal"})
	for lv := 1; lv <= 15; lv++ {
		s := strconv.Itoa(lv)
		opts = append(opts, platform.SelectOption{Label: "Level " + s, Value: s})
	}

	if err := w.gw.PresentSelect(ctx, it, "Pick a category for your request", componentCategory+":"+token, opts); err != nil {
		w.log.Warn("category select failed", logx.String("actor", it.ActorID), logx.Err(err))
		w.sessions.Delete(token)
	}
}

func (w *Workflow) categoryChosen(ctx context.Context, it *platform.Interaction, token string) {
	sess, ok := w.sessions.Get(token)
	if !ok || sess.State != StateCategoryPending || sess.ActorID != it.ActorID {
		w.expired(ctx, it)
		return
	}

	sess.Category = it.Values["category"]
	if sess.Category == "" {
		sess.Category = "normal"
	}
	sess.State = StateFormPending
	w.sessions.Update(token, sess)

	m := platform.Modal{
		ComponentID: componentForm + ":" + token,
		Title:       "Recruitment details",
		Fields: []platform.ModalField{
			{ID: "code", Label: "Invite code (8 characters)", Required: true, Placeholder: "ABCD1234"},
			{ID: "comment", Label: "Comment (optional)", Multiline: true},
		},
	}
	if err := w.gw.PresentModal(ctx, it, m); err != nil {
		w.log.Warn("detail form failed", logx.String("actor", it.ActorID), logx.Err(err))
		w.sessions.Delete(token)
	}
}

// formSubmitted is the hot path. The platform's response token is only valid
// for a few seconds, so the submission is acknowledged before any other work;
// every later step edits that same acknowledgement.
func (w *Workflow) formSubmitted(ctx context.Context, it *platform.Interaction, token string) {
	ack, err := w.gw.Ack(ctx, it, "Processing your request...", true)
	if err != nil {
		// Ack window missed: the platform reports an expired interaction to
		// the actor; nothing more we can do for this instance.
		w.log.Warn("submission ack failed", logx.String("actor", it.ActorID), logx.Err(err))
		w.sessions.Delete(token)
		return
	}

	sess, ok := w.sessions.Get(token)
	if !ok || sess.State != StateFormPending || sess.ActorID != it.ActorID {
		w.update(ctx, ack, "This request has expired. Please start again.")
		return
	}

	sess.State = StateValidating
	sess.Code = strings.TrimSpace(it.Values["code"])
	sess.Comment = strings.TrimSpace(it.Values["comment"])

	if utf8.RuneCountInString(sess.Code) != codeLength {
		sess.State = StateRejected
		w.sessions.Delete(token)
		w.update(ctx, ack, fmt.Sprintf("The invite code must be exactly %d characters.", codeLength))
		return
	}

	// Stamp the gate before the first awaited I/O of this submission so two
	// racing submissions cannot both pass.
	sess.State = StateCooldownCheck
	allowed, remaining := w.cooldown.TryAcquire(sess.ActorID, w.now(), w.window)
	if !allowed {
		sess.State = StateRejected
		w.sessions.Delete(token)
		w.update(ctx, ack, "You are on cooldown. Try again in "+formatRemaining(remaining)+".")
		return
	}

	sess.State = StateFanningOut
	w.sessions.Update(token, sess)

	msg := relay.Message{
		Text:         sess.Code,
		SenderName:   sess.ActorName,
		SenderAvatar: "",
	}
	if sess.Comment != "" {
		msg.Embed = &platform.Embed{
			Author:      sess.ActorName,
			Description: sess.Comment,
			Color:       0x00aa00,
		}
	}

	table := store.TableRecruitRaid
	if sess.Category == "normal" {
		table = store.TableRecruitNormal
	}

	// Every registered tenant receives the request, the origin included: the
	// origin community wants its own open request echoed too.
	report, err := w.relayer.Relay(ctx, table, sess.TenantID, msg, relay.Options{IncludeOrigin: true})
	w.sessions.Delete(token)
	if err != nil {
		sess.State = StateFailed
		w.log.Error("recruitment fan-out assembly failed",
			logx.String("actor", sess.ActorID), logx.String("table", table), logx.Err(err))
		w.update(ctx, ack, "Something went wrong sending your request. Please try again later.")
		return
	}

	sess.State = StateCompleted
	w.log.Info("recruitment request sent",
		logx.String("actor", sess.ActorID),
		logx.String("table", table),
		logx.Int("attempted", report.Attempted),
		logx.Int("succeeded", report.Succeeded))
	w.update(ctx, ack, "Your request was sent to all partner communities.")
}

func (w *Workflow) expired(ctx context.Context, it *platform.Interaction) {
	if _, err := w.gw.Ack(ctx, it, "This request has expired. Please start again.", true); err != nil {
		w.log.Debug("expiry notice failed", logx.Err(err))
	}
}

func (w *Workflow) update(ctx context.Context, ref platform.AckRef, text string) {
	if err := w.gw.UpdateAck(ctx, ref, text); err != nil {
		w.log.Debug("ack update failed", logx.Err(err))
	}
}

func splitComponent(id string) (prefix, token string) {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// formatRemaining renders a remaining wait as whole minutes and seconds.
func formatRemaining(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	m := secs / 60
	s := secs % 60
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
