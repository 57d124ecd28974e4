package relay

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"relaybot/internal/platform"
	"relaybot/internal/store"
	logx "relaybot/pkg/logx"
)

// Gateway is the slice of the platform gateway the relay needs.
type Gateway interface {
	IdentityGateway
	ResolveChannel(ctx context.Context, ref platform.ChannelRef) (bool, error)
	SendAs(ctx context.Context, id platform.Identity, as platform.Profile, out platform.Outgoing) error
}

// Registrations enumerates a routing table's tenant registrations.
type Registrations interface {
	Registrations(ctx context.Context, table string) (map[string]store.Registration, error)
}

// Message is one logical message to fan out, already reduced to content and
// sender identity.
type Message struct {
	Text         string
	Attachments  []string
	Embed        *platform.Embed
	SenderName   string
	SenderAvatar string
}

// Options select the fan-out policy of a single Relay call.
type Options struct {
	// IncludeOrigin delivers to the origin tenant's own registration too.
	// The chat relay excludes the origin (no self-echo); recruitment fan-out
	// includes it.
	IncludeOrigin bool
}

// Destination records one attempted delivery.
type Destination struct {
	TenantID  string
	ChannelID string
	Err       error
}

// DeliveryReport summarizes one fan-out. It exists for observability and
// tests; partial failure is normal and never an overall error.
type DeliveryReport struct {
	Attempted int
	Succeeded int
	Failures  []Destination
}

type Config struct {
	// RatePerSec paces identity sends across all destinations. <=0 means 10.
	RatePerSec int
	// IdentityNames maps routing table name to the fixed display name used
	// for that table's relay identities.
	IdentityNames map[string]string
}

// Service fans one message out to every destination channel registered in a
// routing table. Delivery attempts are independent: a failure on one
// destination never prevents attempts on the others.
type Service struct {
	gw      Gateway
	regs    Registrations
	log     logx.Logger
	limiter *rate.Limiter

	idMu       sync.Mutex
	identities map[string]*IdentityCache // keyed by routing table name
}

func New(cfg Config, gw Gateway, regs Registrations, log logx.Logger) *Service {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	ids := map[string]*IdentityCache{}
	for table, name := range cfg.IdentityNames {
		ids[table] = NewIdentityCache(gw, name)
	}
	return &Service{
		gw:         gw,
		regs:       regs,
		log:        log,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		identities: ids,
	}
}

// Relay sanitizes msg once and delivers it to every registration of table,
// honoring opts. The returned error only reports assembly failures (e.g. the
// registration enumeration failed); per-destination failures are counted in
// the report and logged.
func (s *Service) Relay(ctx context.Context, table, originTenantID string, msg Message, opts Options) (DeliveryReport, error) {
	var report DeliveryReport

	regs, err := s.regs.Registrations(ctx, table)
	if err != nil {
		return report, fmt.Errorf("relay: list %s registrations: %w", table, err)
	}

	msg.Text = Sanitize(msg.Text)

	out := platform.Outgoing{
		Text:        msg.Text,
		Attachments: msg.Attachments,
		Embed:       msg.Embed,
	}
	as := platform.Profile{DisplayName: msg.SenderName, AvatarRef: msg.SenderAvatar}

	for tenant, reg := range regs {
		if !opts.IncludeOrigin && tenant == originTenantID {
			continue
		}
		dest := platform.ChannelRef{TenantID: tenant, ChannelID: reg.ChannelID}

		ok, err := s.gw.ResolveChannel(ctx, dest)
		if err != nil || !ok {
			// Tenant left or channel deleted: skip silently.
			s.log.Debug("relay destination unresolved",
				logx.String("table", table), logx.String("tenant", tenant), logx.Err(err))
			continue
		}

		report.Attempted++
		if err := s.deliver(ctx, table, dest, as, out); err != nil {
			report.Failures = append(report.Failures, Destination{TenantID: tenant, ChannelID: reg.ChannelID, Err: err})
			s.log.Warn("relay delivery failed",
				logx.String("table", table), logx.String("tenant", tenant), logx.Err(err))
			continue
		}
		report.Succeeded++
	}

	s.log.Debug("relay fan-out done",
		logx.String("table", table),
		logx.Int("attempted", report.Attempted),
		logx.Int("succeeded", report.Succeeded))
	return report, nil
}

func (s *Service) deliver(ctx context.Context, table string, dest platform.ChannelRef, as platform.Profile, out platform.Outgoing) error {
	if s.limiter != nil {
		_ = s.limiter.Wait(ctx)
	}

	s.idMu.Lock()
	cache := s.identities[table]
	if cache == nil {
		// Table without a configured identity name: lazily register a default.
		cache = NewIdentityCache(s.gw, "relay")
		s.identities[table] = cache
	}
	s.idMu.Unlock()

	id, err := cache.Ensure(ctx, dest, as.AvatarRef)
	if err != nil {
		return fmt.Errorf("ensure identity: %w", err)
	}
	return s.gw.SendAs(ctx, id, as, out)
}
