package store

import (
	"context"
	"encoding/json"

	logx "relaybot/pkg/logx"
)

// Routing-table and feature namespaces. Each namespace holds independent
// per-tenant settings; no multi-key updates are ever required.
const (
	TableChatRelay     = "chat_relay"
	TableRecruitNormal = "recruit_normal"
	TableRecruitRaid   = "recruit_raid"

	NamespaceFeed      = "feed"
	NamespaceReport    = "report"
	NamespaceWordchain = "wordchain"
)

// Registration is one tenant's opt-in to a routing table: the destination
// channel inside that tenant.
type Registration struct {
	ChannelID string `json:"channel_id"`
}

// FeedSubscription is one tenant's watch on an external feed source.
type FeedSubscription struct {
	SourceID       string `json:"source_id"`
	ChannelID      string `json:"channel_id"`
	LastSeenItemID string `json:"last_seen_item_id,omitempty"`
}

func (s *Store) SetRegistration(ctx context.Context, table, tenantID string, reg Registration) error {
	return s.Set(ctx, table, tenantID, reg)
}

func (s *Store) Registration(ctx context.Context, table, tenantID string) (Registration, bool, error) {
	var reg Registration
	ok, err := s.Get(ctx, table, tenantID, &reg)
	return reg, ok, err
}

func (s *Store) DeleteRegistration(ctx context.Context, table, tenantID string) error {
	return s.Delete(ctx, table, tenantID)
}

// Registrations returns every tenant's registration in a routing table.
// Rows that fail to decode are skipped (last-write-wins store, not a schema).
func (s *Store) Registrations(ctx context.Context, table string) (map[string]Registration, error) {
	raw, err := s.List(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Registration, len(raw))
	for tenant, b := range raw {
		var reg Registration
		if err := json.Unmarshal(b, &reg); err != nil {
			s.log.Warn("skipping malformed registration", logx.String("table", table), logx.String("tenant", tenant))
			continue
		}
		out[tenant] = reg
	}
	return out, nil
}

func (s *Store) SetFeedSubscription(ctx context.Context, tenantID string, sub FeedSubscription) error {
	return s.Set(ctx, NamespaceFeed, tenantID, sub)
}

func (s *Store) DeleteFeedSubscription(ctx context.Context, tenantID string) error {
	return s.Delete(ctx, NamespaceFeed, tenantID)
}

func (s *Store) FeedSubscriptions(ctx context.Context) (map[string]FeedSubscription, error) {
	raw, err := s.List(ctx, NamespaceFeed)
	if err != nil {
		return nil, err
	}
	out := make(map[string]FeedSubscription, len(raw))
	for tenant, b := range raw {
		var sub FeedSubscription
		if err := json.Unmarshal(b, &sub); err != nil {
			s.log.Warn("skipping malformed feed subscription", logx.String("tenant", tenant))
			continue
		}
		out[tenant] = sub
	}
	return out, nil
}
