package feed

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"relaybot/internal/platform"
	"relaybot/internal/store"
	logx "relaybot/pkg/logx"
)

const DefaultInterval = time.Minute

// Source fetches the newest item of an external feed.
type Source interface {
	Latest(ctx context.Context, sourceID string) (*Item, error)
}

// Subscriptions is the slice of the settings store the watcher needs.
type Subscriptions interface {
	FeedSubscriptions(ctx context.Context) (map[string]store.FeedSubscription, error)
	SetFeedSubscription(ctx context.Context, tenantID string, sub store.FeedSubscription) error
}

// Gateway delivers feed announcements.
type Gateway interface {
	Send(ctx context.Context, ref platform.ChannelRef, out platform.Outgoing) (string, error)
}

// Watcher sweeps all feed subscriptions on a fixed period and announces new
// items to the subscribed channels.
type Watcher struct {
	source   Source
	subs     Subscriptions
	gw       Gateway
	interval time.Duration
	log      logx.Logger

	mu sync.Mutex
	c  *cron.Cron
}

func NewWatcher(source Source, subs Subscriptions, gw Gateway, interval time.Duration, log logx.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		source:   source,
		subs:     subs,
		gw:       gw,
		interval: interval,
		log:      log,
	}
}

// Start schedules the periodic sweep. Sweeps run until Stop is called; ctx
// bounds each individual sweep.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c != nil {
		return nil
	}

	c := cron.New()
	spec := "@every " + w.interval.String()
	if _, err := c.AddFunc(spec, func() {
		sweepCtx, cancel := context.WithTimeout(ctx, w.interval)
		defer cancel()
		w.CheckAll(sweepCtx)
	}); err != nil {
		return err
	}
	c.Start()
	w.c = c
	w.log.Info("feed watcher started", logx.Duration("interval", w.interval))
	return nil
}

// Stop halts the sweep schedule and waits for an in-flight sweep to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	c := w.c
	w.c = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	w.log.Info("feed watcher stopped")
}

// CheckAll runs one sweep over every subscription. A failing subscription is
// logged and skipped; the sweep continues with the rest.
func (w *Watcher) CheckAll(ctx context.Context) {
	subs, err := w.subs.FeedSubscriptions(ctx)
	if err != nil {
		w.log.Warn("feed subscription list failed", logx.Err(err))
		return
	}

	for tenantID, sub := range subs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := w.checkOne(ctx, tenantID, sub); err != nil {
			w.log.Warn("feed check failed",
				logx.String("tenant", tenantID),
				logx.String("source", sub.SourceID),
				logx.Err(err))
		}
	}
}

func (w *Watcher) checkOne(ctx context.Context, tenantID string, sub store.FeedSubscription) error {
	item, err := w.source.Latest(ctx, sub.SourceID)
	if err != nil {
		return err
	}
	if item == nil || item.ID == sub.LastSeenItemID {
		return nil
	}

	// Record the item as seen before announcing it. A delivery failure then
	// drops the announcement instead of repeating it every sweep.
	sub.LastSeenItemID = item.ID
	if err := w.subs.SetFeedSubscription(ctx, tenantID, sub); err != nil {
		return err
	}

	desc := item.Description
	if desc == "" {
		desc = "(no description)"
	}
	out := platform.Outgoing{
		Text: "New video published",
		Embed: &platform.Embed{
			Title:       item.Title,
			URL:         item.URL(),
			Author:      item.ChannelTitle,
			Description: desc,
			Thumbnail:   item.Thumbnail,
			Timestamp:   item.PublishedAt,
		},
	}
	ref := platform.ChannelRef{TenantID: tenantID, ChannelID: sub.ChannelID}
	if _, err := w.gw.Send(ctx, ref, out); err != nil {
		return err
	}

	w.log.Info("feed item announced",
		logx.String("tenant", tenantID),
		logx.String("source", sub.SourceID),
		logx.String("item", item.ID))
	return nil
}
