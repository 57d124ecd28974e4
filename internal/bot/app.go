package bot

import (
	"context"
	"fmt"

	"relaybot/internal/config"
	"relaybot/internal/feed"
	"relaybot/internal/levelroute"
	"relaybot/internal/platform"
	"relaybot/internal/recruit"
	"relaybot/internal/relay"
	"relaybot/internal/report"
	"relaybot/internal/rules"
	"relaybot/internal/runtime/supervisor"
	"relaybot/internal/store"
	"relaybot/internal/web"
	logx "relaybot/pkg/logx"
)

// App assembles and runs every service: settings store, routing engines,
// feed watcher, config watcher and the keep-alive endpoint, all under one
// supervisor.
type App struct {
	cfgm *config.Manager
	cfg  *config.Config

	logSvc *logx.Service
	log    logx.Logger

	gw         platform.Gateway
	st         *store.Store
	dispatcher *Dispatcher
	watcher    *feed.Watcher
	web        *web.Server

	sup     *supervisor.Supervisor
	updates chan platform.Update
}

// NewApp loads configuration and wires the services together. The gateway
// and authorizer are collaborators chosen by the caller; pass auth nil to
// restrict administrative commands to tenant owners.
func NewApp(cfgPath string, gw platform.Gateway, auth Authorizer) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := config.ParseDurationOrDefault("store.busy_timeout", cfg.Store.BusyTimeout, 0)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(store.Config{
		Path:        cfg.Store.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if auth == nil {
		auth = NewOwnerAuthorizer(gw)
	}

	relaySvc := relay.New(relay.Config{
		IdentityNames: map[string]string{
			store.TableChatRelay:     "global relay",
			store.TableRecruitNormal: "recruit relay",
			store.TableRecruitRaid:   "recruit relay",
		},
	}, gw, st, log.With(logx.String("comp", "relay")))

	router := levelroute.New(gw, log.With(logx.String("comp", "levelroute")))

	ruleEngine := rules.New(gw, st, rules.Config{
		FriendCodeChannelID: cfg.Rules.FriendCodeChannelID,
		ForbiddenRunes:      cfg.Rules.ForbiddenTerminalRune,
	}, log.With(logx.String("comp", "rules")))

	cooldown, err := config.ParseDurationOrDefault("recruit.cooldown", cfg.Recruit.Cooldown, recruit.DefaultCooldown)
	if err != nil {
		return nil, err
	}
	recruitWF := recruit.New(gw, relaySvc, cooldown, log.With(logx.String("comp", "recruit")))
	reportFlow := report.New(gw, log.With(logx.String("comp", "report")))

	commands := NewCommands(gw, st, auth, reportFlow, recruit.ComponentOpen,
		log.With(logx.String("comp", "commands")))

	dispatcher := NewDispatcher(relaySvc, router, ruleEngine, commands, st,
		cfg.Rules.TriageChannelName, log.With(logx.String("comp", "dispatch")))
	dispatcher.AddInteractionHandler(recruitWF)
	dispatcher.AddInteractionHandler(reportFlow)

	interval, err := config.ParseDurationOrDefault("feed.interval", cfg.Feed.Interval, feed.DefaultInterval)
	if err != nil {
		return nil, err
	}
	source := feed.NewClient(cfg.Feed.APIKey, log.With(logx.String("comp", "feed")))
	watcher := feed.NewWatcher(source, st, gw, interval, log.With(logx.String("comp", "feed")))

	app := &App{
		cfgm:       cfgm,
		cfg:        cfg,
		logSvc:     logSvc,
		log:        log.With(logx.String("comp", "app")),
		gw:         gw,
		st:         st,
		dispatcher: dispatcher,
		watcher:    watcher,
		updates:    make(chan platform.Update, 64),
	}
	if cfg.HTTP.Enabled {
		app.web = web.New(cfg.HTTP.Addr, log.With(logx.String("comp", "web")))
	}
	return app, nil
}

// Start launches every service and returns once they are running.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true))

	if err := a.gw.Start(a.sup.Context(), a.updates); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	a.sup.Go("dispatcher", func(ctx context.Context) error {
		return a.dispatcher.Run(ctx, a.updates)
	})
	a.sup.Go("config-watch", a.cfgm.Watch)
	a.sup.Go("feed-watcher", func(ctx context.Context) error {
		if err := a.watcher.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		a.watcher.Stop()
		return nil
	})
	if a.web != nil {
		a.sup.Go("web", func(ctx context.Context) error { return a.web.Start() })
	}
	a.sup.Go("config-apply", a.applyConfigUpdates)

	a.log.Info("started",
		logx.String("store", a.cfg.Store.Path),
		logx.Bool("http", a.web != nil))
	return nil
}

// applyConfigUpdates hot-applies the reloadable subset of the config
// (logging only; routing settings live in the store and need no restart).
func (a *App) applyConfigUpdates(ctx context.Context) error {
	sub := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cfg, ok := <-sub:
			if !ok {
				return nil
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("configuration reloaded")
		}
	}
}

// Stop shuts everything down in reverse order, bounded by ctx.
func (a *App) Stop(ctx context.Context) error {
	if a.web != nil {
		if err := a.web.Shutdown(ctx); err != nil {
			a.log.Warn("web shutdown", logx.Err(err))
		}
	}
	if err := a.gw.Stop(ctx); err != nil {
		a.log.Warn("gateway stop", logx.Err(err))
	}

	var supErr error
	if a.sup != nil {
		supErr = a.sup.Stop(ctx)
	}
	if err := a.st.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}
	if err := a.logSvc.Close(); err != nil {
		return err
	}
	return supErr
}

// OwnerAuthorizer allows administrative commands only for the tenant owner.
// Platforms with richer role models supply their own Authorizer instead.
type OwnerAuthorizer struct {
	gw interface {
		TenantOwner(ctx context.Context, tenantID string) (string, error)
	}
}

func NewOwnerAuthorizer(gw platform.Gateway) *OwnerAuthorizer {
	return &OwnerAuthorizer{gw: gw}
}

func (a *OwnerAuthorizer) Allow(ctx context.Context, it *platform.Interaction, _ string) (bool, error) {
	owner, err := a.gw.TenantOwner(ctx, it.TenantID)
	if err != nil {
		return false, err
	}
	return owner == it.ActorID, nil
}
