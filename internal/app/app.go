// Package app wires the form bot: access list, form catalog, session store,
// renderer and conversation engine behind the telebot run loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/formbot/core/bootstrap"
	corecmd "github.com/m3rciful/formbot/core/cmd"
	coredatabase "github.com/m3rciful/formbot/core/database"
	"github.com/m3rciful/formbot/core/logger"
	tg "github.com/m3rciful/formbot/core/telegram"
	"github.com/m3rciful/formbot/core/telegram/state"
	"github.com/m3rciful/formbot/internal/acl"
	"github.com/m3rciful/formbot/internal/conversation"
	"github.com/m3rciful/formbot/internal/form"
	"github.com/m3rciful/formbot/internal/locale"
	"github.com/m3rciful/formbot/internal/render"
	"github.com/m3rciful/formbot/internal/session"
)

// App is the assembled bot.
type App struct {
	cfg       *Config
	infra     *bootstrap.Result
	acl       *acl.Store
	store     session.Store
	engine    *conversation.Engine
	transport *conversation.TelebotTransport
	fsm       state.Manager
	loc       locale.Localizer
}

// Deps are the collaborators New needs; Transport and Renderer may be nil
// and default to telebot and the subprocess renderer.
type Deps struct {
	Infra     *bootstrap.Result
	ACL       *acl.Store
	Catalog   *form.Catalog
	Store     session.Store
	Renderer  render.Renderer
	Transport *conversation.TelebotTransport
}

// New builds the App for cfg.Form.Product.
func New(ctx context.Context, cfg *Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if deps.ACL == nil || deps.Catalog == nil || deps.Store == nil {
		return nil, errors.New("app: acl, catalog and session store are required")
	}
	def, err := deps.Catalog.Lookup(cfg.Form.Product)
	if err != nil {
		return nil, err
	}
	loc, err := locale.NewLocalizer(cfg.Locale.Default)
	if err != nil {
		return nil, err
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = RendererFromConfig(cfg)
	}
	transport := deps.Transport
	if transport == nil {
		transport = conversation.NewTelebotTransport()
	}
	fsm := state.NewMemoryManager()

	engine, err := conversation.New(conversation.Options{
		Definition:      def,
		Store:           deps.Store,
		Renderer:        renderer,
		FSM:             fsm,
		Transport:       transport,
		Localizer:       loc,
		OutputDir:       cfg.Paths.Output,
		ImagesDir:       cfg.Paths.Images,
		WorkDir:         cfg.Renderer.WorkDir,
		BroadcastChatID: cfg.BroadcastChatID(),
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, logger.CompApp, "app.ready",
		slog.String("product", def.Product),
		slog.Int("fields", len(def.Fields)),
		slog.String("locale", loc.Lang()),
		slog.Bool("broadcast", cfg.BroadcastChatID() != 0),
	)
	return &App{
		cfg:       cfg,
		infra:     deps.Infra,
		acl:       deps.ACL,
		store:     deps.Store,
		engine:    engine,
		transport: transport,
		fsm:       fsm,
		loc:       loc,
	}, nil
}

// RendererFromConfig builds the subprocess renderer.
func RendererFromConfig(cfg *Config) *render.Subprocess {
	return render.NewSubprocess(cfg.Renderer.Interpreter, time.Duration(cfg.Renderer.TimeoutSeconds)*time.Second, cfg.Renderer.WorkDir)
}

// Engine exposes the conversation engine.
func (a *App) Engine() *conversation.Engine { return a.engine }

// Close releases the session cache and the database.
func (a *App) Close() error {
	if c, ok := a.store.(*session.Cached); ok {
		c.Close()
	}
	return a.infra.Close()
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg, err := a.registry()
	if err != nil {
		return tg.RunOptions{}, err
	}
	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: a.middlewares(),
		Routes:      a.routes(reg),
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			if rt.Bot == nil {
				return errors.New("app: runtime without bot")
			}
			a.transport.Attach(rt.Bot)
			var username string
			if rt.Bot.Me != nil {
				username = rt.Bot.Me.Username
			}
			logger.Info(ctx, logger.CompApp, "transport.attached", slog.String("bot", username))
			return nil
		},
	}, nil
}

// Bootstrap is the cmd.Options.Bootstrap hook: it opens the access list,
// initializes logging and storage, seeds admins and builds the App.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	aclStore, err := acl.Open(cfg.ACL.Path)
	if err != nil {
		return nil, err
	}
	catalog, err := form.Open(cfg.Form.FormsFile)
	if err != nil {
		return nil, err
	}

	opts := bootstrap.Options{
		Config:  &cfg.Config,
		Modules: bootstrap.Modules{Seeders: []bootstrap.Seeder{AdminSeeder(aclStore, cfg.ACL.Admins)}},
	}
	if cfg.Storage.UsesSQL() {
		db := cfg.Storage.Database
		opts.Database = &db
		opts.AutoMigrate = cfg.Storage.AutoMigrate
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	store, err := session.Open(ctx, cfg.Storage, cfg.Form.Product, infra.DB)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	a, err := New(ctx, cfg, Deps{Infra: infra, ACL: aclStore, Catalog: catalog, Store: store})
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

// AdminSeeder promotes the configured admin ids. Ids that are already
// admins are left alone.
func AdminSeeder(store *acl.Store, ids []string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, _ *bootstrap.Result) error {
		for _, id := range ids {
			if _, err := store.AddAdmin(id); err != nil {
				return fmt.Errorf("seed admin %q: %w", id, err)
			}
		}
		return nil
	})
}

// MigrateOnly applies the session migrations without starting the bot.
func MigrateOnly(cfg *Config) error {
	if !cfg.Storage.UsesSQL() {
		return fmt.Errorf("app: storage driver %q has no migrations", cfg.Storage.Driver)
	}
	return coredatabase.RunMigrations(cfg.Storage.Database)
}
