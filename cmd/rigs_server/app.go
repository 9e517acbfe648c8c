package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kdudkov/rigs/internal/auth"
	"github.com/kdudkov/rigs/internal/clock"
	"github.com/kdudkov/rigs/internal/config"
	"github.com/kdudkov/rigs/internal/database"
	"github.com/kdudkov/rigs/internal/events"
	"github.com/kdudkov/rigs/internal/ledger"
	"github.com/kdudkov/rigs/internal/missions"
	"github.com/kdudkov/rigs/internal/repository"
	"github.com/kdudkov/rigs/internal/sessions"
	"github.com/kdudkov/rigs/internal/token"
	"github.com/kdudkov/rigs/internal/voting"
	"github.com/kdudkov/rigs/internal/wshandler"
	"github.com/kdudkov/rigs/pkg/model"
)

type App struct {
	cfg    *config.AppConfig
	logger *slog.Logger
	uid    string

	dbm        *database.DatabaseManager
	clock      clock.Source
	policy     *auth.Policy
	identities repository.IdentityRepository
	tokens     *token.Issuer
	bus        *events.Bus

	sessions *sessions.Manager
	ledger   *ledger.Ledger
	voting   *voting.Registry
	missions *missions.Manager
}

func NewApp(cfg *config.AppConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.DBDriver(), cfg.DBDsn(), cfg.LogLevel() < slog.LevelInfo)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	dbm := database.New(db)

	if err := dbm.Migrate(); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	app := &App{
		cfg:    cfg,
		logger: slog.Default().With("logger", "app"),
		uid:    uuid.NewString(),
		dbm:    dbm,
		clock:  clock.FromName(cfg.Clock(), int64(cfg.Int("clock_start"))),
		policy: auth.NewPolicy(cfg.Parent()),
		tokens: token.NewIssuer(cfg.JWTSecret(), cfg.JWTIssuer(), cfg.JWTTTL()),
		bus:    events.NewBus(wshandler.QueueSize),
	}

	if cfg.IdentitiesSource() == "db" {
		app.identities = repository.NewIdentityDbRepository(cfg.IdentitiesFile(), dbm)
	} else {
		app.identities = repository.NewIdentityFileRepository(cfg.IdentitiesFile())
	}

	app.sessions = sessions.New(dbm, app.clock, app.policy)
	app.ledger = ledger.New(dbm, app.clock, app.policy)
	app.voting = voting.New(dbm, app.clock, app.policy)
	app.missions = missions.New(dbm, app.clock, app.policy)

	return app, nil
}

func (app *App) Start() error {
	app.identities.ChangeCallback().AddCallback("app", func(u *model.Identity) bool {
		app.logger.Info("identity changed", slog.String("login", u.Login), slog.Bool("disabled", u.Disabled))
		app.publish(events.Identity, u.DTO())

		return true
	})

	if err := app.identities.Start(); err != nil {
		return fmt.Errorf("identities: %w", err)
	}

	if !app.tokens.Enabled() {
		app.logger.Warn("jwt.secret is empty, bearer tokens are disabled")
	}

	app.logger.Info("started", slog.String("uid", app.uid), slog.String("parent", app.policy.Parent()),
		slog.Int64("height", app.clock.Height()))

	return nil
}

func (app *App) Stop() {
	app.identities.Stop()

	if sqlDB, err := app.dbm.DB().DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (app *App) publish(typ string, data any) {
	app.bus.Publish(typ, app.clock.Height(), data)
}
