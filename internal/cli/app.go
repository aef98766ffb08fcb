package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/spacer/internal/archive"
	"github.com/rpggio/spacer/internal/config"
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/mcp"
	"github.com/rpggio/spacer/internal/scheduler"
	"github.com/rpggio/spacer/internal/sqlite"
)

// app holds the opened database and the services built on it.
type app struct {
	cfg      config.Config
	tenant   string
	logger   *slog.Logger
	db       *sqlite.DB
	apiKeys  *sqlite.APIKeyRepository
	notes    *note.Service
	cards    *card.Service
	sessions *session.Service
	activity *activity.Service
	archive  *archive.Service

	closeLog func() error
}

// openApp loads configuration, opens and migrates the database and wires
// the services. logOut receives logs when no log file is configured.
func openApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if opts.dbPath != "" {
		cfg.DB.Path = opts.dbPath
	}
	if opts.transport != "" {
		cfg.Transport.Mode = opts.transport
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	logger, closeLog, err := newLogger(logOut, cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log file error: %w", err)
	}

	if err := ensureDir(cfg.DB.Path); err != nil {
		closeLog()
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrationsContext(ctx); err != nil {
		db.Close()
		closeLog()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	activityRepo := sqlite.NewActivityRepository(db)
	sched := scheduler.New(cfg.LearningDurations()...)

	notes := note.NewService(sqlite.NewNoteRepository(db), activityRepo, logger)
	cards := card.NewService(sqlite.NewCardRepository(db), activityRepo, logger, card.WithScheduler(sched))
	tenant := opts.tenant
	if tenant == "" {
		tenant = mcp.DefaultTenant
	}

	return &app{
		cfg:      cfg,
		tenant:   tenant,
		logger:   logger,
		db:       db,
		apiKeys:  sqlite.NewAPIKeyRepository(db),
		notes:    notes,
		cards:    cards,
		sessions: session.NewService(cards, sqlite.NewSessionRepository(db), activityRepo, logger),
		activity: activity.NewService(activityRepo, logger),
		archive:  archive.NewService(notes, cards, activityRepo, logger),
		closeLog: closeLog,
	}, nil
}

func (a *app) services() mcp.Services {
	return mcp.Services{
		Notes:    a.notes,
		Cards:    a.cards,
		Sessions: a.sessions,
		Activity: a.activity,
	}
}

func (a *app) Close() error {
	return errors.Join(a.db.Close(), a.closeLog())
}
