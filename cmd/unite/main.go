package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unitecrm/unite/db"
	"github.com/unitecrm/unite/internal/config"
	"github.com/unitecrm/unite/internal/crm"
	internaldb "github.com/unitecrm/unite/internal/db"
	"github.com/unitecrm/unite/internal/handlers"
	"github.com/unitecrm/unite/internal/identity"
	"github.com/unitecrm/unite/internal/knowledge"
	"github.com/unitecrm/unite/internal/logger"
	"github.com/unitecrm/unite/internal/merge"
	"github.com/unitecrm/unite/internal/messaging"
	"github.com/unitecrm/unite/internal/reconcile"
	"github.com/unitecrm/unite/internal/server"
	"github.com/unitecrm/unite/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,

			provideKnowledgeClient,
			identity.NewStore,
			crm.NewService,
			messaging.NewService,
			provideResolver,
			merge.NewEngine,
			provideReconcileService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewIdentityHandler),
			provideServerHandler(handlers.NewMergeHandler),
			provideServerHandler(handlers.NewContactsHandler),

			provideServer,
		),
		fx.Invoke(
			startReconcile,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func runMigrate(args []string) error {
	cfg, err := provideConfig()
	if err != nil {
		return err
	}
	log := provideLogger(cfg)
	if len(args) == 0 {
		return errors.New("usage: unite migrate <up|down|version|force> [args]")
	}
	// iofs only sees files at the root of the FS it is given.
	migrations, err := fs.Sub(db.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	return internaldb.RunMigrate(log, cfg.Postgres, migrations, args[0], args[1:])
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := internaldb.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

// provideKnowledgeClient returns nil when no qdrant endpoint is configured;
// the resolver treats a nil fact searcher as "no knowledge store".
func provideKnowledgeClient(log *slog.Logger, cfg config.Config) (*knowledge.Client, error) {
	if cfg.Qdrant.BaseURL == "" {
		log.Info("knowledge store not configured")
		return nil, nil
	}
	return knowledge.NewClient(log, cfg.Qdrant)
}

func provideResolver(log *slog.Logger, store *identity.Store, crmSvc *crm.Service, messagingSvc *messaging.Service, client *knowledge.Client, cfg config.Config) *identity.Resolver {
	var facts identity.FactSearcher
	if client != nil {
		facts = client
	}
	return identity.NewResolver(log, store, crmSvc, messagingSvc, facts, cfg.Reconcile.MatchThreshold)
}

func provideReconcileService(log *slog.Logger, crmSvc *crm.Service, engine *merge.Engine, cfg config.Config) *reconcile.Service {
	return reconcile.NewService(log, crmSvc, engine, cfg.Reconcile)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startReconcile(lc fx.Lifecycle, svc *reconcile.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Bootstrap(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return svc.Shutdown(ctx)
		},
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting Unite %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown() // shutdown the application if the server fails to start
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
