package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	plannerx "github.com/fixwell/shop-agent/agent/planner"
	reasonerx "github.com/fixwell/shop-agent/agent/reasoner"
	runx "github.com/fixwell/shop-agent/agent/run"
	shopx "github.com/fixwell/shop-agent/agent/shop"
	toolx "github.com/fixwell/shop-agent/agent/tool"
	configx "github.com/fixwell/shop-agent/pkg/config"
	logx "github.com/fixwell/shop-agent/pkg/logger"
	mailerx "github.com/fixwell/shop-agent/pkg/mailer"
	ratelimitx "github.com/fixwell/shop-agent/pkg/ratelimit"
	"github.com/fixwell/shop-agent/server"
)

type AppConfig struct {
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	DefaultPlanner string `envconfig:"DEFAULT_PLANNER" split_words:"true" default:"resolving"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(appCfg.DatabaseURL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	if err := shopx.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure shop schema")
	}
	if err := runx.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure run schema")
	}

	mailerCfg := configx.MustNew[mailerx.Config]("MAILER")
	mailClient := mailerx.MustNew(*mailerCfg)

	rateCfg := configx.MustNew[ratelimitx.Config]("RATELIMIT")
	gate := ratelimitx.New(*rateCfg)

	stores := shopx.NewBunStores(db, mailClient)
	registry, err := toolx.NewShopRegistry(stores)
	if err != nil {
		log.Fatal().Err(err).Msg("build tool registry")
	}

	planners := map[string]contractx.Planner{
		"minimal":   plannerx.NewMinimal(registry),
		"resolving": plannerx.NewResolving(registry),
		"approvals": plannerx.NewApprovals(registry),
		"fleet":     plannerx.NewFleet(registry),
	}

	reasonerCfg := configx.MustNew[reasonerx.Config]("REASONER")
	if reasonerCfg.Enabled() {
		decider, err := reasonerx.New(*reasonerCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init reasoner")
		}
		planners["guided"] = plannerx.NewGuided(registry, decider, registry.Specs())
	} else {
		// No reasoning provider: requests naming the guided planner fall
		// back to the deterministic resolving planner.
		planners["guided"] = planners["resolving"]
		log.Info().Msg("no reasoner configured, guided requests fall back to resolving")
	}

	manager, err := runx.NewManager(runx.NewBunStore(db), runx.ContextResolver{}, gate, planners, appCfg.DefaultPlanner)
	if err != nil {
		log.Fatal().Err(err).Msg("init run manager")
	}

	httpCfg := configx.MustNew[server.Config]("HTTP")
	srv := server.New(manager)
	if err := srv.ListenAndServe(ctx, *httpCfg); err != nil {
		log.Fatal().Err(err).Msg("http server")
	}
}
