package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/hexvault/warden/internal/config"
	"github.com/hexvault/warden/internal/db/sqlite"
	"github.com/hexvault/warden/internal/identity"
	"github.com/hexvault/warden/internal/infra"
	"github.com/hexvault/warden/internal/lifecycle"
	"github.com/hexvault/warden/internal/moderation"
	"github.com/hexvault/warden/internal/observability"
	"github.com/hexvault/warden/internal/platform"
	"github.com/hexvault/warden/internal/scheduler"
	"github.com/hexvault/warden/internal/sweep"
	"github.com/hexvault/warden/internal/webhook"
)

const guildName = "Hexvault"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.WardenFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := observability.Init(ctx); err != nil {
		log.WithError(err).Fatalln("cant init observability")
	}

	workDir, err := infra.EnsureWorkDir(cfg.DotPath)
	if err != nil {
		log.WithError(err).Fatalln("cant prepare work dir")
	}

	store, err := sqlite.NewSQLiteStore(ctx, workDir, cfg.DatabaseFile)
	if err != nil {
		log.WithError(err).Fatalln("cant open store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("cant close store")
		}
	}()

	roles, err := config.LoadRoles(cfg.RolesPath)
	if err != nil {
		log.WithError(err).Fatalln("cant load role table")
	}

	// Real chat connector goes here; the dry-run guild keeps everything
	// else operational without one.
	var guild platform.Guild = platform.NewLogGuild()

	sched := scheduler.New()
	defer func() {
		if err := sched.Stop(context.Background()); err != nil {
			log.WithError(err).Error("scheduler drain failed")
		}
	}()

	banService := moderation.NewBanService(store, guild, sched, roles, cfg, guildName)
	muteService := moderation.NewMuteService(store, guild, sched, roles, cfg)
	infractionService := moderation.NewInfractionService(store, guild, guildName)
	identitySync := identity.NewSynchronizer(guild, roles)

	sweeper := sweep.New(store, banService, muteService, cfg.Sweep.Interval, cfg.Sweep.Lookahead)

	accountHandler := webhook.NewAccountHandler(banService, identitySync, guild, roles, cfg.Channels)
	moderationAPI := webhook.NewModerationAPI(banService, muteService, infractionService)
	server := webhook.NewServer(cfg.Webhook, moderationAPI, accountHandler)

	runtime := lifecycle.NewRuntime(sweeper, server)
	if err := runtime.RunUntilSignal(ctx); err != nil {
		log.WithError(err).Fatalln("runtime failed")
	}
	log.Info("bye")
}
