package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		GuildID          int64  `env:"GUILD_ID,required"`
		BotUserID        int64  `env:"BOT_USER_ID,required"`
		LogLevel         int    `env:"LOG_LEVEL,default=4"`
		DotPath          string `env:"DOT_PATH,default=~/.warden"`
		DatabaseFile     string `env:"DATABASE_FILE,default=warden.db"`
		RolesPath        string `env:"ROLES_PATH"`
		DefaultBanReason string `env:"DEFAULT_BAN_REASON,default=No reason given ..."`

		Channels Channels
		Webhook  Webhook
		Sweep    Sweep
	}

	Channels struct {
		SeniorMod int64 `env:"CHANNEL_SR_MOD"`
		BotLogs   int64 `env:"CHANNEL_BOT_LOGS"`
		VerifyLog int64 `env:"CHANNEL_VERIFY_LOGS"`
	}

	Webhook struct {
		ListenAddr string `env:"WEBHOOK_LISTEN_ADDR,default=:8000"`
		Token      string `env:"WEBHOOK_TOKEN,required"`
	}

	Sweep struct {
		Interval  time.Duration `env:"SWEEP_INTERVAL,default=1m"`
		Lookahead time.Duration `env:"SWEEP_LOOKAHEAD,default=1m"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("WARDEN_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		if strings.HasPrefix(cfg.DotPath, "~") {
			expanded, err := homedir.Expand(cfg.DotPath)
			if err != nil {
				globalErr = fmt.Errorf("expand dot path: %w", err)
				return
			}
			cfg.DotPath = expanded
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
