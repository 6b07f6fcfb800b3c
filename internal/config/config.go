// Package config loads process configuration from a yaml file and
// BEACON_ prefixed environment variables.
package config

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/solmirror/beacon/internal/battle"
	"github.com/solmirror/beacon/internal/warbeacon"
	"github.com/spf13/viper"
)

var (
	ErrReadConfig   = errors.New("failed to read config file")
	ErrFormatConfig = errors.New("invalid config file format")
)

type DiscordConfig struct {
	Token   string `mapstructure:"token"`
	AppID   string `mapstructure:"app_id"`
	GuildID string `mapstructure:"guild_id"`
}

type WarBeaconConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ClientTimeout string `mapstructure:"client_timeout"`

	ClientTimeoutDuration time.Duration `mapstructure:"-"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type preferredConfig struct {
	Alliances string `mapstructure:"alliances"`
	Corps     string `mapstructure:"corps"`
}

type rootConfig struct {
	Discord   DiscordConfig   `mapstructure:"discord"`
	WarBeacon WarBeaconConfig `mapstructure:"warbeacon"`
	Preferred preferredConfig `mapstructure:"preferred"`
	Log       LogConfig       `mapstructure:"log"`
	SentryDSN string          `mapstructure:"sentry_dsn"`
}

// Config is the fully parsed process configuration. Loaded once at startup
// and treated as read only afterwards.
type Config struct {
	Discord   DiscordConfig
	WarBeacon WarBeaconConfig
	Preferred battle.Preferred
	Log       LogConfig
	SentryDSN string
}

// Read loads the config file (if any) and environment variables. A missing
// config file is fine, the bot can be configured entirely from env.
func Read(cfgFile string) (Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
	viper.SetConfigName("beacon")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("beacon")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if errRead := viper.ReadInConfig(); errRead != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(errRead, &notFound) {
			return Config{}, errors.Join(errRead, ErrReadConfig)
		}
	} else {
		slog.Info("Using config file", slog.String("path", viper.ConfigFileUsed()))
	}

	var root rootConfig
	if errUnmarshal := viper.Unmarshal(&root); errUnmarshal != nil {
		return Config{}, errors.Join(errUnmarshal, ErrFormatConfig)
	}

	timeout, errTimeout := time.ParseDuration(root.WarBeacon.ClientTimeout)
	if errTimeout != nil {
		timeout = time.Second * 10
	}

	root.WarBeacon.ClientTimeoutDuration = timeout

	return Config{
		Discord:   root.Discord,
		WarBeacon: root.WarBeacon,
		Preferred: battle.Preferred{
			Alliances: ParseIDList(root.Preferred.Alliances),
			Corps:     ParseIDList(root.Preferred.Corps),
		},
		Log:       root.Log,
		SentryDSN: root.SentryDSN,
	}, nil
}

// ParseIDList parses a comma separated id allow-list into a set, logging and
// skipping anything that is not an integer.
func ParseIDList(value string) map[int64]struct{} {
	ids := map[int64]struct{}{}

	for _, item := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}

		id, errParse := strconv.ParseInt(trimmed, 10, 64)
		if errParse != nil {
			slog.Warn("Invalid id in allow-list", slog.String("value", trimmed))

			continue
		}

		ids[id] = struct{}{}
	}

	return ids
}

func init() {
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.app_id", "")
	viper.SetDefault("discord.guild_id", "")

	viper.SetDefault("warbeacon.base_url", warbeacon.DefaultBaseURL)
	viper.SetDefault("warbeacon.client_timeout", "10s")

	viper.SetDefault("preferred.alliances", "")
	viper.SetDefault("preferred.corps", "")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")

	viper.SetDefault("sentry_dsn", "")
}
