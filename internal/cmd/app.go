package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/solmirror/beacon/internal/config"
	"github.com/solmirror/beacon/internal/discord"
	"github.com/solmirror/beacon/internal/warbeacon"
	"github.com/solmirror/beacon/pkg/log"
)

var (
	BuildVersion = "master" //nolint:gochecknoglobals
	BuildCommit  = ""       //nolint:gochecknoglobals
	BuildDate    = ""       //nolint:gochecknoglobals
)

// Beacon wires the config, WarBeacon client and discord bot together for
// the serve command.
type Beacon struct {
	config    config.Config
	client    *warbeacon.Client
	bot       *discord.Bot
	logCloser func()
}

func NewBeacon() (*Beacon, error) {
	conf, errConfig := config.Read(cfgFile)
	if errConfig != nil {
		return nil, errConfig
	}

	return &Beacon{config: conf}, nil
}

func (app *Beacon) Init(ctx context.Context) error {
	sentryDSN := app.config.SentryDSN
	if sentryDSN == "" {
		if value, found := os.LookupEnv("SENTRY_DSN"); found {
			sentryDSN = value
		}
	}

	if sentryDSN != "" {
		if _, errSentry := log.NewSentryClient(sentryDSN, BuildVersion); errSentry != nil {
			slog.Error("Failed to setup sentry client", log.ErrAttr(errSentry))
		}
	}

	app.logCloser = log.MustCreateLogger(ctx, app.config.Log.File, log.Level(app.config.Log.Level), sentryDSN != "", BuildVersion)

	app.client = warbeacon.NewClient(app.config.WarBeacon.BaseURL, app.config.WarBeacon.ClientTimeoutDuration)

	bot, errBot := discord.NewBot(
		app.config.Discord.Token,
		app.config.Discord.AppID,
		app.config.Discord.GuildID,
		app.client,
		app.config.Preferred,
		app.config.WarBeacon.ClientTimeoutDuration)
	if errBot != nil {
		slog.Error("Cannot create discord bot", log.ErrAttr(errBot))

		return errBot
	}

	app.bot = bot

	return nil
}

// Serve blocks until the context is cancelled.
func (app *Beacon) Serve(ctx context.Context) error {
	slog.Info("Starting beacon", slog.String("version", BuildVersion))

	return app.bot.Start(ctx)
}

func (app *Beacon) Close() {
	if app.bot != nil {
		app.bot.Shutdown()
	}

	if app.logCloser != nil {
		app.logCloser()
	}
}
