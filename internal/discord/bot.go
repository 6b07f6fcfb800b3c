package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/solmirror/beacon/internal/battle"
	"github.com/solmirror/beacon/internal/warbeacon"
	"github.com/solmirror/beacon/pkg/log"
)

// Fetcher retrieves the battle report behind a matched link.
type Fetcher interface {
	Fetch(ctx context.Context, link warbeacon.Link) (*warbeacon.FetchedReport, error)
}

// Bot owns the discord session. Message handlers are dispatched concurrently
// by discordgo; the only state they share is the read only preferred
// affiliation config, so no locking is needed.
type Bot struct {
	session      *discordgo.Session
	isReady      atomic.Bool
	fetcher      Fetcher
	preferred    battle.Preferred
	token        string
	appID        string
	guildID      string
	fetchTimeout time.Duration
}

func NewBot(token string, appID string, guildID string, fetcher Fetcher, preferred battle.Preferred, fetchTimeout time.Duration) (*Bot, error) {
	if token == "" {
		return nil, ErrConfig
	}

	return &Bot{
		fetcher:      fetcher,
		preferred:    preferred,
		token:        token,
		appID:        appID,
		guildID:      guildID,
		fetchTimeout: fetchTimeout,
	}, nil
}

// Start opens the gateway connection and blocks until ctx is cancelled.
func (bot *Bot) Start(ctx context.Context) error {
	session, errNewSession := discordgo.New("Bot " + bot.token)
	if errNewSession != nil {
		return errors.Join(errNewSession, ErrSessionCreate)
	}

	session.UserAgent = "beacon (https://github.com/solmirror/beacon)"
	session.Identify.Intents |= discordgo.IntentsGuildMessages
	session.Identify.Intents |= discordgo.IntentMessageContent
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onConnect)
	session.AddHandler(bot.onDisconnect)
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onInteractionCreate)

	bot.session = session

	if errSessionOpen := session.Open(); errSessionOpen != nil {
		return errors.Join(errSessionOpen, ErrSessionOpen)
	}

	<-ctx.Done()

	return nil
}

func (bot *Bot) Shutdown() {
	if bot.session != nil {
		defer log.Closer(bot.session)
	}
}

func (bot *Bot) onReady(session *discordgo.Session, _ *discordgo.Ready) {
	slog.Info("Discord state changed", slog.String("state", "ready"), slog.String("username",
		fmt.Sprintf("%v#%v", session.State.User.Username, session.State.User.Discriminator)))
}

func (bot *Bot) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	if errRegister := bot.registerSlashCommands(); errRegister != nil {
		slog.Error("Failed to register discord slash commands", log.ErrAttr(errRegister))
	}

	slog.Info("Discord state changed", slog.String("state", "connected"))

	bot.isReady.Store(true)
}

func (bot *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	bot.isReady.Store(false)

	slog.Info("Discord state changed", slog.String("state", "disconnected"))
}

const cmdPing = "ping"

func (bot *Bot) registerSlashCommands() error {
	appID := bot.appID
	if appID == "" && bot.session.State.User != nil {
		appID = bot.session.State.User.ID
	}

	_, errCreate := bot.session.ApplicationCommandCreate(appID, bot.guildID, &discordgo.ApplicationCommand{
		Name:        cmdPing,
		Description: "Check that the bot is alive",
	})

	return errCreate
}

// onInteractionCreate answers the ping liveness command. Everything else the
// bot does runs off plain messages.
func (bot *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if interaction.ApplicationCommandData().Name != cmdPing {
		return
	}

	if errRespond := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: "pong"},
	}); errRespond != nil {
		slog.Error("Failed to respond to ping", log.ErrAttr(errRespond))
	}
}

// onMessageCreate runs the whole pipeline for one message: match, fetch,
// compute, render, post. Every error is terminal for this message only.
func (bot *Bot) onMessageCreate(session *discordgo.Session, message *discordgo.MessageCreate) {
	if message.Author == nil || message.Author.Bot {
		return
	}

	link, matched := warbeacon.Match(message.Content)
	if !matched {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), bot.fetchTimeout)
	defer cancel()

	fetched, errFetch := bot.fetcher.Fetch(ctx, link)
	if errFetch != nil {
		slog.Warn("Failed to fetch battle report", slog.String("url", link.URL), log.ErrAttr(errFetch))
		bot.sendNotice(session, message.ChannelID, "Failed to fetch that battle report.")

		return
	}

	summary, errSummary := battle.Summarize(fetched.URL, fetched.SystemName, fetched.Timestamp, fetched.Report, bot.preferred)
	if errSummary != nil {
		slog.Warn("Failed to summarize battle report", slog.String("url", link.URL), log.ErrAttr(errSummary))
		bot.sendNotice(session, message.ChannelID, "Could not summarize this battle.")

		return
	}

	if _, errSend := session.ChannelMessageSendEmbed(message.ChannelID, SummaryEmbed(summary)); errSend != nil {
		slog.Error("Failed to send battle report embed", log.ErrAttr(errSend))

		return
	}

	// Deleting the source message needs manage-messages permission, which
	// the bot may not have. Best effort only.
	if errDelete := session.ChannelMessageDelete(message.ChannelID, message.ID); errDelete != nil {
		slog.Debug("Failed to delete source message", log.ErrAttr(errDelete))
	}
}

func (bot *Bot) sendNotice(session *discordgo.Session, channelID string, content string) {
	if _, errSend := session.ChannelMessageSend(channelID, content); errSend != nil {
		slog.Error("Failed to send notice", log.ErrAttr(errSend))
	}
}
