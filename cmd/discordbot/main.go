/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/mikeb26/customslobby-bot/archive"
	"github.com/mikeb26/customslobby-bot/hub"
	"github.com/mikeb26/customslobby-bot/internal"
	"github.com/mikeb26/customslobby-bot/store"
	"github.com/mikeb26/customslobby-bot/store/postgres"
)

// Config is populated from the environment; a .env file in the working
// directory is loaded first when present.
type Config struct {
	DiscordToken  string        `envconfig:"DISCORD_TOKEN" required:"true"`
	DatabaseUrl   string        `envconfig:"DATABASE_URL" required:"true"`
	ArchiveBucket string        `envconfig:"RESULT_ARCHIVE_BUCKET"`
	UndoTimeout   time.Duration `envconfig:"UNDO_TIMEOUT" default:"30s"`
	CommandPrefix string        `envconfig:"COMMAND_PREFIX" default:"!"`
}

// Bot wires the discord gateway session to the lobby hub and user store.
type Bot struct {
	cfg     Config
	dg      *discordgo.Session
	hub     *hub.Hub
	userDb  store.UserStore
	tracker *msgTracker
}

func init() {
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("discordbot.main: failed to load .env: %v", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("discordbot.main: failed to process config: %v", err)
	}

	userDb, err := postgres.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		log.Fatalf("discordbot.main: failed to open user database: %v", err)
	}
	defer userDb.Close()

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("discordbot.main: failed to initialize discord client: %v",
			err)
	}
	dg.UserAgent = internal.UserAgent
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	bot := &Bot{
		cfg:     cfg,
		dg:      dg,
		userDb:  userDb,
		tracker: newMsgTracker(),
	}

	var archiver hub.ResultArchiver
	if cfg.ArchiveBucket != "" {
		s3arc := archive.New(cfg.ArchiveBucket)
		if err := s3arc.Init(ctx); err != nil {
			log.Fatalf("discordbot.main: failed to init result archive: %v",
				err)
		}
		archiver = s3arc
	}

	bot.hub = hub.New(ctx, hub.Deps{
		Store:       userDb,
		Notifier:    bot,
		Auth:        bot,
		Archive:     archiver,
		UndoTimeout: cfg.UndoTimeout,
	})

	dg.AddHandler(bot.messageCreate)
	dg.AddHandler(bot.reactionAdd)
	dg.AddHandler(bot.reactionRemove)

	if err := dg.Open(); err != nil {
		log.Fatalf("discordbot.main: failed to open gateway connection: %v",
			err)
	}
	log.Printf("discordbot.main: connected as %v", dg.State.User.Username)

	<-ctx.Done()

	log.Printf("discordbot.main: shutting down")
	bot.hub.Shutdown()
	if err := dg.Close(); err != nil {
		log.Printf("discordbot.main: failed to close gateway connection: %v",
			err)
	}
	log.Printf("discordbot.main: exiting")
}
