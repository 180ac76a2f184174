/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/mikeb26/customslobby-bot/hub"
	"github.com/mikeb26/customslobby-bot/internal"
	"github.com/mikeb26/customslobby-bot/store"
)

type cmdHandler func(b *Bot, ctx context.Context, m *discordgo.MessageCreate,
	args []string)

var cmdHdlrs = map[string]cmdHandler{
	"makegame":         (*Bot).makeGameCmd,
	"makegamebalanced": (*Bot).makeGameBalancedCmd,
	"forcestartgame":   (*Bot).forceStartCmd,
	"undogame":         (*Bot).undoGameCmd,
	"register":         (*Bot).registerCmd,
	"link":             (*Bot).linkCmd,
	"profile":          (*Bot).profileCmd,
	"elo":              (*Bot).eloCmd,
	"leaderboard":      (*Bot).leaderboardCmd,
	"removewin":        (*Bot).removeWinCmd,
	"removeloss":       (*Bot).removeLossCmd,
	"adjustelo":        (*Bot).adjustEloCmd,
	"help":             (*Bot).helpCmd,
	"ping":             (*Bot).pingCmd,
}

func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !strings.HasPrefix(m.Content, b.cfg.CommandPrefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, b.cfg.CommandPrefix))
	if len(fields) == 0 {
		return
	}
	hdlr, ok := cmdHdlrs[strings.ToLower(fields[0])]
	if !ok {
		return
	}

	hdlr(b, context.Background(), m, fields[1:])
}

func (b *Bot) makeGameCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	view, err := b.hub.OpenManualLobby(ctx, m.ChannelID, m.ChannelID,
		m.Author.ID)
	if err != nil {
		if errors.Is(err, hub.ErrSessionExists) {
			b.reply(m.ChannelID,
				"A game is already in progress in this channel.")
		} else {
			log.Printf("discordbot.makegame: %v", err)
			b.reply(m.ChannelID, fmt.Sprintf("Failed to create game: %v", err))
		}
		return
	}

	b.postLobby(ctx, view)
}

func (b *Bot) makeGameBalancedCmd(ctx context.Context,
	m *discordgo.MessageCreate, args []string) {

	view, err := b.hub.OpenBalancedLobby(ctx, m.ChannelID, m.ChannelID,
		m.Author.ID)
	if err != nil {
		if errors.Is(err, hub.ErrSessionExists) {
			b.reply(m.ChannelID,
				"A game is already in progress in this channel.")
		} else {
			log.Printf("discordbot.makegamebalanced: %v", err)
			b.reply(m.ChannelID, fmt.Sprintf("Failed to create game: %v", err))
		}
		return
	}

	b.postLobby(ctx, view)
}

func (b *Bot) forceStartCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	err := b.hub.ForceStart(ctx, m.ChannelID, m.Author.ID)
	if err != nil {
		log.Printf("discordbot.forcestart: %v", err)
		b.reply(m.ChannelID, startErrText(err))
	}
}

func startErrText(err error) string {
	switch {
	case errors.Is(err, hub.ErrSessionNotFound):
		return "No open game in this channel; try makegame first."
	case errors.Is(err, hub.ErrNotAuthorized):
		return "Only the game creator or a moderator can force start."
	default:
		return fmt.Sprintf("Failed to start game: %v", err)
	}
}

func (b *Bot) undoGameCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	err := b.hub.RequestUndo(ctx, m.ChannelID, m.Author.ID)
	if err != nil {
		log.Printf("discordbot.undogame: %v", err)
		switch {
		case errors.Is(err, hub.ErrNotAuthorized):
			b.reply(m.ChannelID, "Only a moderator can undo a game result.")
		case errors.Is(err, hub.ErrUndoPending):
			b.reply(m.ChannelID, "An undo confirmation is already pending.")
		default:
			b.reply(m.ChannelID, fmt.Sprintf("Nothing to undo: %v", err))
		}
	}
}

func (b *Bot) registerCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	target := m.Author
	if len(m.Mentions) > 0 {
		if !b.IsAuthority(ctx, m.Author.ID, m.ChannelID) {
			b.reply(m.ChannelID,
				"Only a moderator can register another player.")
			return
		}
		target = m.Mentions[0]
	}

	user, err := b.ensureRegistered(ctx, target)
	if err != nil {
		log.Printf("discordbot.register: %v", err)
		b.reply(m.ChannelID, "Registration failed; please try again later.")
		return
	}
	b.reply(m.ChannelID, fmt.Sprintf("%v is registered with a rating of %v.",
		internal.Mention(user.ID), user.Rating))
}

func (b *Bot) linkCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	if len(args) == 0 {
		b.reply(m.ChannelID, fmt.Sprintf("Usage: %vlink <GameName#TAG>",
			b.cfg.CommandPrefix))
		return
	}
	gameHandle := strings.Trim(strings.Join(args, " "), "\"")
	if !validGameHandle(gameHandle) {
		b.reply(m.ChannelID,
			"Game names look like **GameName#TAG**; please try again.")
		return
	}

	if _, err := b.ensureRegistered(ctx, m.Author); err != nil {
		log.Printf("discordbot.link: %v", err)
		b.reply(m.ChannelID, "Registration failed; please try again later.")
		return
	}
	if err := b.userDb.LinkGameHandle(ctx, m.Author.ID, gameHandle); err != nil {
		log.Printf("discordbot.link: %v", err)
		b.reply(m.ChannelID, "Failed to link game name; please try again later.")
		return
	}
	b.reply(m.ChannelID, fmt.Sprintf("%v linked to game name **%v**.",
		internal.Mention(m.Author.ID), gameHandle))
}

// validGameHandle accepts names of the form Name#TAG with non-empty halves.
func validGameHandle(h string) bool {
	name, tag, ok := strings.Cut(h, "#")
	if !ok || name == "" || tag == "" {
		return false
	}
	return !strings.Contains(tag, "#")
}

func (b *Bot) profileCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	target := m.Author
	if len(m.Mentions) > 0 {
		target = m.Mentions[0]
	}

	user, err := b.userDb.GetUser(ctx, target.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			b.reply(m.ChannelID, fmt.Sprintf(
				"%v is not registered yet; try %vregister.",
				target.Username, b.cfg.CommandPrefix))
		} else {
			log.Printf("discordbot.profile: %v", err)
			b.reply(m.ChannelID, "Failed to look up profile.")
		}
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%v's profile", user.Username),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rating", Value: fmt.Sprintf("%v", user.Rating),
				Inline: true},
			{Name: "Games", Value: fmt.Sprintf("%v", user.GamesPlayed),
				Inline: true},
			{Name: "Record", Value: fmt.Sprintf("%vW / %vL", user.Wins,
				user.Losses), Inline: true},
			{Name: "Win Rate", Value: internal.FormatWinRate(user.WinRate()),
				Inline: true},
		},
	}
	if user.GameHandle != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Game Name", Value: user.GameHandle, Inline: true})
	}
	if user.AvatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL}
	}

	if _, err := b.dg.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		log.Printf("discordbot.profile: failed to send embed: %v", err)
	}
}

func (b *Bot) eloCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	target := m.Author
	if len(m.Mentions) > 0 {
		target = m.Mentions[0]
	}

	user, err := b.userDb.GetUser(ctx, target.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			b.reply(m.ChannelID, fmt.Sprintf(
				"%v is not registered yet; try %vregister.",
				target.Username, b.cfg.CommandPrefix))
		} else {
			log.Printf("discordbot.elo: %v", err)
			b.reply(m.ChannelID, "Failed to look up rating.")
		}
		return
	}
	b.reply(m.ChannelID, fmt.Sprintf("%v's rating is **%v** (%vW / %vL).",
		user.Username, user.Rating, user.Wins, user.Losses))
}

func (b *Bot) leaderboardCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	const topN = 5

	users, err := b.userDb.ListUsers(ctx)
	if err != nil {
		log.Printf("discordbot.leaderboard: %v", err)
		b.reply(m.ChannelID, "Failed to fetch the leaderboard.")
		return
	}
	if len(users) == 0 {
		b.reply(m.ChannelID, fmt.Sprintf("No players registered yet; try %vregister.",
			b.cfg.CommandPrefix))
		return
	}

	byRating := make([]store.User, len(users))
	copy(byRating, users)
	sort.Slice(byRating, func(i, j int) bool {
		return byRating[i].Rating > byRating[j].Rating
	})
	if len(byRating) > topN {
		byRating = byRating[:topN]
	}

	var byWinRate []store.User
	for _, u := range users {
		if u.GamesPlayed > 0 {
			byWinRate = append(byWinRate, u)
		}
	}
	sort.Slice(byWinRate, func(i, j int) bool {
		ri, rj := byWinRate[i].WinRate(), byWinRate[j].WinRate()
		if ri != rj {
			return ri > rj
		}
		return byWinRate[i].GamesPlayed > byWinRate[j].GamesPlayed
	})
	if len(byWinRate) > topN {
		byWinRate = byWinRate[:topN]
	}

	var sb strings.Builder
	sb.WriteString("Top by rating:\n")
	for i, u := range byRating {
		sb.WriteString(fmt.Sprintf("%2d. %-20v %4v  %vW/%vL\n", i+1,
			u.Username, u.Rating, u.Wins, u.Losses))
	}
	if len(byWinRate) > 0 {
		sb.WriteString("\nTop by win rate:\n")
		for i, u := range byWinRate {
			sb.WriteString(fmt.Sprintf("%2d. %-20v %6v  %v games\n", i+1,
				u.Username, internal.FormatWinRate(u.WinRate()),
				u.GamesPlayed))
		}
	}
	// Wrap output in code block for monospace formatting in Discord
	b.reply(m.ChannelID, fmt.Sprintf("**Leaderboard**\n```\n%s```",
		truncateContent(sb.String())))
}

func (b *Bot) removeWinCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	b.adjustRecordCmd(ctx, m, "removewin", b.userDb.RemoveWin)
}

func (b *Bot) removeLossCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	b.adjustRecordCmd(ctx, m, "removeloss", b.userDb.RemoveLoss)
}

func (b *Bot) adjustRecordCmd(ctx context.Context, m *discordgo.MessageCreate,
	op string, adjust func(context.Context, string) error) {

	if !b.IsAuthority(ctx, m.Author.ID, m.ChannelID) {
		b.reply(m.ChannelID, "Only a moderator can adjust player records.")
		return
	}
	target := m.Author
	if len(m.Mentions) > 0 {
		target = m.Mentions[0]
	}

	if err := adjust(ctx, target.ID); err != nil {
		log.Printf("discordbot.%v: %v", op, err)
		b.reply(m.ChannelID, fmt.Sprintf(
			"Could not adjust %v's record: %v", target.Username, err))
		return
	}
	user, err := b.userDb.GetUser(ctx, target.ID)
	if err != nil {
		log.Printf("discordbot.%v: %v", op, err)
		b.reply(m.ChannelID, "Record adjusted.")
		return
	}
	b.reply(m.ChannelID, fmt.Sprintf("%v's record is now %vW / %vL.",
		user.Username, user.Wins, user.Losses))
}

func (b *Bot) adjustEloCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	if !b.IsAuthority(ctx, m.Author.ID, m.ChannelID) {
		b.reply(m.ChannelID, "Only a moderator can adjust ratings.")
		return
	}
	if len(m.Mentions) == 0 || len(args) < 2 {
		b.reply(m.ChannelID, fmt.Sprintf("Usage: %vadjustelo @user <change>",
			b.cfg.CommandPrefix))
		return
	}
	target := m.Mentions[0]
	change, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		b.reply(m.ChannelID, fmt.Sprintf("Bad rating change %q.",
			args[len(args)-1]))
		return
	}

	if err := b.userDb.AdjustRating(ctx, target.ID, change); err != nil {
		log.Printf("discordbot.adjustelo: %v", err)
		if errors.Is(err, store.ErrNotFound) {
			b.reply(m.ChannelID, fmt.Sprintf("%v is not registered yet.",
				target.Username))
		} else {
			b.reply(m.ChannelID, "Failed to adjust rating.")
		}
		return
	}
	user, err := b.userDb.GetUser(ctx, target.ID)
	if err != nil {
		log.Printf("discordbot.adjustelo: %v", err)
		b.reply(m.ChannelID, "Rating adjusted.")
		return
	}
	b.reply(m.ChannelID, fmt.Sprintf("%v's rating is now **%v**.",
		user.Username, user.Rating))
}

//go:embed help.md
var helpText string

func (b *Bot) helpCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	b.reply(m.ChannelID, truncateContent(helpText))
}

func (b *Bot) pingCmd(ctx context.Context, m *discordgo.MessageCreate,
	args []string) {

	b.reply(m.ChannelID, "Pong!")
}

// ensureRegistered upserts the discord user into the store, creating the
// default-rated row on first contact.
func (b *Bot) ensureRegistered(ctx context.Context,
	u *discordgo.User) (store.User, error) {

	return b.userDb.EnsureRegistered(ctx, store.User{
		ID:        u.ID,
		Username:  u.Username,
		Tag:       u.String(),
		AvatarURL: u.AvatarURL(""),
	})
}

func (b *Bot) reply(channelID, content string) {
	if _, err := b.dg.ChannelMessageSend(channelID, content); err != nil {
		log.Printf("discordbot.reply: failed to send message: %v", err)
	}
}

// https://discord.com/developers/docs/resources/channel#create-message
// limits messages to 2k characters
func truncateContent(s string) string {
	const MsgLimit = 1988 // keep space for newlines and markdown
	runes := []rune(s)
	if len(runes) > MsgLimit {
		s = fmt.Sprintf("%v...", string(runes[:MsgLimit]))
	}
	return s
}
