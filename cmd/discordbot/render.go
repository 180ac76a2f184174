/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/mikeb26/customslobby-bot/hub"
	"github.com/mikeb26/customslobby-bot/internal"
	"github.com/mikeb26/customslobby-bot/lobby"
)

const (
	emojiTeamA     = "1️⃣"
	emojiTeamB     = "2️⃣"
	emojiJoin      = "✅"
	emojiReject    = "❌"
	emojiReshuffle = "\U0001F501" // 🔁
)

type msgKind int

const (
	msgLobby msgKind = iota
	msgConfirm
	msgGame
	msgUndo
)

type trackedMsg struct {
	kind   msgKind
	handle string
	scope  string
}

// msgTracker maps discord message IDs to their role in a session's flow so
// reaction events can be routed. Reaction handlers run on discordgo's event
// goroutines concurrently with the notifier callbacks.
type msgTracker struct {
	mu   sync.Mutex
	msgs map[string]trackedMsg
	// current lobby and game prompt per session handle, for in-place edits
	lobbyMsg map[string]string
	gameMsg  map[string]string
}

func newMsgTracker() *msgTracker {
	return &msgTracker{
		msgs:     make(map[string]trackedMsg),
		lobbyMsg: make(map[string]string),
		gameMsg:  make(map[string]string),
	}
}

func (t *msgTracker) track(msgID string, tm trackedMsg) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.msgs[msgID] = tm
	switch tm.kind {
	case msgLobby:
		t.lobbyMsg[tm.handle] = msgID
	case msgGame:
		t.gameMsg[tm.handle] = msgID
	}
}

func (t *msgTracker) lookup(msgID string) (trackedMsg, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tm, ok := t.msgs[msgID]
	return tm, ok
}

func (t *msgTracker) lobbyMsgID(handle string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.lobbyMsg[handle]
}

func (t *msgTracker) gameMsgID(handle string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.gameMsg[handle]
}

// forgetHandle drops every tracked message for a finished session.
func (t *msgTracker) forgetHandle(handle string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, tm := range t.msgs {
		if tm.handle == handle && tm.kind != msgUndo {
			delete(t.msgs, id)
		}
	}
	delete(t.lobbyMsg, handle)
	delete(t.gameMsg, handle)
}

// forgetUndo drops the pending undo prompt for a scope, if any.
func (t *msgTracker) forgetUndo(scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, tm := range t.msgs {
		if tm.kind == msgUndo && tm.scope == scope {
			delete(t.msgs, id)
		}
	}
}

// postLobby publishes the initial lobby prompt with its enrollment
// reactions and registers it for reaction routing.
func (b *Bot) postLobby(ctx context.Context, view hub.SessionView) {
	msg, err := b.dg.ChannelMessageSendEmbed(view.Scope, lobbyEmbed(view))
	if err != nil {
		log.Printf("discordbot.lobby: failed to post lobby for %v: %v",
			view.Handle, err)
		return
	}
	b.tracker.track(msg.ID, trackedMsg{kind: msgLobby, handle: view.Handle,
		scope: view.Scope})

	emojis := []string{emojiJoin}
	if view.Kind == lobby.KindManual {
		emojis = []string{emojiTeamA, emojiTeamB}
	}
	for _, e := range emojis {
		if err := b.dg.MessageReactionAdd(view.Scope, msg.ID, e); err != nil {
			log.Printf("discordbot.lobby: failed to seed reaction %v: %v", e,
				err)
		}
	}
}

// LobbyUpdated edits the lobby prompt in place to reflect the roster
// change.
func (b *Bot) LobbyUpdated(ctx context.Context, view hub.SessionView) {
	msgID := b.tracker.lobbyMsgID(view.Handle)
	if msgID == "" {
		b.postLobby(ctx, view)
		return
	}
	_, err := b.dg.ChannelMessageEditEmbed(view.Scope, msgID,
		lobbyEmbed(view))
	if err != nil {
		log.Printf("discordbot.lobby: failed to edit lobby for %v: %v",
			view.Handle, err)
	}
}

func (b *Bot) ConfirmationRequested(ctx context.Context,
	view hub.SessionView) {

	content := fmt.Sprintf(
		"Teams for **%v** are set. A moderator can react %v to start or %v to reopen the lobby.",
		sessionTitle(view.Kind), emojiJoin, emojiReject)
	msg, err := b.dg.ChannelMessageSend(view.Scope, content)
	if err != nil {
		log.Printf("discordbot.confirm: failed to post prompt for %v: %v",
			view.Handle, err)
		return
	}
	b.tracker.track(msg.ID, trackedMsg{kind: msgConfirm, handle: view.Handle,
		scope: view.Scope})
	for _, e := range []string{emojiJoin, emojiReject} {
		if err := b.dg.MessageReactionAdd(view.Scope, msg.ID, e); err != nil {
			log.Printf("discordbot.confirm: failed to seed reaction %v: %v",
				e, err)
		}
	}
}

func (b *Bot) ConfirmationCancelled(ctx context.Context,
	view hub.SessionView) {

	b.reply(view.Scope, "Start rejected; the lobby is open again.")
	b.LobbyUpdated(ctx, view)
}

// GameStarted publishes the active-game prompt carrying the winner
// selection reactions.
func (b *Bot) GameStarted(ctx context.Context, view hub.SessionView) {
	msg, err := b.dg.ChannelMessageSendEmbed(view.Scope, gameEmbed(view))
	if err != nil {
		log.Printf("discordbot.game: failed to post game for %v: %v",
			view.Handle, err)
		return
	}
	b.tracker.track(msg.ID, trackedMsg{kind: msgGame, handle: view.Handle,
		scope: view.Scope})

	emojis := []string{emojiTeamA, emojiTeamB}
	if view.Kind == lobby.KindBalanced {
		emojis = append(emojis, emojiReshuffle)
	}
	for _, e := range emojis {
		if err := b.dg.MessageReactionAdd(view.Scope, msg.ID, e); err != nil {
			log.Printf("discordbot.game: failed to seed reaction %v: %v", e,
				err)
		}
	}
}

func (b *Bot) TeamsReshuffled(ctx context.Context, view hub.SessionView) {
	msgID := b.tracker.gameMsgID(view.Handle)
	if msgID == "" {
		b.GameStarted(ctx, view)
		return
	}
	_, err := b.dg.ChannelMessageEditEmbed(view.Scope, msgID, gameEmbed(view))
	if err != nil {
		log.Printf("discordbot.game: failed to edit game for %v: %v",
			view.Handle, err)
	}
}

func (b *Bot) ResultRecorded(ctx context.Context, res lobby.CompletedResult,
	persistErr error) {

	b.tracker.forgetHandle(res.Handle)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**%v** wins!\n", res.Winner))
	if res.Rated {
		sb.WriteString(fmt.Sprintf(
			"Winners gain %v rating; losers lose %v.\n", res.RatingDelta,
			res.RatingDelta))
	} else {
		sb.WriteString("This game was unrated; no ratings changed.\n")
	}
	if persistErr != nil {
		sb.WriteString(
			"Some players' records could not be saved; a moderator may need to adjust them manually.\n")
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Game complete",
		Description: sb.String(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Team 1", Value: rosterLines(res.TeamA), Inline: true},
			{Name: "Team 2", Value: rosterLines(res.TeamB), Inline: true},
		},
	}
	if _, err := b.dg.ChannelMessageSendEmbed(res.Scope, embed); err != nil {
		log.Printf("discordbot.result: failed to post result for %v: %v",
			res.Handle, err)
	}
}

func (b *Bot) UndoRequested(ctx context.Context, res lobby.CompletedResult) {
	content := fmt.Sprintf(
		"Undo the last recorded game (won by **%v**)? A moderator can react %v to confirm or %v to cancel within %v.",
		res.Winner, emojiJoin, emojiReject, b.cfg.UndoTimeout)
	msg, err := b.dg.ChannelMessageSend(res.Scope, content)
	if err != nil {
		log.Printf("discordbot.undo: failed to post prompt for %v: %v",
			res.Scope, err)
		return
	}
	b.tracker.track(msg.ID, trackedMsg{kind: msgUndo, handle: res.Handle,
		scope: res.Scope})
	for _, e := range []string{emojiJoin, emojiReject} {
		if err := b.dg.MessageReactionAdd(res.Scope, msg.ID, e); err != nil {
			log.Printf("discordbot.undo: failed to seed reaction %v: %v", e,
				err)
		}
	}
}

func (b *Bot) UndoCompleted(ctx context.Context, res lobby.CompletedResult,
	persistErr error) {

	b.tracker.forgetUndo(res.Scope)
	content := fmt.Sprintf("Undid the game won by **%v**; ratings and records are restored.",
		res.Winner)
	if persistErr != nil {
		content += "\nSome players' records could not be restored; a moderator may need to adjust them manually."
	}
	b.reply(res.Scope, content)
}

func (b *Bot) UndoCancelled(ctx context.Context, scope string) {
	b.tracker.forgetUndo(scope)
	b.reply(scope, "Undo cancelled; the result stands.")
}

func (b *Bot) UndoExpired(ctx context.Context, scope string) {
	b.tracker.forgetUndo(scope)
	b.reply(scope, "Undo request expired; the result stands.")
}

func sessionTitle(kind lobby.Kind) string {
	if kind == lobby.KindBalanced {
		return "Balanced Game"
	}
	return "Custom Game"
}

func lobbyEmbed(view hub.SessionView) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%v Lobby", sessionTitle(view.Kind)),
	}
	if view.Kind == lobby.KindManual {
		embed.Description = fmt.Sprintf(
			"React %v to join Team 1 or %v to join Team 2. Remove your reaction to leave.",
			emojiTeamA, emojiTeamB)
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: fmt.Sprintf("Team 1 (%v/%v)", len(view.TeamA),
				lobby.TeamCapacity), Value: rosterLines(view.TeamA),
				Inline: true},
			{Name: fmt.Sprintf("Team 2 (%v/%v)", len(view.TeamB),
				lobby.TeamCapacity), Value: rosterLines(view.TeamB),
				Inline: true},
		}
	} else {
		embed.Description = fmt.Sprintf(
			"React %v to join the player pool. Remove your reaction to leave. Teams are split by rating at start.",
			emojiJoin)
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: fmt.Sprintf("Players (%v/%v)", len(view.Pool),
				lobby.PoolCapacity), Value: rosterLines(view.Pool)},
		}
	}
	return embed
}

func gameEmbed(view hub.SessionView) *discordgo.MessageEmbed {
	desc := fmt.Sprintf(
		"Game on! When finished, a moderator reacts %v or %v to record the winner.",
		emojiTeamA, emojiTeamB)
	if view.Kind == lobby.KindBalanced {
		desc += fmt.Sprintf(" React %v to reshuffle the teams.",
			emojiReshuffle)
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%v (Active)", sessionTitle(view.Kind)),
		Description: desc,
		Fields: []*discordgo.MessageEmbedField{
			{Name: fmt.Sprintf("Team 1 (avg %v)", view.TeamAAverage()),
				Value: rosterLines(view.TeamA), Inline: true},
			{Name: fmt.Sprintf("Team 2 (avg %v)", view.TeamBAverage()),
				Value: rosterLines(view.TeamB), Inline: true},
		},
	}
}

func rosterLines(ps []lobby.Participant) string {
	if len(ps) == 0 {
		return "*empty*"
	}
	var sb strings.Builder
	for _, p := range ps {
		sb.WriteString(fmt.Sprintf("%v (%v)\n", internal.Mention(p.ID),
			p.Rating))
	}
	return sb.String()
}
