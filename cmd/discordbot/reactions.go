/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/mikeb26/customslobby-bot/hub"
	"github.com/mikeb26/customslobby-bot/internal"
	"github.com/mikeb26/customslobby-bot/lobby"
	"github.com/mikeb26/customslobby-bot/rating"
)

func (b *Bot) reactionAdd(s *discordgo.Session,
	r *discordgo.MessageReactionAdd) {

	if s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}
	tm, ok := b.tracker.lookup(r.MessageID)
	if !ok {
		return
	}

	ctx := context.Background()
	switch tm.kind {
	case msgLobby:
		b.lobbyReaction(ctx, tm, r)
	case msgConfirm:
		b.confirmReaction(ctx, tm, r)
	case msgGame:
		b.gameReaction(ctx, tm, r)
	case msgUndo:
		b.undoReaction(ctx, tm, r)
	}
}

// reactionRemove only matters on lobby prompts, where removing an
// enrollment reaction leaves the lobby.
func (b *Bot) reactionRemove(s *discordgo.Session,
	r *discordgo.MessageReactionRemove) {

	if s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}
	tm, ok := b.tracker.lookup(r.MessageID)
	if !ok || tm.kind != msgLobby {
		return
	}
	if !isEnrollEmoji(r.Emoji.Name) {
		return
	}

	err := b.hub.Leave(context.Background(), tm.handle, r.UserID)
	if err != nil && !errors.Is(err, hub.ErrSessionNotFound) &&
		!errors.Is(err, lobby.ErrEnrollmentClosed) {
		log.Printf("discordbot.leave: %v", err)
	}
}

func isEnrollEmoji(name string) bool {
	return name == emojiTeamA || name == emojiTeamB || name == emojiJoin
}

func (b *Bot) lobbyReaction(ctx context.Context, tm trackedMsg,
	r *discordgo.MessageReactionAdd) {

	var side lobby.Side
	switch r.Emoji.Name {
	case emojiTeamA:
		side = lobby.SideA
	case emojiTeamB:
		side = lobby.SideB
	case emojiJoin:
		side = lobby.SideNone
	default:
		return
	}

	u, err := b.reactingUser(r)
	if err != nil {
		log.Printf("discordbot.enroll: failed to resolve user %v: %v",
			r.UserID, err)
		return
	}
	user, err := b.ensureRegistered(ctx, u)
	if err != nil {
		log.Printf("discordbot.enroll: %v", err)
		b.dropReaction(r)
		return
	}

	err = b.hub.Enroll(ctx, tm.handle, lobby.Participant{
		ID:         user.ID,
		Username:   user.Username,
		GameHandle: user.GameHandle,
		Rating:     user.Rating,
	}, side)
	if err != nil {
		switch {
		case errors.Is(err, lobby.ErrRosterFull):
			b.reply(tm.scope, fmt.Sprintf("%v that team is full.",
				internal.Mention(r.UserID)))
		case errors.Is(err, lobby.ErrEnrollmentClosed),
			errors.Is(err, hub.ErrSessionNotFound):
			// lobby already started or tore down; just drop the reaction
		default:
			log.Printf("discordbot.enroll: %v", err)
		}
		b.dropReaction(r)
	}
}

func (b *Bot) confirmReaction(ctx context.Context, tm trackedMsg,
	r *discordgo.MessageReactionAdd) {

	var err error
	switch r.Emoji.Name {
	case emojiJoin:
		err = b.hub.Confirm(ctx, tm.handle, r.UserID)
	case emojiReject:
		err = b.hub.Reject(ctx, tm.handle, r.UserID)
	default:
		return
	}

	if err != nil {
		if errors.Is(err, hub.ErrNotAuthorized) {
			b.dropReaction(r)
		} else if !errors.Is(err, hub.ErrSessionNotFound) &&
			!errors.Is(err, lobby.ErrInvalidTransition) {
			log.Printf("discordbot.confirm: %v", err)
		}
	}
}

func (b *Bot) gameReaction(ctx context.Context, tm trackedMsg,
	r *discordgo.MessageReactionAdd) {

	var err error
	switch r.Emoji.Name {
	case emojiTeamA:
		err = b.hub.SelectWinner(ctx, tm.handle, lobby.SideA, r.UserID)
	case emojiTeamB:
		err = b.hub.SelectWinner(ctx, tm.handle, lobby.SideB, r.UserID)
	case emojiReshuffle:
		err = b.hub.Reshuffle(ctx, tm.handle, r.UserID)
	default:
		return
	}

	if err != nil {
		var partial *rating.PartialError
		switch {
		case errors.Is(err, hub.ErrNotAuthorized):
			b.dropReaction(r)
		case errors.As(err, &partial):
			// already surfaced via the result notification
			log.Printf("discordbot.result: partial persist for %v: %v",
				tm.handle, err)
		case errors.Is(err, hub.ErrSessionNotFound),
			errors.Is(err, lobby.ErrInvalidTransition):
			// stale prompt
		default:
			log.Printf("discordbot.result: %v", err)
		}
	}
}

func (b *Bot) undoReaction(ctx context.Context, tm trackedMsg,
	r *discordgo.MessageReactionAdd) {

	var err error
	switch r.Emoji.Name {
	case emojiJoin:
		err = b.hub.ConfirmUndo(ctx, tm.scope, r.UserID)
	case emojiReject:
		err = b.hub.CancelUndo(ctx, tm.scope, r.UserID)
	default:
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, hub.ErrNotAuthorized):
			b.dropReaction(r)
		case errors.Is(err, hub.ErrNoPendingUndo):
			// expired or already resolved
		default:
			log.Printf("discordbot.undo: %v", err)
		}
	}
}

// reactingUser resolves the full user behind a reaction event; guild
// reactions carry the member inline, DMs require a lookup.
func (b *Bot) reactingUser(r *discordgo.MessageReactionAdd) (*discordgo.User,
	error) {

	if r.Member != nil && r.Member.User != nil {
		return r.Member.User, nil
	}
	return b.dg.User(r.UserID)
}

// dropReaction removes a user's reaction after a rejected action so the
// prompt keeps reflecting actual state.
func (b *Bot) dropReaction(r *discordgo.MessageReactionAdd) {
	err := b.dg.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.Name,
		r.UserID)
	if err != nil {
		log.Printf("discordbot.react: failed to remove reaction: %v", err)
	}
}
