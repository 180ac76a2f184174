/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package hub

import (
	"context"
	"log"
	"time"

	"github.com/mikeb26/customslobby-bot/lobby"
	"github.com/mikeb26/customslobby-bot/rating"
)

type sessMsg interface{ isSessMsg() }

type enrollMsg struct {
	ctx         context.Context
	participant lobby.Participant
	side        lobby.Side
	reply       chan error
}

type leaveMsg struct {
	ctx   context.Context
	id    string
	reply chan error
}

type forceStartMsg struct {
	ctx       context.Context
	requester string
	reply     chan error
}

type confirmMsg struct {
	ctx      context.Context
	approver string
	accept   bool
	reply    chan error
}

type selectWinnerMsg struct {
	ctx      context.Context
	side     lobby.Side
	approver string
	reply    chan error
}

type reshuffleMsg struct {
	ctx      context.Context
	approver string
	reply    chan error
}

type viewMsg struct {
	reply chan SessionView
}

func (enrollMsg) isSessMsg()       {}
func (leaveMsg) isSessMsg()        {}
func (forceStartMsg) isSessMsg()   {}
func (confirmMsg) isSessMsg()      {}
func (selectWinnerMsg) isSessMsg() {}
func (reshuffleMsg) isSessMsg()    {}
func (viewMsg) isSessMsg()         {}

// session is the actor owning one lobby.Session. All mutation of the
// underlying state happens on its goroutine, in arrival order, so two
// near-simultaneous events filling the last roster slot cannot both
// succeed.
type session struct {
	hub       *Hub
	inbox     chan sessMsg
	sess      *lobby.Session
	createdAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

func newSession(h *Hub, sess *lobby.Session) *session {
	ctx, cancel := context.WithCancel(h.ctx)
	sa := &session{
		hub:       h,
		inbox:     make(chan sessMsg, 64),
		sess:      sess,
		createdAt: h.deps.Clock(),
		ctx:       ctx,
		cancel:    cancel,
	}
	go sa.loop()
	return sa
}

func (sa *session) scope() string { return sa.sess.Scope }

func (sa *session) stop() { sa.cancel() }

// request delivers m to the actor and waits for the error reply. It fails
// with ErrSessionNotFound when the actor has already been destroyed.
func (sa *session) request(ctx context.Context, m sessMsg, reply chan error) error {
	select {
	case sa.inbox <- m:
	case <-sa.ctx.Done():
		return ErrSessionNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-sa.ctx.Done():
		// The actor may have replied just before shutting down.
		select {
		case err := <-reply:
			return err
		default:
			return ErrSessionNotFound
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sa *session) loop() {
	for {
		select {
		case <-sa.ctx.Done():
			return

		case m := <-sa.inbox:
			switch msg := m.(type) {
			case enrollMsg:
				msg.reply <- sa.handleEnroll(msg)
			case leaveMsg:
				msg.reply <- sa.handleLeave(msg)
			case forceStartMsg:
				msg.reply <- sa.handleForceStart(msg)
			case confirmMsg:
				msg.reply <- sa.handleConfirm(msg)
			case selectWinnerMsg:
				msg.reply <- sa.handleSelectWinner(msg)
			case reshuffleMsg:
				msg.reply <- sa.handleReshuffle(msg)
			case viewMsg:
				msg.reply <- snapshot(sa.sess, sa.createdAt)
			}
		}
	}
}

func (sa *session) view() SessionView {
	return snapshot(sa.sess, sa.createdAt)
}

func (sa *session) handleEnroll(msg enrollMsg) error {
	if err := sa.sess.Enroll(msg.participant, msg.side); err != nil {
		return err
	}
	sa.hub.deps.Notifier.LobbyUpdated(msg.ctx, sa.view())

	// Both manual sides filling up triggers the confirmation request
	// automatically.
	if sa.sess.ReadyForConfirmation() {
		if err := sa.sess.RequestConfirmation(); err == nil {
			sa.hub.deps.Notifier.ConfirmationRequested(msg.ctx, sa.view())
		}
	}
	return nil
}

func (sa *session) handleLeave(msg leaveMsg) error {
	if err := sa.sess.Leave(msg.id); err != nil {
		return err
	}
	sa.hub.deps.Notifier.LobbyUpdated(msg.ctx, sa.view())
	return nil
}

// handleForceStart covers both kinds: a manual session moves to awaiting
// confirmation, a balanced session splits its pool and starts. The creator
// or any authority may request it.
func (sa *session) handleForceStart(msg forceStartMsg) error {
	if !sa.creatorOrAuthority(msg.ctx, msg.requester) {
		return ErrNotAuthorized
	}

	if sa.sess.Kind == lobby.KindBalanced {
		if err := sa.sess.StartBalanced(); err != nil {
			return err
		}
		log.Printf("hub.start: balanced session %v started %vv%v",
			sa.sess.Handle, sa.sess.TeamA().Len(), sa.sess.TeamB().Len())
		sa.hub.deps.Notifier.GameStarted(msg.ctx, sa.view())
		return nil
	}

	if err := sa.sess.RequestConfirmation(); err != nil {
		return err
	}
	sa.hub.deps.Notifier.ConfirmationRequested(msg.ctx, sa.view())
	return nil
}

func (sa *session) handleConfirm(msg confirmMsg) error {
	if !sa.hub.deps.Auth.IsAuthority(msg.ctx, msg.approver, sa.sess.Scope) {
		return ErrNotAuthorized
	}

	if !msg.accept {
		if err := sa.sess.Reject(); err != nil {
			return err
		}
		sa.hub.deps.Notifier.ConfirmationCancelled(msg.ctx, sa.view())
		return nil
	}

	if err := sa.sess.Confirm(); err != nil {
		return err
	}
	log.Printf("hub.confirm: manual session %v started %vv%v",
		sa.sess.Handle, sa.sess.TeamA().Len(), sa.sess.TeamB().Len())
	sa.hub.deps.Notifier.GameStarted(msg.ctx, sa.view())
	return nil
}

func (sa *session) handleReshuffle(msg reshuffleMsg) error {
	if !sa.hub.deps.Auth.IsAuthority(msg.ctx, msg.approver, sa.sess.Scope) {
		return ErrNotAuthorized
	}
	err := sa.sess.Reshuffle(sa.hub.deps.ReshuffleIterations, sa.hub.deps.Rand)
	if err != nil {
		return err
	}
	sa.hub.deps.Notifier.TeamsReshuffled(msg.ctx, sa.view())
	return nil
}

// handleSelectWinner finalizes the session. The in-memory transition
// commits first; per-participant persistence follows and may partially
// fail, in which case the result and ledger entry stand and the error is
// surfaced for the authority (undo corrects each participant
// independently).
func (sa *session) handleSelectWinner(msg selectWinnerMsg) error {
	if !sa.hub.deps.Auth.IsAuthority(msg.ctx, msg.approver, sa.sess.Scope) {
		return ErrNotAuthorized
	}

	changed, err := sa.sess.Complete(msg.side)
	if err != nil {
		return err
	}
	if !changed {
		// Already resolved; duplicate winner selections are ignored.
		return nil
	}

	teamA := sa.sess.TeamA().Participants()
	teamB := sa.sess.TeamB().Participants()
	res := lobby.CompletedResult{
		Handle:      sa.sess.Handle,
		Scope:       sa.sess.Scope,
		TeamA:       teamA,
		TeamB:       teamB,
		Winner:      msg.side,
		Rated:       sa.sess.Rated(),
		CompletedAt: sa.hub.deps.Clock(),
	}

	winnerIDs := participantIDs(res.Winners())
	loserIDs := participantIDs(res.Losers())

	if res.Rated {
		winAvg, loseAvg, err := rating.TeamAverages(msg.ctx,
			sa.hub.deps.Store, winnerIDs, loserIDs)
		if err != nil {
			// Fall back to the join-time snapshots rather than
			// blocking the result on a store read.
			log.Printf("hub.result: rating fetch failed for %v, using join-time snapshots: %v",
				sa.sess.Handle, err)
			winAvg = float64(lobby.AverageRating(res.Winners()))
			loseAvg = float64(lobby.AverageRating(res.Losers()))
		}
		res.RatingDelta = rating.Delta(winAvg, loseAvg, rating.DefaultKFactor)
	}

	applyErr := rating.ApplyResult(msg.ctx, sa.hub.deps.Store, winnerIDs,
		loserIDs, res.RatingDelta)
	if applyErr != nil {
		log.Printf("hub.result: partial persistence for %v: %v",
			sa.sess.Handle, applyErr)
	}

	sa.hub.ledger.Record(res)

	if sa.hub.deps.Archive != nil {
		if err := sa.hub.deps.Archive.Archive(msg.ctx, res); err != nil {
			log.Printf("hub.result: archive failed for %v: %v",
				sa.sess.Handle, err)
		}
	}

	sa.hub.deps.Notifier.ResultRecorded(msg.ctx, res, applyErr)
	log.Printf("hub.result: session %v completed, %v won (delta %v, rated %v)",
		sa.sess.Handle, msg.side, res.RatingDelta, res.Rated)

	// The session is destroyed the instant it completes; the
	// CompletedResult in the ledger is what survives.
	select {
	case sa.hub.inbox <- removeMsg{handle: sa.sess.Handle}:
	case <-sa.hub.ctx.Done():
	}

	return applyErr
}

func (sa *session) creatorOrAuthority(ctx context.Context, identity string) bool {
	if identity == sa.sess.Creator {
		return true
	}
	return sa.hub.deps.Auth.IsAuthority(ctx, identity, sa.sess.Scope)
}
