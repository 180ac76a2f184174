/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package hub

import (
	"context"

	"github.com/mikeb26/customslobby-bot/lobby"
)

// OpenManualLobby registers a new manual session under handle. It fails
// with ErrSessionExists when a live session already uses the handle.
func (h *Hub) OpenManualLobby(ctx context.Context, handle, scope,
	creator string) (SessionView, error) {

	return h.open(ctx, handle, scope, creator, lobby.KindManual)
}

// OpenBalancedLobby registers a new balanced session under handle.
func (h *Hub) OpenBalancedLobby(ctx context.Context, handle, scope,
	creator string) (SessionView, error) {

	return h.open(ctx, handle, scope, creator, lobby.KindBalanced)
}

func (h *Hub) open(ctx context.Context, handle, scope, creator string,
	kind lobby.Kind) (SessionView, error) {

	reply := make(chan openReply, 1)
	msg := openMsg{
		ctx:     ctx,
		handle:  handle,
		scope:   scope,
		creator: creator,
		kind:    kind,
		reply:   reply,
	}
	select {
	case h.inbox <- msg:
	case <-h.ctx.Done():
		return SessionView{}, h.ctx.Err()
	case <-ctx.Done():
		return SessionView{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.view, r.err
	case <-ctx.Done():
		return SessionView{}, ctx.Err()
	}
}

// Enroll adds the participant to the session. side selects the team for
// manual sessions and is ignored for balanced ones.
func (h *Hub) Enroll(ctx context.Context, handle string,
	p lobby.Participant, side lobby.Side) error {

	sa, err := h.lookup(handle)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	return sa.request(ctx, enrollMsg{ctx: ctx, participant: p, side: side,
		reply: reply}, reply)
}

// Leave removes the identity from the session's rosters or pool.
func (h *Hub) Leave(ctx context.Context, handle, id string) error {
	sa, err := h.lookup(handle)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	return sa.request(ctx, leaveMsg{ctx: ctx, id: id, reply: reply}, reply)
}

// ForceStart begins the start flow without waiting for full teams: manual
// sessions move to awaiting confirmation, balanced sessions split and
// become active. Only the session creator or an authority may request it.
func (h *Hub) ForceStart(ctx context.Context, handle, requester string) error {
	sa, err := h.lookup(handle)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	return sa.request(ctx, forceStartMsg{ctx: ctx, requester: requester,
		reply: reply}, reply)
}

// Confirm is the authority approval that moves an awaiting manual session
// to active.
func (h *Hub) Confirm(ctx context.Context, handle, approver string) error {
	sa, err := h.lookup(handle)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	return sa.request(ctx, confirmMsg{ctx: ctx, approver: approver,
		accept: true, reply: reply}, reply)
}

// Reject returns an awaiting manual session to open enrollment without
// losing membership.
func (h *Hub) Reject(ctx context.Context, handle, approver string) error {
	sa, err := h.lookup(handle)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	return sa.request(ctx, confirmMsg{ctx: ctx, approver: approver,
		accept: false, reply: reply}, reply)
}

// SelectWinner records which side won an active session, applies the
// rating adjustment and destroys the session. A non-nil error of type
// *rating.PartialError means the result stands but some participants'
// stats could not be persisted.
func (h *Hub) SelectWinner(ctx context.Context, handle string,
	side lobby.Side, approver string) error {

	sa, err := h.lookup(handle)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	return sa.request(ctx, selectWinnerMsg{ctx: ctx, side: side,
		approver: approver, reply: reply}, reply)
}

// Reshuffle re-partitions an active balanced session.
func (h *Hub) Reshuffle(ctx context.Context, handle, approver string) error {
	sa, err := h.lookup(handle)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	return sa.request(ctx, reshuffleMsg{ctx: ctx, approver: approver,
		reply: reply}, reply)
}

// View returns a snapshot of the live session for handle.
func (h *Hub) View(handle string) (SessionView, error) {
	sa, err := h.lookup(handle)
	if err != nil {
		return SessionView{}, err
	}
	reply := make(chan SessionView, 1)
	select {
	case sa.inbox <- viewMsg{reply: reply}:
	case <-sa.ctx.Done():
		return SessionView{}, ErrSessionNotFound
	}
	select {
	case v := <-reply:
		return v, nil
	case <-sa.ctx.Done():
		select {
		case v := <-reply:
			return v, nil
		default:
			return SessionView{}, ErrSessionNotFound
		}
	}
}

// FindByScope returns a snapshot of the most recently opened live session
// in the scope.
func (h *Hub) FindByScope(scope string) (SessionView, error) {
	reply := make(chan *session, 1)
	select {
	case h.inbox <- lookupScopeMsg{scope: scope, reply: reply}:
	case <-h.ctx.Done():
		return SessionView{}, h.ctx.Err()
	}
	sa := <-reply
	if sa == nil {
		return SessionView{}, ErrSessionNotFound
	}
	return h.View(sa.sess.Handle)
}

// RequestUndo opens an undo confirmation for the scope's most recent
// completed result. The ledger entry is only consumed when an authority
// confirms before the timeout.
func (h *Hub) RequestUndo(ctx context.Context, scope, requester string) error {
	reply := make(chan error, 1)
	msg := requestUndoMsg{ctx: ctx, scope: scope, requester: requester,
		reply: reply}
	return h.send(ctx, msg, reply)
}

// ConfirmUndo resolves a pending undo confirmation by reversing the
// recorded result.
func (h *Hub) ConfirmUndo(ctx context.Context, scope, approver string) error {
	reply := make(chan error, 1)
	msg := resolveUndoMsg{ctx: ctx, scope: scope, approver: approver,
		accept: true, reply: reply}
	return h.send(ctx, msg, reply)
}

// CancelUndo resolves a pending undo confirmation without reversing
// anything; the ledger entry stays eligible for a future attempt.
func (h *Hub) CancelUndo(ctx context.Context, scope, approver string) error {
	reply := make(chan error, 1)
	msg := resolveUndoMsg{ctx: ctx, scope: scope, approver: approver,
		accept: false, reply: reply}
	return h.send(ctx, msg, reply)
}

// Shutdown stops all session actors and the hub loop.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- shutdownMsg{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) lookup(handle string) (*session, error) {
	reply := make(chan *session, 1)
	select {
	case h.inbox <- lookupMsg{handle: handle, reply: reply}:
	case <-h.ctx.Done():
		return nil, h.ctx.Err()
	}
	sa := <-reply
	if sa == nil {
		return nil, ErrSessionNotFound
	}
	return sa, nil
}

func (h *Hub) send(ctx context.Context, msg hubMsg, reply chan error) error {
	select {
	case h.inbox <- msg:
	case <-h.ctx.Done():
		return h.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
