/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package hub owns the process-wide session registry and the per-session
// event serialization the core requires. The Hub itself is an actor: a
// single goroutine owns the handle-to-session map and the scope-level undo
// flow, and every live session is its own actor with a typed inbox, so two
// near-simultaneous events for the same session can never race on its
// rosters. Collaborators (user store, authority check, presentation
// surface, result archive) are injected through Deps.
package hub

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/mikeb26/customslobby-bot/history"
	"github.com/mikeb26/customslobby-bot/lobby"
	"github.com/mikeb26/customslobby-bot/rating"
	"github.com/mikeb26/customslobby-bot/store"
)

// DefaultUndoTimeout bounds how long an undo confirmation prompt stays
// actionable before it expires and the ledger entry is left untouched.
const DefaultUndoTimeout = 30 * time.Second

var (
	// ErrSessionExists indicates a live session already exists for the
	// handle.
	ErrSessionExists = errors.New("a session already exists for this handle")
	// ErrSessionNotFound indicates no live session exists for the handle
	// or scope.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotAuthorized indicates a gated action was attempted by an
	// identity that is neither an authority nor (where permitted) the
	// session creator.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrUndoPending indicates the scope already has an undo confirmation
	// awaiting resolution.
	ErrUndoPending = errors.New("an undo confirmation is already pending")
	// ErrNoPendingUndo indicates an undo resolution arrived with no
	// pending confirmation, e.g. after it expired.
	ErrNoPendingUndo = errors.New("no undo confirmation is pending")
)

// Authorizer reports whether an identity may perform gated actions
// (confirmations, winner selection, undo) within a scope.
type Authorizer interface {
	IsAuthority(ctx context.Context, identity, scope string) bool
}

// Notifier is the presentation surface. Calls are made synchronously from
// the owning actor so prompts are sequenced, but notification failures
// never affect session state; implementations log their own errors.
type Notifier interface {
	// LobbyUpdated fires after any enrollment change while a session is
	// open, and after a rejected confirmation reopens it.
	LobbyUpdated(ctx context.Context, view SessionView)
	// ConfirmationRequested fires when a manual session is ready to
	// start and awaits an authority's confirmation.
	ConfirmationRequested(ctx context.Context, view SessionView)
	// ConfirmationCancelled fires when an authority rejects the start.
	ConfirmationCancelled(ctx context.Context, view SessionView)
	// GameStarted fires when a session becomes active and awaits a
	// winner selection.
	GameStarted(ctx context.Context, view SessionView)
	// TeamsReshuffled fires when an active balanced session re-splits.
	TeamsReshuffled(ctx context.Context, view SessionView)
	// ResultRecorded fires once a winner is recorded. persistErr is the
	// *rating.PartialError when some participants' stats failed to
	// persist, else nil.
	ResultRecorded(ctx context.Context, res lobby.CompletedResult, persistErr error)
	// UndoRequested fires when an undo confirmation opens.
	UndoRequested(ctx context.Context, res lobby.CompletedResult)
	// UndoCompleted fires after a confirmed undo reversed the result.
	UndoCompleted(ctx context.Context, res lobby.CompletedResult, persistErr error)
	// UndoCancelled fires when the pending undo is explicitly rejected.
	UndoCancelled(ctx context.Context, scope string)
	// UndoExpired fires when the pending undo times out unresolved.
	UndoExpired(ctx context.Context, scope string)
}

// ResultArchiver persists completed results outside the process for audit.
// Archival is best effort; the core never reads archives back.
type ResultArchiver interface {
	Archive(ctx context.Context, res lobby.CompletedResult) error
}

// Deps are the collaborators and tunables a Hub operates with. Store,
// Notifier and Auth are required; the rest default sensibly.
type Deps struct {
	Store    store.UserStore
	Notifier Notifier
	Auth     Authorizer

	// Archive receives completed results when non-nil.
	Archive ResultArchiver
	// Clock stamps completed results; defaults to time.Now.
	Clock func() time.Time
	// Rand drives reshuffle candidate search; defaults to the global
	// math/rand source. Tests inject a seeded source.
	Rand *rand.Rand
	// UndoTimeout defaults to DefaultUndoTimeout.
	UndoTimeout time.Duration
	// ReshuffleIterations defaults to lobby.DefaultReshuffleIterations.
	ReshuffleIterations int
}

type hubMsg interface{ isHubMsg() }

type openMsg struct {
	ctx     context.Context
	handle  string
	scope   string
	creator string
	kind    lobby.Kind
	reply   chan openReply
}

type openReply struct {
	view SessionView
	err  error
}

type lookupMsg struct {
	handle string
	reply  chan *session
}

type lookupScopeMsg struct {
	scope string
	reply chan *session
}

type removeMsg struct {
	handle string
}

type requestUndoMsg struct {
	ctx       context.Context
	scope     string
	requester string
	reply     chan error
}

type resolveUndoMsg struct {
	ctx      context.Context
	scope    string
	approver string
	accept   bool
	reply    chan error
}

type expireUndoMsg struct {
	scope string
	gen   int
}

type shutdownMsg struct{}

func (openMsg) isHubMsg()        {}
func (lookupMsg) isHubMsg()      {}
func (lookupScopeMsg) isHubMsg() {}
func (removeMsg) isHubMsg()      {}
func (requestUndoMsg) isHubMsg() {}
func (resolveUndoMsg) isHubMsg() {}
func (expireUndoMsg) isHubMsg()  {}
func (shutdownMsg) isHubMsg()    {}

type pendingUndo struct {
	res       lobby.CompletedResult
	requester string
	gen       int
	timer     *time.Timer
}

// Hub routes external events to live sessions and handles scope-level undo.
type Hub struct {
	inbox    chan hubMsg
	sessions map[string]*session
	ledger   *history.Ledger
	pending  map[string]*pendingUndo
	undoGen  int
	deps     Deps
	ctx      context.Context
	cancel   context.CancelFunc
}

// New starts a Hub. The Hub runs until parent is cancelled or Shutdown is
// called.
func New(parent context.Context, deps Deps) *Hub {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.UndoTimeout <= 0 {
		deps.UndoTimeout = DefaultUndoTimeout
	}
	if deps.ReshuffleIterations <= 0 {
		deps.ReshuffleIterations = lobby.DefaultReshuffleIterations
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan hubMsg, 64),
		sessions: make(map[string]*session),
		ledger:   history.NewLedger(),
		pending:  make(map[string]*pendingUndo),
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

// Ledger exposes the history ledger, e.g. so alternate front ends can
// inspect what is undoable.
func (h *Hub) Ledger() *history.Ledger { return h.ledger }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case openMsg:
				msg.reply <- h.handleOpen(msg)

			case lookupMsg:
				msg.reply <- h.sessions[msg.handle]

			case lookupScopeMsg:
				msg.reply <- h.latestInScope(msg.scope)

			case removeMsg:
				if sa := h.sessions[msg.handle]; sa != nil {
					sa.stop()
					delete(h.sessions, msg.handle)
				}

			case requestUndoMsg:
				msg.reply <- h.handleRequestUndo(msg)

			case resolveUndoMsg:
				msg.reply <- h.handleResolveUndo(msg)

			case expireUndoMsg:
				h.handleExpireUndo(msg)

			case shutdownMsg:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for handle, sa := range h.sessions {
		sa.stop()
		delete(h.sessions, handle)
	}
	for scope, p := range h.pending {
		p.timer.Stop()
		delete(h.pending, scope)
	}
	h.cancel()
}

func (h *Hub) handleOpen(msg openMsg) openReply {
	if h.sessions[msg.handle] != nil {
		return openReply{err: ErrSessionExists}
	}

	var sess *lobby.Session
	if msg.kind == lobby.KindBalanced {
		sess = lobby.NewBalancedSession(msg.handle, msg.scope, msg.creator)
	} else {
		sess = lobby.NewManualSession(msg.handle, msg.scope, msg.creator)
	}

	sa := newSession(h, sess)
	h.sessions[msg.handle] = sa
	log.Printf("hub.open: created %v session %v in scope %v", msg.kind,
		msg.handle, msg.scope)
	return openReply{view: snapshot(sess, sa.createdAt)}
}

// latestInScope returns the most recently opened live session in the scope,
// or nil. Multiple live handles per scope are permitted; channel-level
// commands act on the newest.
func (h *Hub) latestInScope(scope string) *session {
	var newest *session
	for _, sa := range h.sessions {
		if sa.scope() != scope {
			continue
		}
		if newest == nil || sa.createdAt.After(newest.createdAt) {
			newest = sa
		}
	}
	return newest
}

func (h *Hub) handleRequestUndo(msg requestUndoMsg) error {
	if !h.deps.Auth.IsAuthority(msg.ctx, msg.requester, msg.scope) {
		return ErrNotAuthorized
	}
	if h.pending[msg.scope] != nil {
		return ErrUndoPending
	}
	res, err := h.ledger.Peek(msg.scope)
	if err != nil {
		return err
	}

	h.undoGen++
	gen := h.undoGen
	scope := msg.scope
	timer := time.AfterFunc(h.deps.UndoTimeout, func() {
		select {
		case h.inbox <- expireUndoMsg{scope: scope, gen: gen}:
		case <-h.ctx.Done():
		}
	})
	h.pending[scope] = &pendingUndo{
		res:       res,
		requester: msg.requester,
		gen:       gen,
		timer:     timer,
	}

	h.deps.Notifier.UndoRequested(msg.ctx, res)
	return nil
}

func (h *Hub) handleResolveUndo(msg resolveUndoMsg) error {
	p := h.pending[msg.scope]
	if p == nil {
		return ErrNoPendingUndo
	}
	if !h.deps.Auth.IsAuthority(msg.ctx, msg.approver, msg.scope) {
		return ErrNotAuthorized
	}

	p.timer.Stop()
	delete(h.pending, msg.scope)

	if !msg.accept {
		h.deps.Notifier.UndoCancelled(msg.ctx, msg.scope)
		return nil
	}

	res, err := h.ledger.Pop(msg.scope)
	if err != nil {
		return err
	}

	reverseErr := rating.ReverseResult(msg.ctx, h.deps.Store,
		participantIDs(res.Winners()), participantIDs(res.Losers()),
		res.RatingDelta)
	if reverseErr != nil {
		log.Printf("hub.undo: partial reversal for scope %v: %v",
			msg.scope, reverseErr)
	}

	h.deps.Notifier.UndoCompleted(msg.ctx, res, reverseErr)
	log.Printf("hub.undo: reversed result %v in scope %v (delta %v)",
		res.Handle, msg.scope, res.RatingDelta)
	return reverseErr
}

func (h *Hub) handleExpireUndo(msg expireUndoMsg) {
	p := h.pending[msg.scope]
	if p == nil || p.gen != msg.gen {
		return
	}
	delete(h.pending, msg.scope)
	h.deps.Notifier.UndoExpired(h.ctx, msg.scope)
	log.Printf("hub.undo: confirmation expired for scope %v", msg.scope)
}

func participantIDs(ps []lobby.Participant) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}
