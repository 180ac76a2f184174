/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mikeb26/customslobby-bot/history"
	"github.com/mikeb26/customslobby-bot/lobby"
	"github.com/mikeb26/customslobby-bot/rating"
	"github.com/mikeb26/customslobby-bot/store"
)

// memStore is an in-memory store.UserStore with optional injected failures.
type memStore struct {
	mu      sync.Mutex
	users   map[string]store.User
	failFor map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]store.User),
		failFor: make(map[string]error),
	}
}

func (ms *memStore) put(id string, rating int) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.users[id] = store.User{ID: id, Rating: rating}
}

func (ms *memStore) get(t *testing.T, id string) store.User {
	t.Helper()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	u, ok := ms.users[id]
	if !ok {
		t.Fatalf("no such user %v", id)
	}
	return u
}

func (ms *memStore) EnsureRegistered(ctx context.Context,
	u store.User) (store.User, error) {

	ms.mu.Lock()
	defer ms.mu.Unlock()
	got, ok := ms.users[u.ID]
	if !ok {
		u.Rating = store.DefaultRating
		ms.users[u.ID] = u
		return u, nil
	}
	return got, nil
}

func (ms *memStore) GetUser(ctx context.Context,
	id string) (store.User, error) {

	ms.mu.Lock()
	defer ms.mu.Unlock()
	u, ok := ms.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (ms *memStore) ListUsers(ctx context.Context) ([]store.User, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []store.User
	for _, u := range ms.users {
		out = append(out, u)
	}
	return out, nil
}

func (ms *memStore) LinkGameHandle(ctx context.Context, id,
	handle string) error {

	return nil
}

func (ms *memStore) ApplyResult(ctx context.Context, id string,
	ratingDelta int, won bool) error {

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.failFor[id]; err != nil {
		return err
	}
	u, ok := ms.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Rating += ratingDelta
	u.GamesPlayed++
	if won {
		u.Wins++
	} else {
		u.Losses++
	}
	ms.users[id] = u
	return nil
}

func (ms *memStore) ReverseResult(ctx context.Context, id string,
	ratingDelta int, hadWon bool) error {

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.failFor[id]; err != nil {
		return err
	}
	u, ok := ms.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Rating -= ratingDelta
	u.GamesPlayed--
	if hadWon {
		u.Wins--
	} else {
		u.Losses--
	}
	ms.users[id] = u
	return nil
}

func (ms *memStore) AdjustRating(ctx context.Context, id string,
	change int) error {

	return nil
}

func (ms *memStore) RemoveWin(ctx context.Context, id string) error {
	return nil
}

func (ms *memStore) RemoveLoss(ctx context.Context, id string) error {
	return nil
}

// recNotifier records the ordered event stream for assertions and exposes
// a channel for awaiting asynchronous events like undo expiry.
type recNotifier struct {
	mu     sync.Mutex
	names  []string
	events chan string

	lastResult     lobby.CompletedResult
	lastPersistErr error
}

func newRecNotifier() *recNotifier {
	return &recNotifier{events: make(chan string, 64)}
}

func (n *recNotifier) record(name string) {
	n.mu.Lock()
	n.names = append(n.names, name)
	n.mu.Unlock()
	n.events <- name
}

func (n *recNotifier) seen(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, got := range n.names {
		if got == name {
			return true
		}
	}
	return false
}

func (n *recNotifier) waitFor(t *testing.T, name string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-n.events:
			if got == name {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v event", name)
		}
	}
}

func (n *recNotifier) result() (lobby.CompletedResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastResult, n.lastPersistErr
}

func (n *recNotifier) LobbyUpdated(ctx context.Context, view SessionView) {
	n.record("lobbyUpdated")
}

func (n *recNotifier) ConfirmationRequested(ctx context.Context,
	view SessionView) {

	n.record("confirmationRequested")
}

func (n *recNotifier) ConfirmationCancelled(ctx context.Context,
	view SessionView) {

	n.record("confirmationCancelled")
}

func (n *recNotifier) GameStarted(ctx context.Context, view SessionView) {
	n.record("gameStarted")
}

func (n *recNotifier) TeamsReshuffled(ctx context.Context,
	view SessionView) {

	n.record("teamsReshuffled")
}

func (n *recNotifier) ResultRecorded(ctx context.Context,
	res lobby.CompletedResult, persistErr error) {

	n.mu.Lock()
	n.lastResult = res
	n.lastPersistErr = persistErr
	n.mu.Unlock()
	n.record("resultRecorded")
}

func (n *recNotifier) UndoRequested(ctx context.Context,
	res lobby.CompletedResult) {

	n.record("undoRequested")
}

func (n *recNotifier) UndoCompleted(ctx context.Context,
	res lobby.CompletedResult, persistErr error) {

	n.record("undoCompleted")
}

func (n *recNotifier) UndoCancelled(ctx context.Context, scope string) {
	n.record("undoCancelled")
}

func (n *recNotifier) UndoExpired(ctx context.Context, scope string) {
	n.record("undoExpired")
}

// setAuth authorizes a fixed set of identities in every scope.
type setAuth map[string]bool

func (a setAuth) IsAuthority(ctx context.Context, identity,
	scope string) bool {

	return a[identity]
}

type testRig struct {
	hub      *Hub
	store    *memStore
	notifier *recNotifier
	cancel   context.CancelFunc
}

func newTestRig(t *testing.T, mut func(*Deps)) *testRig {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	rig := &testRig{
		store:    newMemStore(),
		notifier: newRecNotifier(),
		cancel:   cancel,
	}
	deps := Deps{
		Store:    rig.store,
		Notifier: rig.notifier,
		Auth:     setAuth{"mod": true},
	}
	if mut != nil {
		mut(&deps)
	}
	rig.hub = New(ctx, deps)
	t.Cleanup(func() {
		rig.hub.Shutdown()
		cancel()
	})
	return rig
}

func player(n int) lobby.Participant {
	return lobby.Participant{
		ID:       fmt.Sprintf("u%v", n),
		Username: fmt.Sprintf("player%v", n),
		Rating:   1500,
	}
}

func TestOpenAndRegistry(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	view, err := rig.hub.OpenManualLobby(ctx, "chan1", "chan1", "creator")
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	if view.Kind != lobby.KindManual || view.State != lobby.StateOpen {
		t.Fatalf("unexpected initial view: %+v", view)
	}

	_, err = rig.hub.OpenManualLobby(ctx, "chan1", "chan1", "other")
	if !errors.Is(err, ErrSessionExists) {
		t.Fatalf("duplicate open = %v; want ErrSessionExists", err)
	}

	if _, err := rig.hub.View("chan1"); err != nil {
		t.Fatalf("View = %v; want nil", err)
	}
	if _, err := rig.hub.FindByScope("chan1"); err != nil {
		t.Fatalf("FindByScope = %v; want nil", err)
	}
	if _, err := rig.hub.View("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("View unknown = %v; want ErrSessionNotFound", err)
	}
	if _, err := rig.hub.FindByScope("nope"); !errors.Is(err,
		ErrSessionNotFound) {
		t.Fatalf("FindByScope unknown = %v; want ErrSessionNotFound", err)
	}
}

// Concurrent enrollments must serialize through the session actor: with
// more contenders than pool slots, exactly PoolCapacity succeed.
func TestConcurrentEnrollCapacity(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	if _, err := rig.hub.OpenBalancedLobby(ctx, "chan1", "chan1",
		"creator"); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}

	const contenders = lobby.PoolCapacity + 3
	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = rig.hub.Enroll(ctx, "chan1", player(i),
				lobby.SideNone)
		}()
	}
	wg.Wait()

	joined, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, lobby.ErrRosterFull):
			full++
		default:
			t.Fatalf("unexpected enroll error: %v", err)
		}
	}
	if joined != lobby.PoolCapacity {
		t.Fatalf("joined = %v; want %v", joined, lobby.PoolCapacity)
	}
	if full != contenders-lobby.PoolCapacity {
		t.Fatalf("rejected = %v; want %v", full,
			contenders-lobby.PoolCapacity)
	}

	view, err := rig.hub.View("chan1")
	if err != nil {
		t.Fatalf("unexpected view error: %v", err)
	}
	if view.PlayerCount() != lobby.PoolCapacity {
		t.Fatalf("PlayerCount = %v; want %v", view.PlayerCount(),
			lobby.PoolCapacity)
	}
}

func TestManualLifecycle(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	if _, err := rig.hub.OpenManualLobby(ctx, "chan1", "chan1",
		"creator"); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	p1, p2 := player(1), player(2)
	rig.store.put(p1.ID, 1500)
	rig.store.put(p2.ID, 1500)
	if err := rig.hub.Enroll(ctx, "chan1", p1, lobby.SideA); err != nil {
		t.Fatalf("unexpected enroll error: %v", err)
	}
	if err := rig.hub.Enroll(ctx, "chan1", p2, lobby.SideB); err != nil {
		t.Fatalf("unexpected enroll error: %v", err)
	}

	// only the creator or an authority may force start
	err := rig.hub.ForceStart(ctx, "chan1", "u1")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("force start by player = %v; want ErrNotAuthorized", err)
	}
	if err := rig.hub.ForceStart(ctx, "chan1", "creator"); err != nil {
		t.Fatalf("unexpected force start error: %v", err)
	}
	if !rig.notifier.seen("confirmationRequested") {
		t.Fatalf("no confirmation request after manual force start")
	}

	err = rig.hub.Confirm(ctx, "chan1", "u1")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("confirm by player = %v; want ErrNotAuthorized", err)
	}
	if err := rig.hub.Confirm(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("unexpected confirm error: %v", err)
	}
	view, err := rig.hub.View("chan1")
	if err != nil {
		t.Fatalf("unexpected view error: %v", err)
	}
	if view.State != lobby.StateActive {
		t.Fatalf("state = %v; want active", view.State)
	}

	if err := rig.hub.SelectWinner(ctx, "chan1", lobby.SideA,
		"mod"); err != nil {
		t.Fatalf("unexpected select winner error: %v", err)
	}

	res, persistErr := rig.notifier.result()
	if persistErr != nil {
		t.Fatalf("unexpected persist error: %v", persistErr)
	}
	if res.Rated || res.RatingDelta != 0 {
		t.Fatalf("manual result rated=%v delta=%v; want unrated delta 0",
			res.Rated, res.RatingDelta)
	}
	if res.Winner != lobby.SideA {
		t.Fatalf("winner = %v; want side A", res.Winner)
	}

	// counters moved, ratings untouched
	w := rig.store.get(t, "u1")
	if w.Wins != 1 || w.GamesPlayed != 1 || w.Rating != 1500 {
		t.Fatalf("winner record %+v; want 1W/1 game at 1500", w)
	}
	l := rig.store.get(t, "u2")
	if l.Losses != 1 || l.GamesPlayed != 1 || l.Rating != 1500 {
		t.Fatalf("loser record %+v; want 1L/1 game at 1500", l)
	}

	// the session is destroyed on completion
	if _, err := rig.hub.View("chan1"); !errors.Is(err,
		ErrSessionNotFound) {
		t.Fatalf("View after completion = %v; want ErrSessionNotFound", err)
	}
}

func TestManualAutoConfirmationWhenFull(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	if _, err := rig.hub.OpenManualLobby(ctx, "chan1", "chan1",
		"creator"); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	for i := 0; i < lobby.TeamCapacity; i++ {
		if err := rig.hub.Enroll(ctx, "chan1", player(i),
			lobby.SideA); err != nil {
			t.Fatalf("unexpected enroll error: %v", err)
		}
		if err := rig.hub.Enroll(ctx, "chan1",
			player(i+lobby.TeamCapacity), lobby.SideB); err != nil {
			t.Fatalf("unexpected enroll error: %v", err)
		}
	}

	if !rig.notifier.seen("confirmationRequested") {
		t.Fatalf("filling both sides did not request confirmation")
	}
	view, err := rig.hub.View("chan1")
	if err != nil {
		t.Fatalf("unexpected view error: %v", err)
	}
	if view.State != lobby.StateAwaitingConfirmation {
		t.Fatalf("state = %v; want awaiting confirmation", view.State)
	}

	// enrollment is frozen while awaiting
	err = rig.hub.Enroll(ctx, "chan1", player(99), lobby.SideA)
	if !errors.Is(err, lobby.ErrEnrollmentClosed) {
		t.Fatalf("enroll while awaiting = %v; want ErrEnrollmentClosed", err)
	}
}

func TestBalancedLifecycleAndUndo(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	if _, err := rig.hub.OpenBalancedLobby(ctx, "chan1", "chan1",
		"creator"); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	p1, p2 := player(1), player(2)
	rig.store.put(p1.ID, 1500)
	rig.store.put(p2.ID, 1500)
	if err := rig.hub.Enroll(ctx, "chan1", p1, lobby.SideNone); err != nil {
		t.Fatalf("unexpected enroll error: %v", err)
	}
	if err := rig.hub.Enroll(ctx, "chan1", p2, lobby.SideNone); err != nil {
		t.Fatalf("unexpected enroll error: %v", err)
	}

	if err := rig.hub.ForceStart(ctx, "chan1", "creator"); err != nil {
		t.Fatalf("unexpected force start error: %v", err)
	}
	if !rig.notifier.seen("gameStarted") {
		t.Fatalf("balanced force start did not start the game")
	}

	// balanced sessions skip confirmation entirely
	err := rig.hub.Confirm(ctx, "chan1", "mod")
	if !errors.Is(err, lobby.ErrInvalidTransition) {
		t.Fatalf("confirm on balanced = %v; want ErrInvalidTransition", err)
	}

	if err := rig.hub.SelectWinner(ctx, "chan1", lobby.SideA,
		"mod"); err != nil {
		t.Fatalf("unexpected select winner error: %v", err)
	}
	res, _ := rig.notifier.result()
	if !res.Rated || res.RatingDelta != 16 {
		t.Fatalf("balanced result rated=%v delta=%v; want rated delta 16",
			res.Rated, res.RatingDelta)
	}

	winID := res.Winners()[0].ID
	loseID := res.Losers()[0].ID
	if got := rig.store.get(t, winID).Rating; got != 1516 {
		t.Fatalf("winner rating = %v; want 1516", got)
	}
	if got := rig.store.get(t, loseID).Rating; got != 1484 {
		t.Fatalf("loser rating = %v; want 1484", got)
	}

	// undo is gated on authority
	err = rig.hub.RequestUndo(ctx, "chan1", "u1")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("undo request by player = %v; want ErrNotAuthorized", err)
	}
	if err := rig.hub.RequestUndo(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("unexpected undo request error: %v", err)
	}
	err = rig.hub.RequestUndo(ctx, "chan1", "mod")
	if !errors.Is(err, ErrUndoPending) {
		t.Fatalf("second undo request = %v; want ErrUndoPending", err)
	}

	if err := rig.hub.ConfirmUndo(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("unexpected undo confirm error: %v", err)
	}
	if got := rig.store.get(t, winID); got.Rating != 1500 ||
		got.Wins != 0 || got.GamesPlayed != 0 {
		t.Fatalf("winner not restored: %+v", got)
	}
	if got := rig.store.get(t, loseID); got.Rating != 1500 ||
		got.Losses != 0 || got.GamesPlayed != 0 {
		t.Fatalf("loser not restored: %+v", got)
	}

	// the ledger slot is consumed; there is nothing left to undo
	err = rig.hub.RequestUndo(ctx, "chan1", "mod")
	if !errors.Is(err, history.ErrNothingToUndo) {
		t.Fatalf("undo after undo = %v; want ErrNothingToUndo", err)
	}
}

func TestUndoCancelKeepsLedgerEntry(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	runQuickGame(t, rig, "chan1")

	if err := rig.hub.RequestUndo(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("unexpected undo request error: %v", err)
	}
	if err := rig.hub.CancelUndo(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("unexpected undo cancel error: %v", err)
	}
	if !rig.notifier.seen("undoCancelled") {
		t.Fatalf("cancel did not notify")
	}

	// cancelling leaves the result undoable
	if err := rig.hub.RequestUndo(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("undo request after cancel = %v; want nil", err)
	}

	err := rig.hub.ConfirmUndo(ctx, "chan1", "u1")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("undo confirm by player = %v; want ErrNotAuthorized", err)
	}
}

func TestUndoExpiry(t *testing.T) {
	rig := newTestRig(t, func(d *Deps) {
		d.UndoTimeout = 30 * time.Millisecond
	})
	ctx := context.Background()

	runQuickGame(t, rig, "chan1")

	if err := rig.hub.RequestUndo(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("unexpected undo request error: %v", err)
	}
	rig.notifier.waitFor(t, "undoExpired")

	err := rig.hub.ConfirmUndo(ctx, "chan1", "mod")
	if !errors.Is(err, ErrNoPendingUndo) {
		t.Fatalf("confirm after expiry = %v; want ErrNoPendingUndo", err)
	}

	// expiry leaves the ledger entry intact for a fresh request
	if err := rig.hub.RequestUndo(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("undo request after expiry = %v; want nil", err)
	}
}

func TestReshuffleGating(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	if _, err := rig.hub.OpenBalancedLobby(ctx, "chan1", "chan1",
		"creator"); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	for i := 0; i < 4; i++ {
		p := player(i)
		rig.store.put(p.ID, 1500)
		if err := rig.hub.Enroll(ctx, "chan1", p,
			lobby.SideNone); err != nil {
			t.Fatalf("unexpected enroll error: %v", err)
		}
	}
	if err := rig.hub.ForceStart(ctx, "chan1", "creator"); err != nil {
		t.Fatalf("unexpected force start error: %v", err)
	}

	err := rig.hub.Reshuffle(ctx, "chan1", "u1")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("reshuffle by player = %v; want ErrNotAuthorized", err)
	}
	if err := rig.hub.Reshuffle(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("unexpected reshuffle error: %v", err)
	}
	if !rig.notifier.seen("teamsReshuffled") {
		t.Fatalf("reshuffle did not notify")
	}

	view, err := rig.hub.View("chan1")
	if err != nil {
		t.Fatalf("unexpected view error: %v", err)
	}
	if len(view.TeamA)+len(view.TeamB) != 4 {
		t.Fatalf("reshuffle dropped players: %v + %v", len(view.TeamA),
			len(view.TeamB))
	}
}

func TestResultRecordedOnPartialPersistence(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx := context.Background()

	if _, err := rig.hub.OpenBalancedLobby(ctx, "chan1", "chan1",
		"creator"); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	p1, p2 := player(1), player(2)
	rig.store.put(p1.ID, 1500)
	rig.store.put(p2.ID, 1500)
	rig.hub.Enroll(ctx, "chan1", p1, lobby.SideNone)
	rig.hub.Enroll(ctx, "chan1", p2, lobby.SideNone)
	rig.hub.ForceStart(ctx, "chan1", "creator")

	rig.store.mu.Lock()
	rig.store.failFor["u2"] = fmt.Errorf("connection reset")
	rig.store.mu.Unlock()

	err := rig.hub.SelectWinner(ctx, "chan1", lobby.SideA, "mod")
	var perr *rating.PartialError
	if !errors.As(err, &perr) {
		t.Fatalf("select winner = %v; want *rating.PartialError", err)
	}

	// the result still committed: notification fired, session destroyed,
	// and the ledger holds the result for undo
	res, persistErr := rig.notifier.result()
	if persistErr == nil {
		t.Fatalf("notification missing persist error")
	}
	if res.Winner == lobby.SideNone {
		t.Fatalf("no result recorded")
	}
	if _, err := rig.hub.View("chan1"); !errors.Is(err,
		ErrSessionNotFound) {
		t.Fatalf("session survived partial persistence: %v", err)
	}
	if err := rig.hub.RequestUndo(ctx, "chan1", "mod"); err != nil {
		t.Fatalf("result not undoable after partial persistence: %v", err)
	}
}

// runQuickGame opens a 1v1 balanced session in scope and records a side A
// win, leaving a rated result in the ledger.
func runQuickGame(t *testing.T, rig *testRig, scope string) {
	t.Helper()
	ctx := context.Background()

	if _, err := rig.hub.OpenBalancedLobby(ctx, scope, scope,
		"creator"); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	p1, p2 := player(1), player(2)
	rig.store.put(p1.ID, 1500)
	rig.store.put(p2.ID, 1500)
	if err := rig.hub.Enroll(ctx, scope, p1, lobby.SideNone); err != nil {
		t.Fatalf("unexpected enroll error: %v", err)
	}
	if err := rig.hub.Enroll(ctx, scope, p2, lobby.SideNone); err != nil {
		t.Fatalf("unexpected enroll error: %v", err)
	}
	if err := rig.hub.ForceStart(ctx, scope, "creator"); err != nil {
		t.Fatalf("unexpected force start error: %v", err)
	}
	if err := rig.hub.SelectWinner(ctx, scope, lobby.SideA,
		"mod"); err != nil {
		t.Fatalf("unexpected select winner error: %v", err)
	}
}
