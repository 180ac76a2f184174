/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package history keeps the per-scope record of completed sessions that is
// reachable for undo. Only the most recent result per scope is retained:
// recording a new result evicts the previous one from undo reachability.
// Single-step undo is intentional.
package history

import (
	"errors"
	"sync"

	"github.com/mikeb26/customslobby-bot/lobby"
)

// ErrNothingToUndo indicates the scope has no completed result available
// for undo.
var ErrNothingToUndo = errors.New("no completed result to undo")

// Ledger is an injectable, process-wide store of undoable results keyed by
// scope. It is safe for concurrent use; sessions of different scopes record
// results concurrently.
type Ledger struct {
	mu   sync.Mutex
	last map[string]lobby.CompletedResult
}

func NewLedger() *Ledger {
	return &Ledger{last: make(map[string]lobby.CompletedResult)}
}

// Record makes res the scope's undoable result, replacing any previous one.
func (l *Ledger) Record(res lobby.CompletedResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[res.Scope] = res
}

// Peek returns the scope's undoable result without consuming it.
func (l *Ledger) Peek(scope string) (lobby.CompletedResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.last[scope]
	if !ok {
		return lobby.CompletedResult{}, ErrNothingToUndo
	}
	return res, nil
}

// Pop removes and returns the scope's undoable result. A result is consumed
// exactly once: after a successful Pop the scope has nothing to undo until
// a new result is recorded.
func (l *Ledger) Pop(scope string) (lobby.CompletedResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.last[scope]
	if !ok {
		return lobby.CompletedResult{}, ErrNothingToUndo
	}
	delete(l.last, scope)
	return res, nil
}
