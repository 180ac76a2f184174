/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package history

import (
	"errors"
	"testing"

	"github.com/mikeb26/customslobby-bot/lobby"
)

func mkResult(handle, scope string, winner lobby.Side) lobby.CompletedResult {
	return lobby.CompletedResult{
		Handle: handle,
		Scope:  scope,
		TeamA:  []lobby.Participant{{ID: "a1", Rating: 1500}},
		TeamB:  []lobby.Participant{{ID: "b1", Rating: 1500}},
		Winner: winner,
	}
}

func TestLedgerEmpty(t *testing.T) {
	l := NewLedger()

	if _, err := l.Peek("chan1"); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("Peek on empty ledger = %v; want ErrNothingToUndo", err)
	}
	if _, err := l.Pop("chan1"); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("Pop on empty ledger = %v; want ErrNothingToUndo", err)
	}
}

func TestLedgerSingleSlot(t *testing.T) {
	l := NewLedger()

	l.Record(mkResult("g1", "chan1", lobby.SideA))
	l.Record(mkResult("g2", "chan1", lobby.SideB))

	// only the most recent result per scope stays reachable
	res, err := l.Peek("chan1")
	if err != nil {
		t.Fatalf("unexpected Peek error: %v", err)
	}
	if res.Handle != "g2" {
		t.Fatalf("Peek = %v; want g2", res.Handle)
	}
}

func TestLedgerPopConsumes(t *testing.T) {
	l := NewLedger()
	l.Record(mkResult("g1", "chan1", lobby.SideA))

	// Peek does not consume
	if _, err := l.Peek("chan1"); err != nil {
		t.Fatalf("unexpected Peek error: %v", err)
	}
	res, err := l.Pop("chan1")
	if err != nil {
		t.Fatalf("unexpected Pop error: %v", err)
	}
	if res.Handle != "g1" {
		t.Fatalf("Pop = %v; want g1", res.Handle)
	}

	// consumed exactly once
	if _, err := l.Pop("chan1"); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("second Pop = %v; want ErrNothingToUndo", err)
	}

	// a new result re-arms the scope
	l.Record(mkResult("g3", "chan1", lobby.SideB))
	if _, err := l.Pop("chan1"); err != nil {
		t.Fatalf("Pop after re-record = %v; want nil", err)
	}
}

func TestLedgerScopesIndependent(t *testing.T) {
	l := NewLedger()
	l.Record(mkResult("g1", "chan1", lobby.SideA))
	l.Record(mkResult("g2", "chan2", lobby.SideB))

	if _, err := l.Pop("chan1"); err != nil {
		t.Fatalf("unexpected Pop error: %v", err)
	}
	res, err := l.Peek("chan2")
	if err != nil {
		t.Fatalf("chan2 entry lost: %v", err)
	}
	if res.Handle != "g2" {
		t.Fatalf("chan2 Peek = %v; want g2", res.Handle)
	}
}
