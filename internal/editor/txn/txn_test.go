package txn

import (
	"errors"
	"testing"
)

type fakeUndoer struct {
	reverted []string
	fail     string
}

func (f *fakeUndoer) Revert(op Op) error {
	if op.EntityID == f.fail {
		return errors.New("boom")
	}
	f.reverted = append(f.reverted, op.EntityID)
	return nil
}

type fakeRecorder struct {
	states []State
}

func (f *fakeRecorder) RecordTransaction(_ string, t Transaction) {
	f.states = append(f.states, t.State)
}

func TestOpenReusesOpenTransaction(t *testing.T) {
	m := NewManager(Options{Owner: "s1"})
	a := m.Open("first")
	b := m.Open("second")
	if a != b || a.Name != "first" {
		t.Fatalf("expected reuse of open txn, got %q and %q", a.Name, b.Name)
	}
	if !m.IsOpen() {
		t.Fatalf("expected open txn")
	}
}

func TestCommitAndUndo(t *testing.T) {
	u := &fakeUndoer{}
	r := &fakeRecorder{}
	m := NewManager(Options{Owner: "s1", Undoer: u, Recorder: r})

	if _, err := m.CommitOpenTransaction(); !errors.Is(err, ErrNoOpenTransaction) {
		t.Fatalf("expected ErrNoOpenTransaction, got %v", err)
	}
	if err := m.Track(Op{Kind: OpSpawnItem}); !errors.Is(err, ErrNoOpenTransaction) {
		t.Fatalf("expected ErrNoOpenTransaction, got %v", err)
	}

	m.Open("spawn")
	_ = m.Track(Op{Kind: OpSpawnItem, EntityID: "IT000001"})
	_ = m.Track(Op{Kind: OpSpawnItem, EntityID: "IT000002"})
	tx, err := m.CommitOpenTransaction()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if tx.State != StateCommitted || m.IsOpen() || m.UndoDepth() != 1 {
		t.Fatalf("after commit: state=%s open=%v depth=%d", tx.State, m.IsOpen(), m.UndoDepth())
	}

	if _, err := m.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(u.reverted) != 2 || u.reverted[0] != "IT000002" || u.reverted[1] != "IT000001" {
		t.Fatalf("revert order: %v", u.reverted)
	}
	if _, err := m.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
	if got := m.Stats(); got.Committed != 1 || got.Undone != 1 {
		t.Fatalf("stats: %+v", got)
	}
	if len(r.states) != 2 || r.states[0] != StateCommitted || r.states[1] != StateUndone {
		t.Fatalf("recorded: %v", r.states)
	}
}

func TestEmptyCommitIsNotUndoable(t *testing.T) {
	m := NewManager(Options{})
	m.Open("empty")
	if _, err := m.CommitOpenTransaction(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if m.UndoDepth() != 0 {
		t.Fatalf("empty txn pushed on undo stack")
	}
}

func TestDiscardRevertsAndContinuesPastFailures(t *testing.T) {
	u := &fakeUndoer{fail: "IT000002"}
	m := NewManager(Options{Undoer: u})
	m.Open("spawn")
	_ = m.Track(Op{EntityID: "IT000001"})
	_ = m.Track(Op{EntityID: "IT000002"})
	_ = m.Track(Op{EntityID: "IT000003"})
	if err := m.DiscardOpenTransaction(); err == nil {
		t.Fatalf("expected joined revert error")
	}
	if len(u.reverted) != 2 || u.reverted[0] != "IT000003" || u.reverted[1] != "IT000001" {
		t.Fatalf("reverted: %v", u.reverted)
	}
	if m.IsOpen() || m.Stats().Discarded != 1 {
		t.Fatalf("discard did not close txn")
	}
}

func TestMaxUndoBoundsStack(t *testing.T) {
	m := NewManager(Options{MaxUndo: 2})
	for i := 0; i < 5; i++ {
		m.Open("spawn")
		_ = m.Track(Op{EntityID: "x"})
		_, _ = m.CommitOpenTransaction()
	}
	if m.UndoDepth() != 2 {
		t.Fatalf("undo depth: %d", m.UndoDepth())
	}
}
