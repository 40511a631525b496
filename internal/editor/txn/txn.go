// Package txn groups world mutations of one editor session into transactions that
// can be committed, discarded or undone.
package txn

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voxeledit.ai/internal/editor/geom"
)

var (
	ErrNoOpenTransaction = errors.New("no open transaction")
	ErrNothingToUndo     = errors.New("nothing to undo")
)

type OpKind string

const (
	OpSpawnItem OpKind = "SPAWN_ITEM"
)

// Op is one tracked world mutation.
type Op struct {
	Kind     OpKind     `json:"kind"`
	EntityID string     `json:"entity_id"`
	Item     string     `json:"item"`
	Count    int        `json:"count"`
	Pos      geom.Vec3f `json:"pos"`
}

type State string

const (
	StateOpen      State = "OPEN"
	StateCommitted State = "COMMITTED"
	StateDiscarded State = "DISCARDED"
	StateUndone    State = "UNDONE"
)

type Transaction struct {
	ID       string
	Name     string
	Ops      []Op
	State    State
	OpenedAt time.Time
	ClosedAt time.Time
}

// Undoer reverts a single op against the world.
type Undoer interface {
	Revert(op Op) error
}

// Recorder receives every closed or undone transaction.
type Recorder interface {
	RecordTransaction(owner string, t Transaction)
}

type Stats struct {
	Committed int
	Discarded int
	Undone    int
}

// Manager owns at most one open transaction plus the committed undo stack. It is not
// safe for concurrent use; the session loop serializes access.
type Manager struct {
	owner    string
	undoer   Undoer
	recorder Recorder
	now      func() time.Time
	maxUndo  int

	open  *Transaction
	stack []*Transaction
	stats Stats
}

type Options struct {
	Owner    string
	Undoer   Undoer
	Recorder Recorder
	Now      func() time.Time
	// MaxUndo bounds the undo stack; 0 means 64.
	MaxUndo int
}

func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxUndo <= 0 {
		opts.MaxUndo = 64
	}
	return &Manager{
		owner:    opts.Owner,
		undoer:   opts.Undoer,
		recorder: opts.Recorder,
		now:      opts.Now,
		maxUndo:  opts.MaxUndo,
	}
}

// Open starts a transaction. If one is already open it is returned unchanged.
func (m *Manager) Open(name string) *Transaction {
	if m.open != nil {
		return m.open
	}
	m.open = &Transaction{
		ID:       uuid.NewString(),
		Name:     name,
		State:    StateOpen,
		OpenedAt: m.now(),
	}
	return m.open
}

func (m *Manager) IsOpen() bool { return m.open != nil }

// Current returns the open transaction, if any.
func (m *Manager) Current() (*Transaction, bool) { return m.open, m.open != nil }

func (m *Manager) Track(op Op) error {
	if m.open == nil {
		return ErrNoOpenTransaction
	}
	m.open.Ops = append(m.open.Ops, op)
	return nil
}

// CommitOpenTransaction closes the open transaction and pushes it on the undo stack.
// Empty transactions are closed but not pushed.
func (m *Manager) CommitOpenTransaction() (*Transaction, error) {
	t := m.open
	if t == nil {
		return nil, ErrNoOpenTransaction
	}
	m.open = nil
	t.State = StateCommitted
	t.ClosedAt = m.now()
	m.stats.Committed++
	if len(t.Ops) > 0 {
		m.stack = append(m.stack, t)
		if len(m.stack) > m.maxUndo {
			m.stack = m.stack[len(m.stack)-m.maxUndo:]
		}
	}
	m.record(*t)
	return t, nil
}

// DiscardOpenTransaction reverts every op of the open transaction and drops it.
func (m *Manager) DiscardOpenTransaction() error {
	t := m.open
	if t == nil {
		return ErrNoOpenTransaction
	}
	m.open = nil
	err := m.revert(t)
	t.State = StateDiscarded
	t.ClosedAt = m.now()
	m.stats.Discarded++
	m.record(*t)
	return err
}

// Undo reverts the most recently committed transaction.
func (m *Manager) Undo() (*Transaction, error) {
	if len(m.stack) == 0 {
		return nil, ErrNothingToUndo
	}
	t := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	err := m.revert(t)
	t.State = StateUndone
	t.ClosedAt = m.now()
	m.stats.Undone++
	m.record(*t)
	if err != nil {
		return t, fmt.Errorf("undo %s: %w", t.ID, err)
	}
	return t, nil
}

func (m *Manager) UndoDepth() int { return len(m.stack) }

func (m *Manager) Stats() Stats { return m.stats }

// revert undoes ops newest first, continuing past failures.
func (m *Manager) revert(t *Transaction) error {
	if m.undoer == nil {
		return nil
	}
	var errs []error
	for i := len(t.Ops) - 1; i >= 0; i-- {
		if err := m.undoer.Revert(t.Ops[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) record(t Transaction) {
	if m.recorder != nil {
		m.recorder.RecordTransaction(m.owner, t)
	}
}
