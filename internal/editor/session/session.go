// Package session hosts one editor client: a single goroutine that owns the
// cursor, selections, transactions, input bindings, tool rail and panes, and runs
// every handler.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/editor/bulk"
	"voxeledit.ai/internal/editor/cursor"
	"voxeledit.ai/internal/editor/geom"
	"voxeledit.ai/internal/editor/input"
	"voxeledit.ai/internal/editor/pane"
	"voxeledit.ai/internal/editor/selection"
	"voxeledit.ai/internal/editor/toolrail"
	"voxeledit.ai/internal/editor/txn"
	"voxeledit.ai/internal/protocol"
	"voxeledit.ai/internal/world"
)

var ErrClosed = errors.New("session closed")

// Dimension is the part of the world a session edits.
type Dimension interface {
	GetBlock(pos geom.Vec3i) (world.Block, bool)
	SpawnItem(item string, count int, pos geom.Vec3f) (string, error)
	DespawnItem(id string, count int) error
}

type Options struct {
	ID            string
	Player        string
	World         Dimension
	Items         *catalogs.ItemCatalog
	Recorder      txn.Recorder
	BulkChunkSize int
	// Out receives encoded server messages. Nil disables notifications.
	Out    chan []byte
	Logger *log.Logger
}

type Session struct {
	ID     string
	Player string

	Cursor       *cursor.Cursor
	Selections   *selection.Manager
	Transactions *txn.Manager
	Actions      *input.ActionManager
	Inputs       *input.Manager
	ToolRail     *toolrail.Rail
	Bulk         *bulk.Runner
	Items        *catalogs.ItemCatalog
	World        Dimension

	loop     *Loop
	inbox    chan Event
	out      chan []byte
	log      *log.Logger
	ctx      context.Context
	mode     input.Context
	panes    map[string]*pane.Pane
	nextPane int
	onClose  []func()
}

func New(opts Options) *Session {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Session{
		ID:         opts.ID,
		Player:     opts.Player,
		Cursor:     cursor.New(),
		Selections: selection.NewManager(),
		Actions:    input.NewActionManager(),
		Inputs:     input.NewManager(),
		Items:      opts.Items,
		World:      opts.World,
		loop:       NewLoop(256),
		inbox:      make(chan Event, 256),
		out:        opts.Out,
		log:        opts.Logger,
		ctx:        context.Background(),
		mode:       input.ContextViewport,
		panes:      map[string]*pane.Pane{},
	}
	var undoer txn.Undoer
	if opts.World != nil {
		undoer = worldUndoer{opts.World}
	}
	s.Transactions = txn.NewManager(txn.Options{Owner: s.ID, Undoer: undoer, Recorder: opts.Recorder})
	s.ToolRail = toolrail.New(s.Inputs)
	s.Bulk = bulk.NewRunner(s.loop, s.Transactions, opts.BulkChunkSize)

	s.Cursor.OnChange(s.notifyCursor)
	s.Selections.OnChange(s.notifySelection)
	s.ToolRail.OnSelect(func(_, next string) {
		s.send(protocol.ToolMsg{Type: protocol.TypeTool, ProtocolVersion: protocol.Version, Selected: next})
	})
	return s
}

// Inbox accepts input events. Events are handled in order on the session goroutine.
func (s *Session) Inbox() chan<- Event { return s.inbox }

func (s *Session) Loop() *Loop { return s.loop }

// Context is the context of the running session; it is canceled when Run returns.
// Only valid on the loop.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Logger() *log.Logger { return s.log }

// OnClose registers fn to run on the loop goroutine when Run returns.
func (s *Session) OnClose(fn func()) { s.onClose = append(s.onClose, fn) }

// Run processes events and posted tasks until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.ctx = ctx
	defer func() {
		cancel()
		for _, fn := range s.onClose {
			fn()
		}
		s.loop.close()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.inbox:
			s.handle(ev)
		case fn := <-s.loop.tasks:
			fn()
		}
	}
}

func (s *Session) handle(ev Event) {
	switch ev := ev.(type) {
	case KeyEvent:
		s.Inputs.DispatchKey(ev.Key, s.mode)
	case MouseEvent:
		s.Cursor.Track(ev.Mouse.Ray.Hit, ev.Mouse.Ray.Face)
		s.Inputs.DispatchMouse(s.ToolRail.Selected(), ev.Mouse)
	case PaneEditEvent:
		p, ok := s.panes[ev.PaneID]
		if !ok {
			s.SendError(protocol.ErrNotFound, fmt.Sprintf("pane %s not found", ev.PaneID))
			return
		}
		if err := p.Set(ev.Field, ev.Value); err != nil {
			s.SendError(protocol.ErrBadRequest, err.Error())
		}
	case ToolSelectEvent:
		if err := s.ToolRail.SetSelectedOptionID(ev.ToolID, ev.Active); err != nil {
			s.SendError(protocol.ErrNotFound, err.Error())
		}
	case UndoEvent:
		t, err := s.Transactions.Undo()
		if errors.Is(err, txn.ErrNothingToUndo) {
			s.SendError(protocol.ErrBadRequest, err.Error())
			return
		}
		if err != nil {
			s.log.Printf("session %s: %v", s.ID, err)
		}
		if t != nil {
			s.NotifyTransaction(*t)
		}
	default:
		s.log.Printf("session %s: unhandled event %T", s.ID, ev)
	}
}

// CreatePropertyPane creates a pane over binding; its edits are echoed to the client.
func (s *Session) CreatePropertyPane(opts pane.Options, b *pane.Binding) *pane.Pane {
	s.nextPane++
	p := pane.New(fmt.Sprintf("PANE%04d", s.nextPane), opts, b)
	s.panes[p.ID()] = p
	p.OnChange(func(field string, value any) {
		s.send(protocol.PaneMsg{Type: protocol.TypePane, ProtocolVersion: protocol.Version, PaneID: p.ID(), Field: field, Value: value})
	})
	return p
}

func (s *Session) Pane(id string) (*pane.Pane, bool) {
	p, ok := s.panes[id]
	return p, ok
}

// Manifest describes the tools, panes and key bindings registered on the session.
func (s *Session) Manifest() (tools []protocol.ToolRef, panes []protocol.PaneRef, keys []string) {
	for _, t := range s.ToolRail.Tools() {
		o := t.Options()
		ref := protocol.ToolRef{ID: t.ID(), DisplayString: o.DisplayString, Tooltip: o.Tooltip, Icon: o.Icon}
		if p := t.PropertyPane(); p != nil {
			ref.PaneID = p.ID()
		}
		tools = append(tools, ref)
	}
	ids := make([]string, 0, len(s.panes))
	for id := range s.panes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		panes = append(panes, paneRef(s.panes[id]))
	}
	for _, k := range s.Inputs.KeyBindings() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return tools, panes, keys
}

func paneRef(p *pane.Pane) protocol.PaneRef {
	o := p.Options()
	ref := protocol.PaneRef{ID: p.ID(), Title: o.Title, Width: o.Width, Fields: []protocol.PaneFieldRef{}}
	values := p.Values()
	for _, f := range p.Fields() {
		fr := protocol.PaneFieldRef{Name: f.Name, Kind: string(f.Kind), Value: values[f.Name]}
		if f.Dropdown != nil {
			for _, it := range f.Dropdown.Items {
				fr.Items = append(fr.Items, protocol.DropdownItem{Value: it.Value, Label: it.Label, StringID: it.StringID})
			}
		}
		if f.Number != nil {
			lo, hi := f.Number.Min, f.Number.Max
			fr.Min, fr.Max, fr.ShowSlider = &lo, &hi, f.Number.ShowSlider
		}
		ref.Fields = append(ref.Fields, fr)
	}
	return ref
}

func (s *Session) SendError(code, msg string) {
	s.send(protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: msg})
}

// NotifyTransaction reports a closed or undone transaction to the client.
func (s *Session) NotifyTransaction(t txn.Transaction) {
	items := 0
	for _, op := range t.Ops {
		items += op.Count
	}
	s.send(protocol.TxnMsg{
		Type:            protocol.TypeTxn,
		ProtocolVersion: protocol.Version,
		TxnID:           t.ID,
		Name:            t.Name,
		State:           string(t.State),
		Ops:             len(t.Ops),
		Items:           items,
	})
}

func (s *Session) notifyCursor(st cursor.State, pos *geom.Vec3i) {
	m := protocol.CursorMsg{
		Type:            protocol.TypeCursor,
		ProtocolVersion: protocol.Version,
		Color:           st.Color.Hex(),
		ControlMode:     st.ControlMode.String(),
		TargetMode:      st.TargetMode.String(),
		Visible:         st.Visible,
	}
	if pos != nil {
		a := pos.ToArray()
		m.Pos = &a
	}
	s.send(m)
}

func (s *Session) notifySelection(sel *selection.Selection) {
	m := protocol.SelectionMsg{
		Type:            protocol.TypeSelection,
		ProtocolVersion: protocol.Version,
		SelectionID:     sel.ID(),
		Visible:         sel.Visible,
		BorderColor:     sel.BorderColor.Hex(),
		FillColor:       sel.FillColor.Hex(),
		Volumes:         [][2][3]int{},
	}
	for _, v := range sel.Volumes() {
		bb := v.BoundingBox()
		m.Volumes = append(m.Volumes, [2][3]int{bb.Min.ToArray(), bb.Max.ToArray()})
	}
	s.send(m)
}

func (s *Session) send(v any) {
	if s.out == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Printf("session %s: encode %T: %v", s.ID, v, err)
		return
	}
	sendLatest(s.out, b)
}

// sendLatest never blocks the loop: when the client falls behind, the oldest
// queued message is dropped.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

type worldUndoer struct{ w Dimension }

func (u worldUndoer) Revert(op txn.Op) error {
	switch op.Kind {
	case txn.OpSpawnItem:
		return u.w.DespawnItem(op.EntityID, op.Count)
	default:
		return fmt.Errorf("revert: unsupported op %s", op.Kind)
	}
}
