package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"voxeledit.ai/internal/editor/geom"
	"voxeledit.ai/internal/editor/input"
	"voxeledit.ai/internal/editor/pane"
	"voxeledit.ai/internal/editor/toolrail"
	"voxeledit.ai/internal/editor/txn"
	"voxeledit.ai/internal/protocol"
	"voxeledit.ai/internal/world"
)

type fakeWorld struct {
	despawned []string
}

func (f *fakeWorld) GetBlock(geom.Vec3i) (world.Block, bool) { return world.Block{ID: "minecraft:stone"}, true }
func (f *fakeWorld) SpawnItem(string, int, geom.Vec3f) (string, error) {
	return "IT000001", nil
}
func (f *fakeWorld) DespawnItem(id string, _ int) error {
	f.despawned = append(f.despawned, id)
	return nil
}

func startSession(t *testing.T, opts Options) (*Session, context.CancelFunc) {
	t.Helper()
	s := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.Loop().Done()
	})
	return s, cancel
}

func readType(t *testing.T, out chan []byte, typ string) map[string]any {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case b := <-out:
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if m["type"] == typ {
				return m
			}
		case <-deadline:
			t.Fatalf("no %s message", typ)
			return nil
		}
	}
}

func TestSession_KeyBindingSelectsTool(t *testing.T) {
	out := make(chan []byte, 64)
	s, _ := startSession(t, Options{Out: out})

	err := s.Loop().Call(context.Background(), func() {
		tool, err := s.ToolRail.AddTool("t1", toolrail.ToolOptions{DisplayString: "T1"})
		if err != nil {
			t.Errorf("AddTool: %v", err)
			return
		}
		a := s.Actions.CreateNoArgsAction(func() { _ = s.ToolRail.SetSelectedOptionID(tool.ID(), true) })
		if err := s.Inputs.RegisterKeyBinding(input.ContextGlobalToolMode, a, "I", input.ModControl); err != nil {
			t.Errorf("RegisterKeyBinding: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	s.Inbox() <- KeyEvent{Key: input.KeyEvent{Key: "I", Modifiers: input.ModControl}}
	m := readType(t, out, protocol.TypeTool)
	if m["selected"] != "t1" {
		t.Fatalf("TOOL: %v", m)
	}
}

func TestSession_MouseTracksCursorBeforeDispatch(t *testing.T) {
	s, _ := startSession(t, Options{})
	var seen []geom.Vec3i
	_ = s.Loop().Call(context.Background(), func() {
		tool, _ := s.ToolRail.AddTool("t1", toolrail.ToolOptions{})
		_ = s.ToolRail.SetSelectedOptionID("t1", true)
		a := s.Actions.CreateMouseRayCastAction(func(input.MouseRay, input.MouseProps) {
			if p, ok := s.Cursor.Position(); ok {
				seen = append(seen, p)
			}
		})
		_ = tool.RegisterMouseButtonBinding(a)
	})
	hit := geom.Vec3i{X: 1, Y: 2, Z: 3}
	s.Inbox() <- MouseEvent{Mouse: input.MouseEvent{Ray: input.MouseRay{Hit: &hit}, Props: input.MouseProps{Button: input.ButtonLeft, InputType: input.ButtonDown}}}
	var got []geom.Vec3i
	_ = s.Loop().Call(context.Background(), func() { got = append(got, seen...) })
	if len(got) != 1 || got[0] != hit {
		t.Fatalf("cursor at dispatch: %v", got)
	}
}

func TestSession_PaneEditErrors(t *testing.T) {
	out := make(chan []byte, 64)
	s, _ := startSession(t, Options{Out: out})
	type settings struct {
		Amount int `mapstructure:"amount"`
	}
	st := &settings{Amount: 1}
	var paneID string
	_ = s.Loop().Call(context.Background(), func() {
		b, _ := pane.NewBinding(st)
		p := s.CreatePropertyPane(pane.Options{Title: "P", Width: 10}, b)
		_ = p.AddNumber("amount", pane.NumberOptions{Min: 1, Max: 64, Integer: true})
		paneID = p.ID()
	})

	s.Inbox() <- PaneEditEvent{PaneID: "PANE9999", Field: "amount", Value: 3}
	if m := readType(t, out, protocol.TypeError); m["code"] != protocol.ErrNotFound {
		t.Fatalf("ERROR: %v", m)
	}
	s.Inbox() <- PaneEditEvent{PaneID: paneID, Field: "amount", Value: 99}
	if m := readType(t, out, protocol.TypePane); m["value"] != float64(64) {
		t.Fatalf("PANE: %v", m)
	}
	s.Inbox() <- PaneEditEvent{PaneID: paneID, Field: "color", Value: "red"}
	if m := readType(t, out, protocol.TypeError); m["code"] != protocol.ErrBadRequest {
		t.Fatalf("ERROR: %v", m)
	}
}

func TestSession_UndoDespawns(t *testing.T) {
	out := make(chan []byte, 64)
	w := &fakeWorld{}
	s, _ := startSession(t, Options{Out: out, World: w})

	s.Inbox() <- UndoEvent{}
	if m := readType(t, out, protocol.TypeError); m["code"] != protocol.ErrBadRequest {
		t.Fatalf("ERROR: %v", m)
	}

	_ = s.Loop().Call(context.Background(), func() {
		s.Transactions.Open("spawn")
		_ = s.Transactions.Track(txnOp("IT000007"))
		_, _ = s.Transactions.CommitOpenTransaction()
	})
	s.Inbox() <- UndoEvent{}
	m := readType(t, out, protocol.TypeTxn)
	if m["state"] != "UNDONE" {
		t.Fatalf("TXN: %v", m)
	}
	var despawned []string
	_ = s.Loop().Call(context.Background(), func() { despawned = append(despawned, w.despawned...) })
	if len(despawned) != 1 || despawned[0] != "IT000007" {
		t.Fatalf("despawned: %v", despawned)
	}
}

func TestLoop_CallAfterClose(t *testing.T) {
	s := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = s.Run(ctx); close(done) }()
	cancel()
	<-done
	if err := s.Loop().Call(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if s.Loop().Post(func() {}) {
		t.Fatalf("Post must fail after close")
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent(protocol.TypeInputKey, []byte(`{"type":"INPUT_KEY","protocol_version":"1.0","key":"i","modifiers":["CTRL"]}`))
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if k := ev.(KeyEvent); k.Key != (input.KeyEvent{Key: "I", Modifiers: input.ModControl}) {
		t.Fatalf("key: %+v", k)
	}

	ev, err = DecodeEvent(protocol.TypeInputMouse, []byte(`{"type":"INPUT_MOUSE","protocol_version":"1.0","button":"LEFT","input_type":"DRAG","hit":[1,2,3],"face":[0,1,0]}`))
	if err != nil {
		t.Fatalf("mouse: %v", err)
	}
	me := ev.(MouseEvent).Mouse
	if me.Kind() != input.KindMouseDrag || me.Ray.Hit == nil || *me.Ray.Hit != (geom.Vec3i{X: 1, Y: 2, Z: 3}) || me.Ray.Face.Y != 1 {
		t.Fatalf("mouse: %+v", me)
	}

	ev, err = DecodeEvent(protocol.TypeInputMouse, []byte(`{"type":"INPUT_MOUSE","protocol_version":"1.0","button":"LEFT","input_type":"BUTTON_UP"}`))
	if err != nil || ev.(MouseEvent).Mouse.Ray.Hit != nil {
		t.Fatalf("mouse without hit: %+v %v", ev, err)
	}

	if _, err := DecodeEvent(protocol.TypeInputMouse, []byte(`{"button":"LEFT","input_type":"SPIN"}`)); err == nil {
		t.Fatalf("expected bad input type error")
	}
	if _, err := DecodeEvent("BOGUS", []byte(`{}`)); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func txnOp(id string) txn.Op { return txn.Op{Kind: txn.OpSpawnItem, EntityID: id, Item: "minecraft:stick", Count: 1} }
