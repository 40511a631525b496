// Package itemspawner is the Item Spawner editor tool: left click or drag over
// blocks to preview them, release to spawn an item stack on top of each one.
package itemspawner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/config"
	"voxeledit.ai/internal/editor/bulk"
	"voxeledit.ai/internal/editor/color"
	"voxeledit.ai/internal/editor/cursor"
	"voxeledit.ai/internal/editor/geom"
	"voxeledit.ai/internal/editor/input"
	"voxeledit.ai/internal/editor/pane"
	"voxeledit.ai/internal/editor/selection"
	"voxeledit.ai/internal/editor/session"
	"voxeledit.ai/internal/editor/toolrail"
	"voxeledit.ai/internal/editor/txn"
	"voxeledit.ai/internal/persistence/settingsstore"
)

const (
	ToolID        = "editor:itemSpawner"
	DisplayString = "Item Spawner (CTRL + I)"
	Tooltip       = "Left mouse click or drag-to-spawn"
	Icon          = "pack://textures/editor/item.png?filtering=point"
	PaneTitle     = "Item Spawner"
	TxnName       = "Item Spawner"

	errUninitialized = "Item Spawner storage was not initialized."
)

// Settings are bound to the property pane and read when a gesture commits.
type Settings struct {
	ItemType string `mapstructure:"itemType" json:"itemType"`
	Amount   int    `mapstructure:"amount" json:"amount"`
}

// Metrics receives tool counters. *metrics.Editor implements it.
type Metrics interface {
	VolumeAdded()
	SampleDebounced()
	GestureIgnored()
	ItemsSpawned(item string, n int)
	GestureFinished(result string, d time.Duration, failedBlocks int)
}

// GestureEntry is written once per finished paint gesture.
type GestureEntry struct {
	Time       time.Time `json:"time"`
	SessionID  string    `json:"session_id"`
	Player     string    `json:"player"`
	GestureID  string    `json:"gesture_id"`
	TxnID      string    `json:"txn_id,omitempty"`
	Item       string    `json:"item"`
	Amount     int       `json:"amount"`
	Volumes    int       `json:"volumes"`
	Blocks     int       `json:"blocks"`
	Spawned    int       `json:"spawned"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	Result     string    `json:"result"`
	DurationMs int64     `json:"duration_ms"`
}

type GestureLogger interface {
	WriteGesture(GestureEntry) error
}

type Options struct {
	DefaultItem   string
	DefaultAmount int
	AmountMin     int
	AmountMax     int
	KeyBinding    string
	PaneWidth     int

	CursorColor   color.RGBA
	PreviewBorder color.RGBA
	PreviewFill   color.RGBA

	Policy config.GesturePolicy

	// RepaintSameBlock forgets the last placed volume at paint start, so a new
	// click on the block the previous gesture ended on spawns again.
	RepaintSameBlock bool

	Store    settingsstore.Store
	Metrics  Metrics
	Gestures GestureLogger
	Logger   *log.Logger
}

func DefaultOptions() Options {
	return Options{
		DefaultItem:   "minecraft:diamond_sword",
		DefaultAmount: 1,
		AmountMin:     1,
		AmountMax:     64,
		KeyBinding:    "Ctrl+I",
		PaneWidth:     40,
		CursorColor:   color.Green,
		PreviewBorder: color.Green.WithAlpha(0.2),
		PreviewFill:   color.Green.WithAlpha(0.1),
		Policy:        config.GesturePolicyIgnore,
	}
}

// OptionsFromConfig maps the tool section of the server config.
func OptionsFromConfig(t config.Tool) (Options, error) {
	o := DefaultOptions()
	o.DefaultItem = t.DefaultItem
	o.DefaultAmount = t.DefaultAmount
	o.AmountMin = t.AmountMin
	o.AmountMax = t.AmountMax
	o.KeyBinding = t.KeyBinding
	o.PaneWidth = t.PaneWidth
	o.Policy = t.GesturePolicy
	o.RepaintSameBlock = t.RepaintSameBlock
	var err error
	if o.CursorColor, err = color.ParseHex(t.CursorColor); err != nil {
		return o, err
	}
	if o.PreviewBorder, err = color.ParseHex(t.PreviewBorder); err != nil {
		return o, err
	}
	if o.PreviewFill, err = color.ParseHex(t.PreviewFill); err != nil {
		return o, err
	}
	return o, nil
}

// toolSession is the per-install state of the tool. A nil *toolSession means the
// tool was never set up.
type toolSession struct {
	cursorState      cursor.State
	preview          *selection.Selection
	lastVolumePlaced *geom.BoundingBox
	pending          int
	ignoring         bool
	gesture          *gesture
}

func (s *toolSession) commitPending() bool { return s.pending > 0 }

type gesture struct {
	id      string
	started time.Time
	ended   time.Time
	volumes int
	spawned int
}

type Controller struct {
	sess     *session.Session
	opts     Options
	log      *log.Logger
	tool     *toolrail.Tool
	pane     *pane.Pane
	settings *Settings
	state    *toolSession

	saves       chan []byte
	nextGesture int
}

// Install registers the tool on sess. It must run on the session loop.
func Install(sess *session.Session, opts Options) (*Controller, error) {
	if opts.Logger == nil {
		opts.Logger = sess.Logger()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.AmountMin < 1 || opts.AmountMax < opts.AmountMin {
		return nil, fmt.Errorf("itemspawner: bad amount range [%d,%d]", opts.AmountMin, opts.AmountMax)
	}
	if sess.Items == nil || len(sess.Items.Palette) == 0 {
		return nil, fmt.Errorf("itemspawner: empty item catalog")
	}
	if !sess.Items.Has(opts.DefaultItem) {
		return nil, fmt.Errorf("itemspawner: default item %s: %w", opts.DefaultItem, catalogs.ErrUnknownItem)
	}
	key, err := input.ParseKey(opts.KeyBinding)
	if err != nil {
		return nil, fmt.Errorf("itemspawner: key binding: %w", err)
	}

	c := &Controller{sess: sess, opts: opts, log: opts.Logger}

	c.tool, err = sess.ToolRail.AddTool(ToolID, toolrail.ToolOptions{
		DisplayString: DisplayString,
		Tooltip:       Tooltip,
		Icon:          Icon,
	})
	if err != nil {
		return nil, err
	}

	cs := cursor.DefaultState()
	cs.Color = opts.CursorColor
	cs.ControlMode = cursor.ControlModeKeyboardAndMouse
	cs.TargetMode = cursor.TargetModeFace
	cs.Visible = true

	preview := sess.Selections.CreateSelection()
	preview.Visible = true
	preview.BorderColor = opts.PreviewBorder
	preview.FillColor = opts.PreviewFill

	c.state = &toolSession{cursorState: cs, preview: preview}

	c.tool.OnActivation(func(ev toolrail.ActivationEvent) {
		if ev.IsActiveTool {
			c.Activate()
		}
	})

	selectTool := sess.Actions.CreateNoArgsAction(c.selectTool)
	if err := sess.Inputs.RegisterKeyBinding(input.ContextGlobalToolMode, selectTool, key.Key, key.Modifiers); err != nil {
		return nil, err
	}

	c.settings = c.loadSettings()
	if err := c.buildPane(); err != nil {
		return nil, err
	}

	button := sess.Actions.CreateMouseRayCastAction(func(_ input.MouseRay, p input.MouseProps) {
		if p.Button != input.ButtonLeft {
			return
		}
		switch p.InputType {
		case input.ButtonDown:
			c.PaintStart()
		case input.ButtonUp:
			c.PaintEnd()
		}
	})
	if err := c.tool.RegisterMouseButtonBinding(button); err != nil {
		return nil, err
	}
	drag := sess.Actions.CreateMouseRayCastAction(func(_ input.MouseRay, p input.MouseProps) {
		if p.InputType == input.Drag {
			c.PaintDrag()
		}
	})
	if err := c.tool.RegisterMouseDragBinding(drag); err != nil {
		return nil, err
	}

	if opts.Store != nil {
		c.saves = make(chan []byte, 1)
		go c.saveLoop(sess.Loop().Done())
	}
	return c, nil
}

func (c *Controller) buildPane() error {
	b, err := pane.NewBinding(c.settings)
	if err != nil {
		return err
	}
	c.pane = c.sess.CreatePropertyPane(pane.Options{Title: PaneTitle, Width: c.opts.PaneWidth}, b)

	defs := c.sess.Items.GetAll()
	items := make([]pane.DropdownItem, 0, len(defs))
	for _, d := range defs {
		items = append(items, pane.DropdownItem{Value: d.ID, Label: d.ID, StringID: d.StringID()})
	}
	if err := c.pane.AddDropdown("itemType", pane.DropdownOptions{Items: items}); err != nil {
		return err
	}
	if err := c.pane.AddNumber("amount", pane.NumberOptions{
		Min:        float64(c.opts.AmountMin),
		Max:        float64(c.opts.AmountMax),
		ShowSlider: true,
		Integer:    true,
	}); err != nil {
		return err
	}
	c.pane.OnChange(func(string, any) { c.queueSave() })
	c.tool.BindPropertyPane(c.pane)
	return nil
}

func (c *Controller) selectTool() {
	if err := c.sess.ToolRail.SetSelectedOptionID(c.tool.ID(), true); err != nil {
		c.log.Printf("select tool: %v", err)
	}
}

// Activate restores the tool's cursor.
func (c *Controller) Activate() {
	if c.state == nil {
		c.log.Println(errUninitialized)
		return
	}
	c.sess.Cursor.SetState(c.state.cursorState)
}

// PaintStart begins a gesture: clear the preview and place the first volume.
func (c *Controller) PaintStart() {
	st := c.state
	if st == nil {
		c.log.Println(errUninitialized)
		return
	}
	if st.commitPending() && c.opts.Policy != config.GesturePolicyRace {
		st.ignoring = true
		c.opts.Metrics.GestureIgnored()
		c.logGesture(GestureEntry{GestureID: c.newGestureID(), Result: "ignored"})
		return
	}
	st.ignoring = false
	st.preview.Clear()
	if c.opts.RepaintSameBlock {
		st.lastVolumePlaced = nil
	}
	st.gesture = &gesture{id: c.newGestureID(), started: time.Now()}
	c.evaluateAndAdd()
}

// PaintDrag extends the gesture with the block under the cursor.
func (c *Controller) PaintDrag() {
	st := c.state
	if st == nil {
		c.log.Println(errUninitialized)
		return
	}
	if st.ignoring {
		return
	}
	c.evaluateAndAdd()
}

// evaluateAndAdd pushes the targeted block unless it repeats the last volume.
func (c *Controller) evaluateAndAdd() {
	st := c.state
	if st == nil {
		c.log.Println(errUninitialized)
		return
	}
	pos, ok := c.sess.Cursor.Position()
	if !ok {
		return
	}
	if _, ok := c.sess.World.GetBlock(pos); !ok {
		return
	}
	vol := geom.SingleBlock(pos)
	bb := vol.BoundingBox()
	if st.lastVolumePlaced != nil && st.lastVolumePlaced.Equals(bb) {
		c.opts.Metrics.SampleDebounced()
		return
	}
	st.preview.PushVolume(selection.ActionAdd, vol)
	st.lastVolumePlaced = &bb
	if st.gesture != nil {
		st.gesture.volumes++
	}
	c.opts.Metrics.VolumeAdded()
}

// PaintEnd spawns the configured stack on every previewed block. The work runs as
// a bulk operation; when it settles, the open transaction is committed and the
// preview cleared, whatever the outcome.
func (c *Controller) PaintEnd() *bulk.Operation {
	st := c.state
	if st == nil {
		c.log.Println(errUninitialized)
		return nil
	}
	if st.ignoring {
		st.ignoring = false
		return nil
	}
	g := st.gesture
	if g == nil {
		g = &gesture{id: c.newGestureID(), started: time.Now()}
	}
	st.gesture = nil
	g.ended = time.Now()

	item, amount := c.settings.ItemType, c.settings.Amount
	st.pending++
	return c.sess.Bulk.Execute(c.sess.Context(), TxnName, st.preview, func(p geom.Vec3i) error {
		if _, ok := c.sess.World.GetBlock(p); !ok {
			return nil
		}
		at := geom.Vec3f{X: float64(p.X) + 0.5, Y: float64(p.Y), Z: float64(p.Z) + 0.5}
		id, err := c.sess.World.SpawnItem(item, amount, at)
		if err != nil {
			return err
		}
		g.spawned += amount
		c.opts.Metrics.ItemsSpawned(item, amount)
		return c.sess.Transactions.Track(txn.Op{Kind: txn.OpSpawnItem, EntityID: id, Item: item, Count: amount, Pos: at})
	}, func(res bulk.Result) {
		c.finalize(st, g, item, amount, res)
	})
}

func (c *Controller) finalize(st *toolSession, g *gesture, item string, amount int, res bulk.Result) {
	st.pending--

	entry := GestureEntry{
		GestureID: g.id,
		Item:      item,
		Amount:    amount,
		Volumes:   g.volumes,
		Blocks:    res.Total,
		Spawned:   g.spawned,
		Failed:    len(res.Failed),
		Result:    "committed",
	}
	if !res.OK() {
		entry.Result = "failed"
		err := res.Err
		if err == nil {
			err = res.Failed[0].Err
		}
		entry.Error = err.Error()
		c.log.Printf("gesture %s: %d/%d blocks failed: %v", g.id, len(res.Failed), res.Total, err)
	}

	t, err := c.sess.Transactions.CommitOpenTransaction()
	switch {
	case errors.Is(err, txn.ErrNoOpenTransaction):
		// An overlapping gesture already committed it.
	case err != nil:
		c.log.Printf("gesture %s: commit: %v", g.id, err)
	default:
		entry.TxnID = t.ID
		c.sess.NotifyTransaction(*t)
	}
	st.preview.Clear()

	d := time.Since(g.ended)
	entry.DurationMs = d.Milliseconds()
	c.opts.Metrics.GestureFinished(entry.Result, d, entry.Failed)
	c.logGesture(entry)
}

func (c *Controller) logGesture(e GestureEntry) {
	if c.opts.Gestures == nil {
		return
	}
	e.Time = time.Now().UTC()
	e.SessionID = c.sess.ID
	e.Player = c.sess.Player
	if err := c.opts.Gestures.WriteGesture(e); err != nil {
		c.log.Printf("gesture log: %v", err)
	}
}

func (c *Controller) newGestureID() string {
	c.nextGesture++
	return fmt.Sprintf("G%06d", c.nextGesture)
}

// loadSettings starts from the configured defaults and applies the saved document,
// dropping fields the catalog no longer knows.
func (c *Controller) loadSettings() *Settings {
	s := &Settings{ItemType: c.opts.DefaultItem, Amount: c.opts.DefaultAmount}
	if c.opts.Store == nil {
		return s
	}
	ctx, cancel := context.WithTimeout(c.sess.Context(), 2*time.Second)
	defer cancel()
	raw, err := c.opts.Store.LoadSettings(ctx, c.sess.Player, ToolID)
	if errors.Is(err, settingsstore.ErrNotFound) {
		return s
	}
	if err != nil {
		c.log.Printf("load settings: %v", err)
		return s
	}
	var saved Settings
	if err := json.Unmarshal(raw, &saved); err != nil {
		c.log.Printf("load settings: %v", err)
		return s
	}
	if c.sess.Items.Has(saved.ItemType) {
		s.ItemType = saved.ItemType
	}
	if saved.Amount != 0 {
		s.Amount = saved.Amount
	}
	return s
}

func (c *Controller) queueSave() {
	if c.saves == nil {
		return
	}
	raw, err := json.Marshal(c.settings)
	if err != nil {
		c.log.Printf("save settings: %v", err)
		return
	}
	// Latest wins.
	select {
	case c.saves <- raw:
	default:
		select {
		case <-c.saves:
		default:
		}
		select {
		case c.saves <- raw:
		default:
		}
	}
}

func (c *Controller) saveLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case raw := <-c.saves:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := c.opts.Store.SaveSettings(ctx, c.sess.Player, ToolID, raw); err != nil {
				c.log.Printf("save settings: %v", err)
			}
			cancel()
		}
	}
}

func (c *Controller) Tool() *toolrail.Tool { return c.tool }
func (c *Controller) Pane() *pane.Pane     { return c.pane }

// Settings returns a copy of the current settings.
func (c *Controller) Settings() Settings { return *c.settings }

// Preview is the selection highlighting the blocks of the current gesture.
func (c *Controller) Preview() *selection.Selection {
	if c.state == nil {
		return nil
	}
	return c.state.preview
}

// CommitPending reports whether a gesture's bulk operation has not settled yet.
func (c *Controller) CommitPending() bool { return c.state != nil && c.state.commitPending() }

type nopMetrics struct{}

func (nopMetrics) VolumeAdded()                               {}
func (nopMetrics) SampleDebounced()                           {}
func (nopMetrics) GestureIgnored()                            {}
func (nopMetrics) ItemsSpawned(string, int)                   {}
func (nopMetrics) GestureFinished(string, time.Duration, int) {}
