// Command editbot drives an editor session over WebSocket: it selects the Item
// Spawner, optionally edits its pane, paints a straight line of blocks and reports
// the resulting transaction.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"voxeledit.ai/internal/protocol"
	"voxeledit.ai/internal/tools/itemspawner"
)

type botOptions struct {
	url     string
	player  string
	item    string
	amount  int
	start   []int
	length  int
	axis    string
	timeout time.Duration
}

func main() {
	var o botOptions
	cmd := &cobra.Command{
		Use:          "editbot",
		Short:        "Paint a line of spawned items through editord",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
			return run(o, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.url, "url", "ws://localhost:8080/v1/editor/ws", "ws url")
	f.StringVar(&o.player, "player", "bot", "player name")
	f.StringVar(&o.item, "item", "", "item type to select in the pane (optional)")
	f.IntVar(&o.amount, "amount", 0, "amount per block (optional)")
	f.IntSliceVar(&o.start, "hit", []int{0, 63, 0}, "first block under the cursor (x,y,z)")
	f.IntVar(&o.length, "length", 5, "number of blocks to paint")
	f.StringVar(&o.axis, "axis", "x", "paint direction: x or z")
	f.DurationVar(&o.timeout, "timeout", 10*time.Second, "how long to wait for each reply")
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type bot struct {
	conn    *websocket.Conn
	log     *log.Logger
	timeout time.Duration
}

func run(o botOptions, logger *log.Logger) error {
	if len(o.start) != 3 {
		return fmt.Errorf("--hit needs x,y,z")
	}
	if o.length < 1 {
		return fmt.Errorf("--length must be positive")
	}
	if o.axis != "x" && o.axis != "z" {
		return fmt.Errorf("--axis must be x or z")
	}

	conn, _, err := websocket.DefaultDialer.Dial(o.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	b := &bot{conn: conn, log: logger, timeout: o.timeout}

	if err := b.send(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, Player: o.player, ClientName: "editbot"}); err != nil {
		return err
	}
	var w protocol.WelcomeMsg
	if err := b.await(protocol.TypeWelcome, &w); err != nil {
		return err
	}
	logger.Printf("WELCOME session=%s player=%s tools=%d items=%d", w.SessionID, w.Player, len(w.Tools), w.Catalogs.ItemPalette.Count)

	paneID := ""
	for _, t := range w.Tools {
		if t.ID == itemspawner.ToolID {
			paneID = t.PaneID
		}
	}
	if paneID == "" {
		return fmt.Errorf("server does not offer %s", itemspawner.ToolID)
	}

	if err := b.send(protocol.InputKeyMsg{Type: protocol.TypeInputKey, ProtocolVersion: protocol.Version, Key: "I", Modifiers: []string{"CTRL"}}); err != nil {
		return err
	}
	var tm protocol.ToolMsg
	if err := b.await(protocol.TypeTool, &tm); err != nil {
		return err
	}
	if tm.Selected != itemspawner.ToolID {
		return fmt.Errorf("selected tool %q", tm.Selected)
	}

	edits := map[string]any{}
	if o.item != "" {
		edits["itemType"] = o.item
	}
	if o.amount != 0 {
		edits["amount"] = o.amount
	}
	for field, v := range edits {
		if err := b.send(protocol.PaneEditMsg{Type: protocol.TypePaneEdit, ProtocolVersion: protocol.Version, PaneID: paneID, Field: field, Value: v}); err != nil {
			return err
		}
		var pm protocol.PaneMsg
		if err := b.await(protocol.TypePane, &pm); err != nil {
			return err
		}
		logger.Printf("PANE %s=%v", pm.Field, pm.Value)
	}

	for i := 0; i < o.length; i++ {
		hit := [3]int{o.start[0], o.start[1], o.start[2]}
		if o.axis == "x" {
			hit[0] += i
		} else {
			hit[2] += i
		}
		kind := "DRAG"
		if i == 0 {
			kind = "BUTTON_DOWN"
		}
		if err := b.mouse(kind, hit); err != nil {
			return err
		}
	}
	if err := b.mouse("BUTTON_UP", [3]int{o.start[0], o.start[1], o.start[2]}); err != nil {
		return err
	}

	var tx protocol.TxnMsg
	if err := b.await(protocol.TypeTxn, &tx); err != nil {
		return err
	}
	logger.Printf("TXN %s %s ops=%d items=%d", tx.TxnID, tx.State, tx.Ops, tx.Items)
	if tx.State != "COMMITTED" {
		return fmt.Errorf("transaction %s ended %s", tx.TxnID, tx.State)
	}
	return nil
}

func (b *bot) mouse(kind string, hit [3]int) error {
	return b.send(protocol.InputMouseMsg{
		Type:            protocol.TypeInputMouse,
		ProtocolVersion: protocol.Version,
		Button:          "LEFT",
		InputType:       kind,
		Direction:       [3]float64{0, -1, 0},
		Hit:             &hit,
		Face:            [3]int{0, 1, 0},
	})
}

func (b *bot) send(v any) error { return b.conn.WriteJSON(v) }

// await reads until a message of type typ arrives. ERROR messages end the wait.
func (b *bot) await(typ string, dst any) error {
	_ = b.conn.SetReadDeadline(time.Now().Add(b.timeout))
	for {
		_, msg, err := b.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", typ, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case typ:
			return json.Unmarshal(msg, dst)
		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			return fmt.Errorf("server error %s: %s", e.Code, e.Message)
		}
	}
}
