// Package hub joins editor connections to sessions: one session per connection,
// each with the Item Spawner installed.
package hub

import (
	"context"
	"fmt"
	"log"
	"sync"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/editor/session"
	"voxeledit.ai/internal/editor/txn"
	"voxeledit.ai/internal/metrics"
	"voxeledit.ai/internal/protocol"
	"voxeledit.ai/internal/tools/itemspawner"
	"voxeledit.ai/internal/transport/ws"
	"voxeledit.ai/internal/world"
)

type Options struct {
	World    *world.Dimension
	Catalogs *catalogs.Catalogs
	Params   protocol.WorldParams

	Tool          itemspawner.Options
	BulkChunkSize int

	Recorder txn.Recorder
	Metrics  *metrics.Editor
	Logger   *log.Logger
}

type Hub struct {
	opts Options
	log  *log.Logger

	mu       sync.Mutex
	sessions map[string]*client
}

func New(opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Hub{opts: opts, log: opts.Logger, sessions: map[string]*client{}}
}

var _ ws.Host = (*Hub)(nil)

// Join starts a session for the connection. The session ends when ctx is done or
// the client leaves.
func (h *Hub) Join(ctx context.Context, hello protocol.HelloMsg, out chan []byte) (ws.Client, protocol.WelcomeMsg, error) {
	sess := session.New(session.Options{
		Player:        hello.Player,
		World:         h.opts.World.View(hello.Player),
		Items:         &h.opts.Catalogs.Items,
		Recorder:      h.opts.Recorder,
		BulkChunkSize: h.opts.BulkChunkSize,
		Out:           out,
		Logger:        h.log,
	})
	sctx, cancel := context.WithCancel(ctx)
	go func() { _ = sess.Run(sctx) }()

	c := &client{hub: h, sess: sess, cancel: cancel}

	tool := h.opts.Tool
	if tool.Logger == nil {
		tool.Logger = log.New(h.log.Writer(), "[itemspawner] ", h.log.Flags())
	}
	if h.opts.Metrics != nil {
		tool.Metrics = h.opts.Metrics
	}

	var (
		welcome protocol.WelcomeMsg
		err     error
	)
	callErr := sess.Loop().Call(ctx, func() {
		if _, err = itemspawner.Install(sess, tool); err != nil {
			return
		}
		tools, panes, keys := sess.Manifest()
		welcome = protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SessionID:       sess.ID,
			Player:          sess.Player,
			Tools:           tools,
			Panes:           panes,
			KeyBindings:     keys,
			Catalogs: protocol.CatalogDigests{
				BlockPalette: protocol.DigestRef{Digest: h.opts.Catalogs.Blocks.PaletteDigest, Count: len(h.opts.Catalogs.Blocks.Palette)},
				ItemPalette:  protocol.DigestRef{Digest: h.opts.Catalogs.Items.PaletteDigest, Count: len(h.opts.Catalogs.Items.Palette)},
			},
			World: h.opts.Params,
		}
	})
	if callErr != nil {
		err = callErr
	}
	if err != nil {
		cancel()
		<-sess.Loop().Done()
		return nil, protocol.WelcomeMsg{}, fmt.Errorf("join %s: %w", hello.Player, err)
	}

	h.mu.Lock()
	h.sessions[sess.ID] = c
	h.mu.Unlock()
	if h.opts.Metrics != nil {
		h.opts.Metrics.SessionOpened()
	}
	h.log.Printf("session %s joined player=%s client=%q", sess.ID, hello.Player, hello.ClientName)
	return c, welcome, nil
}

// Sessions returns the number of joined sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close ends every session and waits for their loops to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	cs := make([]*client, 0, len(h.sessions))
	for _, c := range h.sessions {
		cs = append(cs, c)
	}
	h.mu.Unlock()
	for _, c := range cs {
		c.Leave()
	}
}

type client struct {
	hub    *Hub
	sess   *session.Session
	cancel context.CancelFunc
	once   sync.Once
}

func (c *client) Deliver(typ string, raw []byte) error {
	ev, err := session.DecodeEvent(typ, raw)
	if err != nil {
		return err
	}
	select {
	case c.sess.Inbox() <- ev:
		return nil
	case <-c.sess.Loop().Done():
		return session.ErrClosed
	}
}

func (c *client) Leave() {
	c.once.Do(func() {
		c.cancel()
		<-c.sess.Loop().Done()
		c.hub.mu.Lock()
		delete(c.hub.sessions, c.sess.ID)
		c.hub.mu.Unlock()
		if c.hub.opts.Metrics != nil {
			c.hub.opts.Metrics.SessionClosed()
		}
		c.hub.log.Printf("session %s left", c.sess.ID)
	})
}
