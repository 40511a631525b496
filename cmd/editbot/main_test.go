package main

import (
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/editor/geom"
	"voxeledit.ai/internal/editor/hub"
	"voxeledit.ai/internal/protocol"
	"voxeledit.ai/internal/tools/itemspawner"
	"voxeledit.ai/internal/transport/ws"
	"voxeledit.ai/internal/world"
)

func startServer(t *testing.T) (string, *world.Dimension) {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	dim, err := world.New(world.Config{Height: 128, BoundaryR: 1000, GroundLevel: 64}, cats.Blocks, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	quiet := log.New(io.Discard, "", 0)
	h := hub.New(hub.Options{
		World:    dim,
		Catalogs: cats,
		Params:   protocol.WorldParams{Height: 128, BoundaryR: 1000, GroundLevel: 64},
		Tool:     itemspawner.DefaultOptions(),
		Logger:   quiet,
	})
	t.Cleanup(h.Close)
	srv := httptest.NewServer(ws.NewServer(h, quiet).Handler())
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), dim
}

func TestRun_PaintsLineWithPaneSettings(t *testing.T) {
	url, dim := startServer(t)
	o := botOptions{
		url:     url,
		player:  "bot",
		item:    "minecraft:apple",
		amount:  2,
		start:   []int{5, 63, 5},
		length:  3,
		axis:    "z",
		timeout: 3 * time.Second,
	}
	if err := run(o, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("run: %v", err)
	}
	for z := 5; z < 8; z++ {
		items := dim.ItemsAt(geom.Vec3i{X: 5, Y: 64, Z: z})
		if len(items) != 1 || items[0].Item != "minecraft:apple" || items[0].Count != 2 {
			t.Fatalf("z=%d items: %+v", z, items)
		}
	}
}

func TestRun_RejectsUnknownItem(t *testing.T) {
	url, _ := startServer(t)
	o := botOptions{url: url, player: "bot", item: "minecraft:nope", start: []int{0, 63, 0}, length: 1, axis: "x", timeout: 3 * time.Second}
	err := run(o, log.New(io.Discard, "", 0))
	if err == nil || !strings.Contains(err.Error(), protocol.ErrBadRequest) {
		t.Fatalf("err=%v", err)
	}
}

func TestRun_ValidatesFlags(t *testing.T) {
	for _, o := range []botOptions{
		{start: []int{1, 2}, length: 1, axis: "x"},
		{start: []int{1, 2, 3}, length: 0, axis: "x"},
		{start: []int{1, 2, 3}, length: 1, axis: "y"},
	} {
		if err := run(o, log.New(io.Discard, "", 0)); err == nil {
			t.Fatalf("expected error for %+v", o)
		}
	}
}
