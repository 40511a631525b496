package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEditorMetrics_Exposition(t *testing.T) {
	m := New()
	m.VolumeAdded()
	m.VolumeAdded()
	m.SampleDebounced()
	m.GestureIgnored()
	m.ItemsSpawned("minecraft:stick", 5)
	m.GestureFinished("committed", 3*time.Millisecond, 0)
	m.GestureFinished("failed", time.Millisecond, 2)
	m.SessionOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		"voxeledit_preview_volumes_added_total 2",
		"voxeledit_paint_samples_debounced_total 1",
		`voxeledit_gestures_total{result="ignored"} 1`,
		`voxeledit_gestures_total{result="committed"} 1`,
		`voxeledit_items_spawned_total{item="minecraft:stick"} 5`,
		"voxeledit_bulk_block_failures_total 2",
		"voxeledit_sessions 1",
		"voxeledit_gesture_commit_seconds_count 2",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, text)
		}
	}
}

func TestEditorMetrics_WatchQueue(t *testing.T) {
	m := New()
	m.WatchQueue("index", func() float64 { return 3 }, func() float64 { return 7 })
	m.WatchQueue("mirror", func() float64 { return 0 }, func() float64 { return 1 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	text := rec.Body.String()
	for _, want := range []string{
		`voxeledit_queue_depth{queue="index"} 3`,
		`voxeledit_queue_dropped_total{queue="index"} 7`,
		`voxeledit_queue_dropped_total{queue="mirror"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, text)
		}
	}
}
