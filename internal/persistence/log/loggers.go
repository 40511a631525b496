package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxeledit.ai/internal/tools/itemspawner"
	"voxeledit.ai/internal/world"
)

// segment is one open hourly file. Every line is flushed into its own zstd block,
// so a crash loses at most the entry being written.
type segment struct {
	hour string
	path string
	f    *os.File
	enc  *zstd.Encoder
	js   *json.Encoder
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Appending after a restart adds a new zstd frame; readers decode frames in sequence.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{hour: hour, path: path, f: f, enc: enc, js: json.NewEncoder(enc)}, nil
}

func (s *segment) append(v any) error {
	if err := s.js.Encode(v); err != nil {
		return err
	}
	return s.enc.Flush()
}

// seal ends the zstd frame and closes the file.
func (s *segment) seal() error {
	err := s.enc.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// SegmentWriter appends JSON lines to hourly zstd segments named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst under dir.
type SegmentWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu     sync.Mutex
	cur    *segment
	sealed func(path string)
}

func NewSegmentWriter(dir, prefix string) *SegmentWriter {
	return &SegmentWriter{dir: dir, prefix: prefix, now: time.Now}
}

// OnSegmentClosed registers fn to receive the path of every segment sealed on
// rotation or Close. fn runs under the writer lock and must not block.
func (w *SegmentWriter) OnSegmentClosed(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sealed = fn
}

func (w *SegmentWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if w.cur == nil || w.cur.hour != hour {
		if err := w.sealLocked(); err != nil {
			return err
		}
		seg, err := openSegment(filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour)), hour)
		if err != nil {
			return err
		}
		w.cur = seg
	}
	return w.cur.append(v)
}

// Close seals the current segment. Closing twice is a no-op.
func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sealLocked()
}

func (w *SegmentWriter) sealLocked() error {
	seg := w.cur
	if seg == nil {
		return nil
	}
	w.cur = nil
	if err := seg.seal(); err != nil {
		return fmt.Errorf("seal %s: %w", filepath.Base(seg.path), err)
	}
	if w.sealed != nil {
		w.sealed(seg.path)
	}
	return nil
}

// GestureLogger writes one entry per finished paint gesture.
type GestureLogger struct{ w *SegmentWriter }

func NewGestureLogger(dataDir string) *GestureLogger {
	return &GestureLogger{w: NewSegmentWriter(filepath.Join(dataDir, "gestures"), "gestures")}
}

func (l *GestureLogger) WriteGesture(v itemspawner.GestureEntry) error { return l.w.Write(v) }
func (l *GestureLogger) OnSegmentClosed(fn func(path string))          { l.w.OnSegmentClosed(fn) }
func (l *GestureLogger) Close() error                                  { return l.w.Close() }

// AuditLogger writes one entry per world mutation.
type AuditLogger struct{ w *SegmentWriter }

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{w: NewSegmentWriter(filepath.Join(dataDir, "audit"), "audit")}
}

func (l *AuditLogger) WriteAudit(v world.AuditEntry) error  { return l.w.Write(v) }
func (l *AuditLogger) OnSegmentClosed(fn func(path string)) { l.w.OnSegmentClosed(fn) }
func (l *AuditLogger) Close() error                         { return l.w.Close() }
