package logmirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestClient_PutFileSignsRequest(t *testing.T) {
	payload := []byte("compressed-bytes")
	var (
		gotPath, gotAuth, gotHash string
		gotBody                   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method=%s", r.Method)
		}
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotHash = r.Header.Get("x-amz-content-sha256")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{Endpoint: srv.URL, Bucket: "logs", AccessKey: "AK", SecretKey: "SK"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	local := filepath.Join(t.TempDir(), "seg.jsonl.zst")
	if err := os.WriteFile(local, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.PutFile(context.Background(), "/audit//a b.jsonl.zst", local); err != nil {
		t.Fatalf("PutFile: %v", err)
	}

	sum := sha256.Sum256(payload)
	if gotPath != "/logs/audit/a%20b.jsonl.zst" {
		t.Fatalf("path=%s", gotPath)
	}
	if gotHash != hex.EncodeToString(sum[:]) || string(gotBody) != string(payload) {
		t.Fatalf("hash=%s body=%q", gotHash, gotBody)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AK/20260301/auto/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature=") {
		t.Fatalf("auth=%s", gotAuth)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "AccessDenied", http.StatusForbidden)
	}))
	defer srv.Close()
	c, _ := NewClient(ClientConfig{Endpoint: srv.URL, Bucket: "logs", AccessKey: "AK", SecretKey: "SK"})
	local := filepath.Join(t.TempDir(), "x")
	_ = os.WriteFile(local, []byte("x"), 0o644)
	err := c.PutFile(context.Background(), "x", local)
	if err == nil || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("err=%v", err)
	}
}

func TestNewClient_RequiresSettings(t *testing.T) {
	if _, err := NewClient(ClientConfig{Endpoint: "example.com", Bucket: "b"}); err == nil {
		t.Fatalf("expected error without credentials")
	}
}

type fakeUploader struct {
	mu      sync.Mutex
	keys    []string
	failN   int
	started chan struct{}
	release chan struct{}
}

func (f *fakeUploader) PutFile(ctx context.Context, key, localPath string) error {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return errors.New("transient")
	}
	f.keys = append(f.keys, key)
	return nil
}

func TestMirror_RetriesAndPrefixesKeys(t *testing.T) {
	dir := t.TempDir()
	seg := filepath.Join(dir, "audit", "audit-2026-03-01-12.jsonl.zst")
	_ = os.MkdirAll(filepath.Dir(seg), 0o755)
	_ = os.WriteFile(seg, []byte("x"), 0o644)
	outside := filepath.Join(t.TempDir(), "other.zst")
	_ = os.WriteFile(outside, []byte("x"), 0o644)

	up := &fakeUploader{failN: 2}
	m := NewMirror(up, Options{DataDir: dir, Prefix: "/editor-a/"})
	m.backoff = time.Millisecond
	m.Enqueue(seg)
	m.Enqueue(outside)
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(up.keys) != 1 || up.keys[0] != "editor-a/audit/audit-2026-03-01-12.jsonl.zst" {
		t.Fatalf("keys=%v", up.keys)
	}
	st := m.Stats()
	if st.UploadedTotal != 1 || st.FailedTotal != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestMirror_FullQueueDrops(t *testing.T) {
	dir := t.TempDir()
	seg := filepath.Join(dir, "a")
	_ = os.WriteFile(seg, []byte("x"), 0o644)

	up := &fakeUploader{started: make(chan struct{}), release: make(chan struct{})}
	m := NewMirror(up, Options{DataDir: dir, Workers: 1, Capacity: 1})
	m.Enqueue(seg)
	<-up.started // worker holds the first file
	m.Enqueue(seg)
	m.Enqueue(seg)
	if got := m.Stats().DroppedTotal; got != 1 {
		t.Fatalf("dropped=%d", got)
	}
	go func() {
		for range up.started {
		}
	}()
	close(up.release)
	_ = m.Close()
	close(up.started)
	if got := m.Stats().UploadedTotal; got != 2 {
		t.Fatalf("uploaded=%d", got)
	}
}
