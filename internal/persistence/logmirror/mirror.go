package logmirror

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Uploader interface {
	PutFile(ctx context.Context, key, localPath string) error
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	UploadedTotal uint64
	FailedTotal   uint64
	DroppedTotal  uint64
}

// Mirror uploads files from a bounded queue with a small worker pool. Object keys
// are the file paths relative to the data dir, under an optional prefix.
type Mirror struct {
	up      Uploader
	dataDir string
	prefix  string
	logger  *log.Logger
	backoff time.Duration

	jobs chan string
	wg   sync.WaitGroup
	once sync.Once

	uploaded atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
}

type Options struct {
	DataDir  string
	Prefix   string
	Workers  int
	Capacity int
	Logger   *log.Logger
}

func NewMirror(up Uploader, opts Options) *Mirror {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 256
	}
	m := &Mirror{
		up:      up,
		dataDir: opts.DataDir,
		prefix:  strings.Trim(strings.ReplaceAll(opts.Prefix, "\\", "/"), "/"),
		logger:  opts.Logger,
		backoff: 200 * time.Millisecond,
		jobs:    make(chan string, opts.Capacity),
	}
	for i := 0; i < opts.Workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for p := range m.jobs {
				m.upload(p)
			}
		}()
	}
	return m
}

// Enqueue schedules localPath for upload. It never blocks; a full queue drops the
// file and counts it.
func (m *Mirror) Enqueue(localPath string) {
	if m == nil {
		return
	}
	select {
	case m.jobs <- localPath:
	default:
		n := m.dropped.Add(1)
		m.printf("mirror drop %s queue full dropped_total=%d", localPath, n)
	}
}

// Close drains the queue and waits for in-flight uploads.
func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	m.once.Do(func() {
		close(m.jobs)
		m.wg.Wait()
	})
	return nil
}

func (m *Mirror) Stats() Stats {
	return Stats{
		QueueDepth:    len(m.jobs),
		QueueCapacity: cap(m.jobs),
		UploadedTotal: m.uploaded.Load(),
		FailedTotal:   m.failed.Load(),
		DroppedTotal:  m.dropped.Load(),
	}
}

func (m *Mirror) upload(localPath string) {
	key, err := m.objectKey(localPath)
	if err != nil {
		m.failed.Add(1)
		m.printf("mirror skip %s: %v", localPath, err)
		return
	}
	const attempts = 4
	for i := 1; ; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = m.up.PutFile(ctx, key, localPath)
		cancel()
		if err == nil {
			m.uploaded.Add(1)
			m.printf("mirror uploaded %s", key)
			return
		}
		if i == attempts {
			break
		}
		time.Sleep(time.Duration(i*i) * m.backoff)
	}
	m.failed.Add(1)
	m.printf("mirror upload %s failed: %v", key, err)
}

func (m *Mirror) objectKey(localPath string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	base, err := filepath.Abs(m.dataDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("outside data dir %s", base)
	}
	if m.prefix != "" {
		rel = path.Join(m.prefix, rel)
	}
	return rel, nil
}

func (m *Mirror) printf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
