package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/config"
	"voxeledit.ai/internal/editor/hub"
	"voxeledit.ai/internal/editor/txn"
	"voxeledit.ai/internal/metrics"
	"voxeledit.ai/internal/persistence/indexdb"
	persistlog "voxeledit.ai/internal/persistence/log"
	"voxeledit.ai/internal/persistence/logmirror"
	"voxeledit.ai/internal/persistence/settingsstore"
	"voxeledit.ai/internal/protocol"
	"voxeledit.ai/internal/tools/itemspawner"
	"voxeledit.ai/internal/transport/ws"
	"voxeledit.ai/internal/world"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

		rt, err := newRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return rt.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	f.String("listen", "", "http listen address (overrides listen)")
	f.String("redis", "", "redis address for tool settings (overrides redis_addr)")
	f.Bool("disable_db", false, "disable the sqlite index")
}

// runtime owns every long-lived component of a running server.
type runtime struct {
	cfg    config.Config
	log    *log.Logger
	cats   *catalogs.Catalogs
	dim    *world.Dimension
	hub    *hub.Hub
	stats  *metrics.Editor
	router http.Handler

	closers []func() error
}

func newRuntime(cfg config.Config, logger *log.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: logger, stats: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	cats, err := catalogs.Load(cfg.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	rt.cats = cats
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	audit := persistlog.NewAuditLogger(cfg.DataDir)
	gestures := persistlog.NewGestureLogger(cfg.DataDir)
	if cfg.Mirror.Enabled() {
		mirror, err := openMirror(cfg, logger)
		if err != nil {
			return nil, err
		}
		// Closers run in reverse, so the mirror drains after the loggers flush.
		rt.closers = append(rt.closers, mirror.Close)
		audit.OnSegmentClosed(mirror.Enqueue)
		gestures.OnSegmentClosed(mirror.Enqueue)
		rt.stats.WatchQueue("mirror",
			func() float64 { return float64(mirror.Stats().QueueDepth) },
			func() float64 { return float64(mirror.Stats().DroppedTotal) })
	}
	rt.closers = append(rt.closers, audit.Close, gestures.Close)
	auditSinks := multiAuditLogger{audit}
	gestureSinks := multiGestureLogger{gestures}

	var recorder txn.Recorder
	if !cfg.DisableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index", "editor.sqlite"))
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		rt.closers = append(rt.closers, idx.Close)
		if err := idx.UpsertCatalogs(cfg.CatalogDir, cats); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
		rt.stats.WatchQueue("index",
			func() float64 { return float64(idx.Stats().QueueDepth) },
			func() float64 {
				st := idx.Stats()
				return float64(st.DropTxnTotal + st.DropAuditTotal + st.DropGestureTotal)
			})
		auditSinks = append(auditSinks, idx)
		gestureSinks = append(gestureSinks, idx)
		recorder = idx
	}

	dim, err := world.New(worldConfig(cfg), cats.Blocks, auditSinks)
	if err != nil {
		return nil, err
	}
	rt.dim = dim
	dim.MarkStart("editord")

	store, err := openSettingsStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, store.Close)

	tool, err := itemspawner.OptionsFromConfig(cfg.Tool)
	if err != nil {
		return nil, err
	}
	tool.Store = store
	tool.Gestures = gestureSinks

	rt.hub = hub.New(hub.Options{
		World:    dim,
		Catalogs: cats,
		Params: protocol.WorldParams{
			Height:      cfg.World.Height,
			BoundaryR:   cfg.World.BoundaryR,
			GroundLevel: cfg.World.GroundLevel,
		},
		Tool:          tool,
		BulkChunkSize: cfg.Tool.BulkChunkSize,
		Recorder:      recorder,
		Metrics:       rt.stats,
		Logger:        log.New(logger.Writer(), "[session] ", logger.Flags()),
	})
	rt.router = rt.routes()
	ok = true
	return rt, nil
}

func openMirror(cfg config.Config, logger *log.Logger) (*logmirror.Mirror, error) {
	client, err := logmirror.NewClient(logmirror.ClientConfig{
		Endpoint:  cfg.Mirror.Endpoint,
		Bucket:    cfg.Mirror.Bucket,
		Region:    cfg.Mirror.Region,
		AccessKey: os.Getenv("VE_MIRROR_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("VE_MIRROR_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		return nil, err
	}
	logger.Printf("mirroring log segments to %s/%s", cfg.Mirror.Endpoint, cfg.Mirror.Bucket)
	return logmirror.NewMirror(client, logmirror.Options{
		DataDir: cfg.DataDir,
		Prefix:  cfg.Mirror.Prefix,
		Workers: cfg.Mirror.Workers,
		Logger:  log.New(logger.Writer(), "[mirror] ", logger.Flags()),
	}), nil
}

func worldConfig(cfg config.Config) world.Config {
	return world.Config{
		Height:      cfg.World.Height,
		BoundaryR:   cfg.World.BoundaryR,
		GroundLevel: cfg.World.GroundLevel,
	}
}

func openSettingsStore(cfg config.Config, logger *log.Logger) (settingsstore.Store, error) {
	if cfg.RedisAddr == "" {
		return settingsstore.NewMemory(), nil
	}
	r := settingsstore.NewRedis(cfg.RedisAddr, os.Getenv("VE_REDIS_PASSWORD"), 0)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	logger.Printf("tool settings in redis %s", cfg.RedisAddr)
	return r, nil
}

func (rt *runtime) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", rt.stats.Handler())
	r.Get("/v1/editor/ws", ws.NewServer(rt.hub, rt.log).Handler())
	return r
}

func (rt *runtime) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              rt.cfg.Listen,
		Handler:           rt.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		rt.log.Printf("listening on %s", rt.cfg.Listen)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	rt.log.Printf("shutting down")
	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		_ = srv.Close()
	}
	rt.hub.Close()
	return nil
}

// Close releases components in reverse order of creation.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

type multiAuditLogger []world.AuditLogger

// WriteAudit writes to every sink; one failing sink does not stop the others.
func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	var errs []error
	for _, l := range m {
		if err := l.WriteAudit(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type multiGestureLogger []itemspawner.GestureLogger

func (m multiGestureLogger) WriteGesture(entry itemspawner.GestureEntry) error {
	var errs []error
	for _, l := range m {
		if err := l.WriteGesture(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
