package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/editor/txn"
	"voxeledit.ai/internal/tools/itemspawner"
	"voxeledit.ai/internal/world"
)

// SQLiteIndex is a queryable secondary index of editor history. Writes are queued
// and applied in batches by a single writer goroutine; the JSONL logs remain the
// source of truth, so a full queue drops the write and counts it.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTxn     atomic.Uint64
	dropAudit   atomic.Uint64
	dropGesture atomic.Uint64
}

type reqKind int

const (
	reqTxn reqKind = iota + 1
	reqAudit
	reqGesture
)

type req struct {
	kind reqKind

	owner   string
	txn     txn.Transaction
	audit   world.AuditEntry
	gesture itemspawner.GestureEntry
}

type Stats struct {
	DropTxnTotal     uint64
	DropAuditTotal   uint64
	DropGestureTotal uint64
	QueueDepth       int
	QueueCapacity    int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, queue)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			state TEXT NOT NULL,
			ops INTEGER NOT NULL,
			opened_at TEXT NOT NULL,
			closed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions(owner, closed_at);`,
		`CREATE TABLE IF NOT EXISTS txn_ops (
			txn_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			item TEXT NOT NULL,
			count INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			PRIMARY KEY (txn_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_txn_ops_item ON txn_ops(item);`,
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			time TEXT NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor ON audits(actor, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos ON audits(x, z, y);`,
		`CREATE TABLE IF NOT EXISTS gestures (
			session_id TEXT NOT NULL,
			gesture_id TEXT NOT NULL,
			player TEXT NOT NULL,
			txn_id TEXT,
			item TEXT NOT NULL,
			amount INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			spawned INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			result TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			time TEXT NOT NULL,
			PRIMARY KEY (session_id, gesture_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		DropTxnTotal:     s.dropTxn.Load(),
		DropAuditTotal:   s.dropAudit.Load(),
		DropGestureTotal: s.dropGesture.Load(),
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
	}
}

// RecordTransaction implements txn.Recorder.
func (s *SQLiteIndex) RecordTransaction(owner string, t txn.Transaction) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqTxn, owner: owner, txn: t}:
	default:
		s.dropTxn.Add(1)
	}
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteGesture(entry itemspawner.GestureEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqGesture, gesture: entry}:
	default:
		s.dropGesture.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("blocks_defs", filepath.Join(configDir, "blocks.json"))
		read("items_defs", filepath.Join(configDir, "items.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b := raw["blocks_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	if b := raw["items_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "items_defs", digest: cats.Items.DefsDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTxn, _ := s.db.Prepare(`INSERT OR REPLACE INTO transactions(id,owner,name,state,ops,opened_at,closed_at) VALUES(?,?,?,?,?,?,?)`)
	insertOp, _ := s.db.Prepare(`INSERT OR REPLACE INTO txn_ops(txn_id,seq,kind,entity_id,item,count,x,y,z) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(time,actor,action,x,y,z,reason,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertGesture, _ := s.db.Prepare(`INSERT OR REPLACE INTO gestures(session_id,gesture_id,player,txn_id,item,amount,blocks,spawned,failed,result,duration_ms,time) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTxn, insertOp, insertAudit, insertGesture} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	// Commit when the queue drains so readers never wait on an idle batch.
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTxn:
			t := r.txn
			if !exec(insertTxn,
				t.ID,
				r.owner,
				t.Name,
				string(t.State),
				len(t.Ops),
				t.OpenedAt.UTC().Format(time.RFC3339Nano),
				t.ClosedAt.UTC().Format(time.RFC3339Nano),
			) {
				continue
			}
			for i, op := range t.Ops {
				if !exec(insertOp, t.ID, i, string(op.Kind), op.EntityID, op.Item, op.Count, op.Pos.X, op.Pos.Y, op.Pos.Z) {
					break
				}
			}

		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			exec(insertAudit,
				a.Time.UTC().Format(time.RFC3339Nano),
				a.Actor,
				a.Action,
				a.Pos[0], a.Pos[1], a.Pos[2],
				a.Reason,
				string(raw),
			)

		case reqGesture:
			g := r.gesture
			exec(insertGesture,
				g.SessionID,
				g.GestureID,
				g.Player,
				g.TxnID,
				g.Item,
				g.Amount,
				g.Blocks,
				g.Spawned,
				g.Failed,
				g.Result,
				g.DurationMs,
				g.Time.UTC().Format(time.RFC3339Nano),
			)
		}
		flushIfNeeded()
	}

	commit()
}
