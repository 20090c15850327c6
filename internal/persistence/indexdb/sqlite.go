package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"lootfall.ai/internal/sim/catalogs"
	"lootfall.ai/internal/sim/tuning"
	"lootfall.ai/internal/sim/world"
)

// SQLiteIndex is a queryable read model of deaths and payouts. Writes go through a
// buffered queue drained by one goroutine; the JSONL logs stay the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropDeathTotal atomic.Uint64
}

type reqKind int

const (
	reqDeath reqKind = iota + 1
	reqSync
)

type req struct {
	kind  reqKind
	death world.DeathRecord
	ack   chan struct{}
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropDeathTotal uint64 `json:"drop_death_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
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
		`CREATE TABLE IF NOT EXISTS deaths (
			world TEXT NOT NULL,
			resource_id INTEGER NOT NULL,
			died_at TEXT NOT NULL,
			type TEXT NOT NULL,
			currency TEXT NOT NULL,
			value INTEGER NOT NULL,
			max_hp INTEGER NOT NULL,
			total_damage INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (world, resource_id, died_at)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deaths_type ON deaths(type, died_at);`,
		`CREATE TABLE IF NOT EXISTS payouts (
			world TEXT NOT NULL,
			resource_id INTEGER NOT NULL,
			died_at TEXT NOT NULL,
			attacker TEXT NOT NULL,
			currency TEXT NOT NULL,
			contribution INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			top INTEGER NOT NULL,
			PRIMARY KEY (world, resource_id, died_at, attacker)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_payouts_attacker ON payouts(attacker, died_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) DB() *sql.DB { return s.db }

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

// WriteDeath queues a death for indexing. It never blocks; a full queue drops the row.
func (s *SQLiteIndex) WriteDeath(rec world.DeathRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqDeath, death: rec}:
	default:
		s.dropDeathTotal.Add(1)
	}
	return nil
}

// Sync waits until everything queued before it is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	ack := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, ack: ack}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropDeathTotal: s.dropDeathTotal.Load(),
	}
}

// UpsertCatalogs records the resource catalog and the tuning actually applied.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" && cats != nil {
		if b, err := os.ReadFile(filepath.Join(configDir, catalogs.ResourcesFile)); err == nil && len(b) > 0 {
			rows = append(rows, kv{name: "resources", digest: cats.Resources.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
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

	insertDeath, _ := s.db.Prepare(`INSERT OR REPLACE INTO deaths(world,resource_id,died_at,type,currency,value,max_hp,total_damage,x,y,z,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertPayout, _ := s.db.Prepare(`INSERT OR REPLACE INTO payouts(world,resource_id,died_at,attacker,currency,contribution,amount,top) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertDeath != nil {
			_ = insertDeath.Close()
		}
		if insertPayout != nil {
			_ = insertPayout.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
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
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.ack)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqDeath:
			d := r.death
			if insertDeath == nil || insertPayout == nil {
				continue
			}
			raw, _ := json.Marshal(d)
			if _, err := tx.Stmt(insertDeath).Exec(
				d.World, d.ResourceID, d.Time, d.Type, d.Currency,
				d.Value, d.MaxHP, d.TotalDamage,
				d.Pos.X, d.Pos.Y, d.Pos.Z,
				string(raw),
			); err != nil {
				rollback()
				continue
			}
			opCount++
			for _, p := range d.Payouts {
				top := 0
				if p.Top {
					top = 1
				}
				if _, err := tx.Stmt(insertPayout).Exec(
					d.World, d.ResourceID, d.Time, string(p.Attacker), d.Currency,
					p.Contribution, p.Amount, top,
				); err != nil {
					rollback()
					break
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
