// Package indexdb keeps a queryable read model of runs in sqlite. It is fed
// asynchronously and never slows a run down: generation rows are dropped when
// the writer falls behind, and the generation log stays the source of truth.
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

	"blockevo.ai/internal/sim/evolve"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropGenerations atomic.Uint64
	writeErrors     atomic.Uint64
}

var _ evolve.Recorder = (*SQLiteIndex)(nil)

type reqKind int

const (
	reqRun reqKind = iota + 1
	reqGeneration
	reqEnd
	reqSync
)

type req struct {
	kind reqKind

	run evolve.RunRecord
	gen evolve.GenerationRecord
	end evolve.Summary

	done chan struct{}
}

// Stats reports queue health.
type Stats struct {
	QueueDepth          int    `json:"queue_depth"`
	QueueCapacity       int    `json:"queue_capacity"`
	DropGenerationTotal uint64 `json:"drop_generation_total"`
	WriteErrorTotal     uint64 `json:"write_error_total"`
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

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
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
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			root_x INTEGER NOT NULL,
			root_y INTEGER NOT NULL,
			root_z INTEGER NOT NULL,
			genotype TEXT NOT NULL,
			config_json TEXT NOT NULL,
			finished_at TEXT,
			generations INTEGER,
			final_size INTEGER,
			offspring INTEGER,
			canceled INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			occupied INTEGER NOT NULL,
			inherited INTEGER NOT NULL,
			vacated INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			offspring INTEGER NOT NULL,
			mutations INTEGER NOT NULL,
			recombinations INTEGER NOT NULL,
			size INTEGER NOT NULL,
			resource_total INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (run_id, generation)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_generations_size ON generations(run_id, size);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
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
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(s.ch),
		QueueCapacity:       cap(s.ch),
		DropGenerationTotal: s.dropGenerations.Load(),
		WriteErrorTotal:     s.writeErrors.Load(),
	}
}

// BeginRun and EndRun wait for queue space; they happen once per run.
func (s *SQLiteIndex) BeginRun(r evolve.RunRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.ch <- req{kind: reqRun, run: r}
	return nil
}

func (s *SQLiteIndex) WriteGeneration(g evolve.GenerationRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqGeneration, gen: g}:
	default:
		s.dropGenerations.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) EndRun(sum evolve.Summary) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.ch <- req{kind: reqEnd, end: sum}
	return nil
}

// Flush waits until everything queued so far is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,seed,started_at,root_x,root_y,root_z,genotype,config_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertGen, _ := s.db.Prepare(`INSERT OR REPLACE INTO generations(run_id,generation,occupied,inherited,vacated,attempts,offspring,mutations,recombinations,size,resource_total,digest) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	finishRun, _ := s.db.Prepare(`UPDATE runs SET finished_at=?, generations=?, final_size=?, offspring=?, canceled=? WHERE run_id=?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertGen, finishRun} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
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
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil {
			s.writeErrors.Add(1)
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			s.writeErrors.Add(1)
			return
		}
		opCount++
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			s.writeErrors.Add(1)
			continue
		}
		switch r.kind {
		case reqRun:
			cfg, _ := json.Marshal(r.run.Config)
			exec(insertRun, r.run.RunID, r.run.Seed, r.run.StartedAt,
				r.run.Root[0], r.run.Root[1], r.run.Root[2], r.run.Genotype, string(cfg))
			// Runs land before their generations are read back.
			commit()

		case reqGeneration:
			g := r.gen
			exec(insertGen, g.RunID, g.Generation, g.Occupied, g.Inherited, g.Vacated, g.Attempts,
				g.Offspring, g.Mutations, g.Recombinations, g.Size, g.ResourceTotal, g.Digest)

		case reqEnd:
			e := r.end
			canceled := 0
			if e.Canceled {
				canceled = 1
			}
			exec(finishRun, e.FinishedAt, e.Generations, e.FinalSize, e.Offspring, canceled, e.RunID)
			commit()
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
