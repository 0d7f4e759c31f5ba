package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"diamondrush/internal/game"
)

// SQLiteIndex keeps a queryable record of played matches. Writes go
// through a background goroutine; replay files remain the source of
// truth, so a busy index drops writes instead of blocking.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqMatchStart reqKind = iota + 1
	reqMatchEnd
)

type req struct {
	kind  reqKind
	start MatchRow
	end   matchEnd
}

// MatchRow describes one match at start time.
type MatchRow struct {
	ID        string
	StartedAt string
	MapName   string
	Seed      int64
	Ticks     int
	Teams     int
}

type matchEnd struct {
	MatchID    string
	FinishedAt string
	Err        string
	Results    []game.GameResult
	Stats      []game.TeamSummary
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
		ch: make(chan req, 256),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
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
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			map TEXT NOT NULL,
			seed INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			teams INTEGER NOT NULL,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS results (
			match_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			team_name TEXT NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (match_id, rank)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_team ON results(team_name);`,
		`CREATE TABLE IF NOT EXISTS team_stats (
			match_id TEXT NOT NULL,
			team_id TEXT NOT NULL,
			team_name TEXT NOT NULL,
			score INTEGER NOT NULL,
			units INTEGER NOT NULL,
			timeouts INTEGER NOT NULL,
			response_time_avg_ms REAL NOT NULL,
			processing_time_avg_ms REAL NOT NULL,
			PRIMARY KEY (match_id, team_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
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

// RecordMatchStart registers a match before it plays.
func (s *SQLiteIndex) RecordMatchStart(row MatchRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqMatchStart, start: row}:
	default:
	}
}

// RecordMatchEnd stores the final ranking and per-team telemetry.
func (s *SQLiteIndex) RecordMatchEnd(matchID, errText string, results []game.GameResult, stats []game.TeamSummary) {
	if s == nil || s.closed.Load() {
		return
	}
	e := matchEnd{
		MatchID:    matchID,
		FinishedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Err:        errText,
		Results:    results,
		Stats:      stats,
	}
	select {
	case s.ch <- req{kind: reqMatchEnd, end: e}:
	default:
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	for r := range s.ch {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if err := s.apply(tx, r); err != nil {
			_ = tx.Rollback()
			continue
		}
		_ = tx.Commit()
	}
}

func (s *SQLiteIndex) apply(tx *sql.Tx, r req) error {
	switch r.kind {
	case reqMatchStart:
		m := r.start
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO matches(id,started_at,map,seed,ticks,teams) VALUES(?,?,?,?,?,?)`,
			m.ID, m.StartedAt, m.MapName, m.Seed, m.Ticks, m.Teams,
		)
		return err

	case reqMatchEnd:
		e := r.end
		if _, err := tx.Exec(
			`UPDATE matches SET finished_at=?, error=? WHERE id=?`,
			e.FinishedAt, nullable(e.Err), e.MatchID,
		); err != nil {
			return err
		}
		for _, res := range e.Results {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO results(match_id,rank,team_name,score) VALUES(?,?,?,?)`,
				e.MatchID, res.Rank, res.TeamName, res.Score,
			); err != nil {
				return err
			}
		}
		for _, st := range e.Stats {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO team_stats(match_id,team_id,team_name,score,units,timeouts,response_time_avg_ms,processing_time_avg_ms) VALUES(?,?,?,?,?,?,?,?)`,
				e.MatchID, st.TeamID, st.TeamName, st.Score, st.Units, st.Timeouts,
				float64(st.AvgResponseTime)/float64(time.Millisecond),
				float64(st.AvgProcessingTime)/float64(time.Millisecond),
			); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
