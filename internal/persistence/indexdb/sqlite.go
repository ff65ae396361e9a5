package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	persistlog "voxelflow.ai/internal/persistence/log"
)

// SQLiteIndex is a read-model index for engine stats, block audit rows and
// snapshot metadata. Writes are serialized through a single background
// goroutine so the sim loop never blocks on the database.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqStats reqKind = iota + 1
	reqAudit
	reqSnapshot
	reqFlush
)

type req struct {
	kind  reqKind
	stats persistlog.StatsEntry
	audit persistlog.BlockAuditEntry
	snap  SnapshotRow
	done  chan struct{}
}

type SnapshotRow struct {
	Tick   uint64
	Path   string
	Chunks int
	Seed   int64
	Height int
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

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	idx := &SQLiteIndex{
		db: db,
		ch: make(chan req, 1024),
	}
	idx.wg.Add(1)
	go idx.writer()
	return idx, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS liquid_stats (
			tick INTEGER PRIMARY KEY,
			queue_size INTEGER NOT NULL,
			throttled INTEGER NOT NULL,
			budget INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			placed INTEGER NOT NULL,
			removed INTEGER NOT NULL,
			conversions INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS block_audit (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			from_id INTEGER NOT NULL,
			to_id INTEGER NOT NULL,
			meta INTEGER NOT NULL,
			reason TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_block_audit_tick ON block_audit(tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			height INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (i *SQLiteIndex) writer() {
	defer i.wg.Done()
	for r := range i.ch {
		switch r.kind {
		case reqStats:
			s := r.stats
			_, _ = i.db.Exec(
				`INSERT OR REPLACE INTO liquid_stats(tick, queue_size, throttled, budget, dropped, placed, removed, conversions)
				 VALUES(?,?,?,?,?,?,?,?)`,
				s.Tick, s.QueueSize, boolInt(s.Throttled), s.CurrentBudget,
				s.DroppedUpdates, s.BlocksPlaced, s.BlocksRemoved, s.SourceConversions,
			)
		case reqAudit:
			a := r.audit
			_, _ = i.db.Exec(
				`INSERT INTO block_audit(tick, x, y, z, from_id, to_id, meta, reason) VALUES(?,?,?,?,?,?,?,?)`,
				a.Tick, a.Pos[0], a.Pos[1], a.Pos[2], a.From, a.To, a.Meta, a.Reason,
			)
		case reqSnapshot:
			sr := r.snap
			_, _ = i.db.Exec(
				`INSERT OR REPLACE INTO snapshots(tick, path, chunks, seed, height, created_at) VALUES(?,?,?,?,?,?)`,
				sr.Tick, sr.Path, sr.Chunks, sr.Seed, sr.Height, time.Now().UTC().Format(time.RFC3339),
			)
		case reqFlush:
			close(r.done)
		}
	}
}

func (i *SQLiteIndex) send(r req) {
	if i == nil || i.closed.Load() {
		return
	}
	select {
	case i.ch <- r:
	default:
		// Index writes are best-effort; never stall the sim loop.
	}
}

func (i *SQLiteIndex) RecordStats(s persistlog.StatsEntry) { i.send(req{kind: reqStats, stats: s}) }

func (i *SQLiteIndex) RecordAudit(a persistlog.BlockAuditEntry) {
	i.send(req{kind: reqAudit, audit: a})
}

func (i *SQLiteIndex) RecordSnapshot(sr SnapshotRow) { i.send(req{kind: reqSnapshot, snap: sr}) }

// Flush blocks until every previously submitted write has been applied.
func (i *SQLiteIndex) Flush() {
	if i == nil || i.closed.Load() {
		return
	}
	done := make(chan struct{})
	i.ch <- req{kind: reqFlush, done: done}
	<-done
}

func (i *SQLiteIndex) Close() error {
	if i == nil {
		return nil
	}
	var err error
	i.once.Do(func() {
		i.closed.Store(true)
		close(i.ch)
		i.wg.Wait()
		err = i.db.Close()
	})
	return err
}

// LatestStats returns up to n most recent stats samples, newest first.
func (i *SQLiteIndex) LatestStats(n int) ([]persistlog.StatsEntry, error) {
	if n <= 0 {
		n = 1
	}
	rows, err := i.db.Query(
		`SELECT tick, queue_size, throttled, budget, dropped, placed, removed, conversions
		 FROM liquid_stats ORDER BY tick DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []persistlog.StatsEntry
	for rows.Next() {
		var s persistlog.StatsEntry
		var throttled int
		if err := rows.Scan(&s.Tick, &s.QueueSize, &throttled, &s.CurrentBudget,
			&s.DroppedUpdates, &s.BlocksPlaced, &s.BlocksRemoved, &s.SourceConversions); err != nil {
			return nil, err
		}
		s.Throttled = throttled != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the newest snapshot row, if any.
func (i *SQLiteIndex) LatestSnapshot() (SnapshotRow, bool, error) {
	var sr SnapshotRow
	row := i.db.QueryRow(`SELECT tick, path, chunks, seed, height FROM snapshots ORDER BY tick DESC LIMIT 1`)
	err := row.Scan(&sr.Tick, &sr.Path, &sr.Chunks, &sr.Seed, &sr.Height)
	if err == sql.ErrNoRows {
		return sr, false, nil
	}
	if err != nil {
		return sr, false, err
	}
	return sr, true, nil
}

// AuditsForTick returns the audit rows recorded for one tick, in sequence
// order.
func (i *SQLiteIndex) AuditsForTick(tick uint64) ([]persistlog.BlockAuditEntry, error) {
	rows, err := i.db.Query(
		`SELECT tick, x, y, z, from_id, to_id, meta, reason FROM block_audit WHERE tick = ? ORDER BY seq`, tick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []persistlog.BlockAuditEntry
	for rows.Next() {
		var a persistlog.BlockAuditEntry
		if err := rows.Scan(&a.Tick, &a.Pos[0], &a.Pos[1], &a.Pos[2], &a.From, &a.To, &a.Meta, &a.Reason); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
