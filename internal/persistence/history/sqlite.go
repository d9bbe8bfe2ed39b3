package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// DB is an append-mostly activation history index. Writes go through a
// buffered channel into a single writer goroutine; under backpressure
// records are dropped rather than stalling the tick loop. The trace log
// remains the source of truth.
type DB struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqActivation reqKind = iota + 1
	reqSync
)

type req struct {
	kind reqKind

	activation Activation
	done       chan struct{}
}

// Activation is one scheduler activation, keyed by session time.
type Activation struct {
	SessionTime float64
	Name        string
	Category    string
	RareTier    int
	Duration    float64
}

func Open(path string) (*DB, error) {
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

	d := &DB{
		db: db,
		ch: make(chan req, 4096),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload of a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
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
		`CREATE TABLE IF NOT EXISTS activations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_time REAL NOT NULL,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			rare_tier INTEGER NOT NULL,
			duration REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activations_name ON activations(name, session_time);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Close() error {
	var err error
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
		err = d.db.Close()
	})
	return err
}

// RecordActivation enqueues one activation. Non-blocking; drops when the
// writer falls behind.
func (d *DB) RecordActivation(a Activation) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- req{kind: reqActivation, activation: a}:
	default:
	}
}

// Sync blocks until every previously enqueued record has been written.
func (d *DB) Sync() {
	if d == nil || d.closed.Load() {
		return
	}
	done := make(chan struct{})
	d.ch <- req{kind: reqSync, done: done}
	<-done
}

func (d *DB) loop() {
	for r := range d.ch {
		switch r.kind {
		case reqActivation:
			_, err := d.db.Exec(
				`INSERT INTO activations (session_time, name, category, rare_tier, duration, recorded_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				r.activation.SessionTime, r.activation.Name, r.activation.Category,
				r.activation.RareTier, r.activation.Duration,
				time.Now().UTC().Format(time.RFC3339),
			)
			if err != nil {
				// Keep the writer alive; the trace log still has the record.
				continue
			}
		case reqSync:
			close(r.done)
		}
	}
}

// EventCounts returns the number of recorded activations per event name.
func (d *DB) EventCounts() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT name, COUNT(*) FROM activations GROUP BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}

// TotalActivations returns the total number of recorded activations.
func (d *DB) TotalActivations() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM activations`).Scan(&n)
	return n, err
}

// LastActivation returns the most recent session time the named event fired.
func (d *DB) LastActivation(name string) (float64, bool, error) {
	var t float64
	err := d.db.QueryRow(
		`SELECT session_time FROM activations WHERE name = ? ORDER BY session_time DESC LIMIT 1`,
		name,
	).Scan(&t)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return t, true, nil
}
