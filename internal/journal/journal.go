// Package journal persists emitted MIDI commands and router state edges to
// SQLite. Writes are queued and applied by a background goroutine so callers
// on the tick path never wait on disk.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Entry kinds.
const (
	KindCommand = "command"
	KindEvent   = "event"
)

// DefaultCapacity bounds the write queue when Open gets zero.
const DefaultCapacity = 256

var ErrClosed = errors.New("journal closed")

// Entry is one journal row.
type Entry struct {
	Session string
	At      time.Time
	Kind    string
	Name    string
	Detail  string
}

// Journal is an append-only SQLite log.
type Journal struct {
	db      *sql.DB
	session string
	log     contracts.Logger

	mu      sync.RWMutex
	closed  bool
	pending chan Entry
	done    chan struct{}

	dropped  atomic.Int64
	dropLog  *logger.Throttle
	writeLog *logger.Throttle
}

// Open creates or opens the database at path and starts the writer.
// Entries are tagged with session.
func Open(path, session string, capacity int, log contracts.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply journal schema: %w", err)
	}

	if capacity < 1 {
		capacity = DefaultCapacity
	}
	j := &Journal{
		db:       db,
		session:  session,
		log:      log,
		pending:  make(chan Entry, capacity),
		done:     make(chan struct{}),
		dropLog:  logger.NewThrottle(time.Second),
		writeLog: logger.NewThrottle(time.Second),
	}
	go j.run()
	return j, nil
}

// RecordCommand queues an emitted MIDI command.
func (j *Journal) RecordCommand(at time.Time, cmd contracts.MidiCommand) {
	j.enqueue(Entry{At: at, Kind: KindCommand, Name: cmd.Kind.String(), Detail: cmd.String()})
}

// RecordEvent queues a router state edge.
func (j *Journal) RecordEvent(at time.Time, kind, detail string) {
	j.enqueue(Entry{At: at, Kind: KindEvent, Name: kind, Detail: detail})
}

func (j *Journal) enqueue(e Entry) {
	e.Session = j.session

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.pending <- e:
	default:
		j.dropped.Add(1)
		j.dropLog.Warn(j.log, "journal queue full, dropping entry", j.log.Field().String("name", e.Name))
	}
}

// Dropped counts entries lost to a full queue.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

func (j *Journal) run() {
	defer close(j.done)
	for e := range j.pending {
		_, err := j.db.Exec(
			`INSERT INTO entries (session, at_ns, kind, name, detail) VALUES (?, ?, ?, ?, ?)`,
			e.Session, e.At.UnixNano(), e.Kind, e.Name, e.Detail)
		if err != nil {
			j.writeLog.Error(j.log, "journal write failed", j.log.Field().Error("error", err))
		}
	}
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT session, at_ns, kind, name, detail FROM entries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ns int64
		if err := rows.Scan(&e.Session, &ns, &e.Kind, &e.Name, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.At = time.Unix(0, ns)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close stops accepting entries, writes everything queued and closes the
// database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrClosed
	}
	j.closed = true
	close(j.pending)
	j.mu.Unlock()

	<-j.done
	return j.db.Close()
}
