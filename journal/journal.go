// Package journal persists a history of action commands sent to the
// controller in a local sqlite database.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Event kinds recorded by the controller façade.
const (
	KindRun       = "run"
	KindStop      = "stop"
	KindRainDelay = "rain_delay"
	KindProgram   = "program"
)

// Event is one recorded action. Station and Minutes are set for runs, Days
// for rain delays, Program for program starts.
type Event struct {
	ID      int64
	Kind    string
	Station int
	Minutes int
	Days    int
	Program int
	OK      bool
	At      time.Time
}

// Journal records controller actions. Safe for use from a single controller
// instance; sqlite serializes the rest.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("Journal opened")
	return &Journal{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		station INTEGER,
		minutes INTEGER,
		days INTEGER,
		program INTEGER,
		ok BOOLEAN NOT NULL,
		at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	return nil
}

func (j *Journal) Close() error { return j.db.Close() }

// RecordRun logs a manual station run.
func (j *Journal) RecordRun(station, minutes int, ok bool) error {
	return j.insert(Event{Kind: KindRun, Station: station, Minutes: minutes, OK: ok})
}

// RecordStop logs a stop-irrigation command.
func (j *Journal) RecordStop(ok bool) error {
	return j.insert(Event{Kind: KindStop, OK: ok})
}

// RecordRainDelay logs a rain delay change.
func (j *Journal) RecordRainDelay(days int, ok bool) error {
	return j.insert(Event{Kind: KindRainDelay, Days: days, OK: ok})
}

// RecordProgram logs a manual program start.
func (j *Journal) RecordProgram(program int, ok bool) error {
	return j.insert(Event{Kind: KindProgram, Program: program, OK: ok})
}

func (j *Journal) insert(e Event) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO events (kind, station, minutes, days, program, ok, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Station, e.Minutes, e.Days, e.Program, e.OK, time.Now().Format(time.RFC3339))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert %s event: %w", e.Kind, err)
	}
	return tx.Commit()
}

// Recent returns the newest events, most recent first.
func (j *Journal) Recent(limit int) ([]Event, error) {
	rows, err := j.db.Query(`SELECT id, kind, station, minutes, days, program, ok, at FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var at string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Station, &e.Minutes, &e.Days, &e.Program, &e.OK, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339, at)
		events = append(events, e)
	}
	return events, rows.Err()
}
