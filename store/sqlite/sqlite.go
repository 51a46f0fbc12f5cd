// Package sqlite implements the store interface on an embedded SQLite
// database (modernc.org/sqlite, pure Go).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/engramhq/engram-go/core"
	"github.com/engramhq/engram-go/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	sender          TEXT NOT NULL,
	push_name       TEXT NOT NULL DEFAULT '',
	content         TEXT NOT NULL,
	from_me         INTEGER NOT NULL DEFAULT 0,
	timestamp       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS contacts (
	jid        TEXT PRIMARY KEY,
	push_name  TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id    TEXT NOT NULL DEFAULT '',
	type          TEXT NOT NULL,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	event_time    INTEGER,
	location      TEXT NOT NULL DEFAULT '',
	participants  TEXT NOT NULL DEFAULT '[]',
	keywords      TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	context_url   TEXT NOT NULL DEFAULT '',
	sender        TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL,
	snoozed_until INTEGER
);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(status, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at DESC);

CREATE TABLE IF NOT EXISTS triggers (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id   INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	value      TEXT NOT NULL,
	fired      INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_triggers_event ON triggers(event_id);
`

// activeStatuses are the non-terminal lifecycle states.
const activeStatuses = "('discovered','scheduled','snoozed','reminded')"

// SQLiteStore implements store.Store on an embedded database.
type SQLiteStore struct {
	db       *sql.DB
	semantic store.SemanticIndex
}

// Option configures the store.
type Option func(*SQLiteStore)

// WithSemanticIndex delegates full-text relevance search to a vector
// index. Events are kept in sync on insert, update and delete.
func WithSemanticIndex(idx store.SemanticIndex) Option {
	return func(s *SQLiteStore) {
		s.semantic = idx
	}
}

// Open initializes the database at path, creating directories and schema
// as needed.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Printf("[SQLITE] %s failed: %v", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertMessage durably records a raw inbound message.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *core.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (id, conversation_id, sender, push_name, content, from_me, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Sender, msg.PushName, msg.Content,
		boolToInt(msg.FromMe), msg.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// UpsertContact records or refreshes a sender's display name.
func (s *SQLiteStore) UpsertContact(ctx context.Context, jid, pushName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (jid, push_name, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(jid) DO UPDATE SET push_name = excluded.push_name, updated_at = excluded.updated_at`,
		jid, pushName, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages from a conversation, newest
// first, excluding the given message id.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int, excludeID string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender, push_name, content, from_me, timestamp
		 FROM messages WHERE conversation_id = ? AND id != ?
		 ORDER BY timestamp DESC LIMIT ?`,
		conversationID, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []core.Message
	for rows.Next() {
		var m core.Message
		var fromMe int
		var ts int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.PushName, &m.Content, &fromMe, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.FromMe = fromMe != 0
		m.Timestamp = time.Unix(ts, 0)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

const eventColumns = `id, message_id, type, title, description, event_time, location,
	participants, keywords, confidence, status, context_url, sender, created_at`

// scanEvent reads one event row.
func scanEvent(rows interface{ Scan(...any) error }) (core.Event, error) {
	var e core.Event
	var eventTime sql.NullInt64
	var participants string
	var createdAt int64
	var typ, status string
	err := rows.Scan(&e.ID, &e.MessageID, &typ, &e.Title, &e.Description,
		&eventTime, &e.Location, &participants, &e.Keywords, &e.Confidence,
		&status, &e.ContextURL, &e.Sender, &createdAt)
	if err != nil {
		return e, err
	}
	e.Type = core.ParseEventType(typ)
	e.Status = core.ParseEventStatus(status)
	e.Confidence = core.ClampConfidence(e.Confidence)
	if eventTime.Valid {
		t := time.Unix(eventTime.Int64, 0)
		e.EventTime = &t
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	if participants != "" {
		if err := json.Unmarshal([]byte(participants), &e.Participants); err != nil {
			e.Participants = nil
		}
	}
	return e, nil
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]core.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ActiveEvents returns the most-recently-active non-terminal events.
func (s *SQLiteStore) ActiveEvents(ctx context.Context, limit int) ([]core.Event, error) {
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE status IN `+activeStatuses+`
		 ORDER BY updated_at DESC LIMIT ?`, limit)
}

// FindActiveEventsByKeyword returns active events matching the keyword.
func (s *SQLiteStore) FindActiveEventsByKeyword(ctx context.Context, keyword string) ([]core.Event, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE status IN `+activeStatuses+`
		   AND (keywords LIKE ? OR LOWER(title) LIKE ? OR LOWER(description) LIKE ?)
		 ORDER BY updated_at DESC`, pattern, pattern, pattern)
}

// GetEvent fetches one event by id; nil when absent.
func (s *SQLiteStore) GetEvent(ctx context.Context, id int64) (*core.Event, error) {
	events, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// InsertEvent persists a new event and returns its id.
func (s *SQLiteStore) InsertEvent(ctx context.Context, e *core.Event) (int64, error) {
	participants, _ := json.Marshal(e.Participants)
	var eventTime any
	if e.EventTime != nil {
		eventTime = e.EventTime.Unix()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (message_id, type, title, description, event_time, location,
			participants, keywords, confidence, status, context_url, sender, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MessageID, string(e.Type), e.Title, e.Description, eventTime, e.Location,
		string(participants), e.Keywords, core.ClampConfidence(e.Confidence),
		string(e.Status), e.ContextURL, e.Sender, e.CreatedAt.Unix(), e.CreatedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert event id: %w", err)
	}
	e.ID = id

	if s.semantic != nil {
		if err := s.semantic.IndexEvent(ctx, *e); err != nil {
			log.Printf("[SQLITE] Semantic index add failed for event %d: %v", id, err)
		}
	}
	return id, nil
}

// UpdateEvent overwrites an event's mutable fields.
func (s *SQLiteStore) UpdateEvent(ctx context.Context, e *core.Event) error {
	participants, _ := json.Marshal(e.Participants)
	var eventTime any
	if e.EventTime != nil {
		eventTime = e.EventTime.Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET type = ?, title = ?, description = ?, event_time = ?, location = ?,
			participants = ?, keywords = ?, confidence = ?, status = ?, context_url = ?, updated_at = ?
		 WHERE id = ?`,
		string(e.Type), e.Title, e.Description, eventTime, e.Location,
		string(participants), e.Keywords, core.ClampConfidence(e.Confidence),
		string(e.Status), e.ContextURL, time.Now().Unix(), e.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	if s.semantic != nil {
		if err := s.semantic.IndexEvent(ctx, *e); err != nil {
			log.Printf("[SQLITE] Semantic index refresh failed for event %d: %v", e.ID, err)
		}
	}
	return nil
}

// SetEventStatus transitions an event's lifecycle status.
func (s *SQLiteStore) SetEventStatus(ctx context.Context, id int64, status core.EventStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("set event status: %w", err)
	}
	return nil
}

// SnoozeEvent marks an event snoozed until the given re-arm time.
func (s *SQLiteStore) SnoozeEvent(ctx context.Context, id int64, until time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET status = ?, snoozed_until = ?, updated_at = ? WHERE id = ?`,
		string(core.StatusSnoozed), until.Unix(), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("snooze event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event; the trigger cascade is enforced by the
// foreign key.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if s.semantic != nil {
		if err := s.semantic.RemoveEvent(ctx, id); err != nil {
			log.Printf("[SQLITE] Semantic index remove failed for event %d: %v", id, err)
		}
	}
	return nil
}

// FindDuplicateEvent returns an event created at or after `since` whose
// title duplicates the given title, or nil.
func (s *SQLiteStore) FindDuplicateEvent(ctx context.Context, title string, since time.Time) (*core.Event, error) {
	events, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE created_at >= ? ORDER BY created_at DESC`,
		since.Unix())
	if err != nil {
		return nil, err
	}
	for i := range events {
		if core.TitlesDuplicate(events[i].Title, title) {
			return &events[i], nil
		}
	}
	return nil, nil
}

// ConflictingEvents returns scheduled events (other than excludeID) whose
// time falls within +/-window of t.
func (s *SQLiteStore) ConflictingEvents(ctx context.Context, t time.Time, window time.Duration, excludeID int64) ([]core.Event, error) {
	lo := t.Add(-window).Unix()
	hi := t.Add(window).Unix()
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE status = ? AND id != ? AND event_time IS NOT NULL
		   AND event_time BETWEEN ? AND ?
		 ORDER BY event_time`, string(core.StatusScheduled), excludeID, lo, hi)
}

// InsertTrigger persists a trigger for its owning event.
func (s *SQLiteStore) InsertTrigger(ctx context.Context, tr *core.Trigger) (int64, error) {
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO triggers (event_id, type, value, fired, created_at) VALUES (?, ?, ?, ?, ?)`,
		tr.EventID, string(tr.Type), tr.Value, boolToInt(tr.Fired), tr.CreatedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert trigger: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert trigger id: %w", err)
	}
	tr.ID = id
	return id, nil
}

// TriggersForEvent lists an event's triggers, oldest first.
func (s *SQLiteStore) TriggersForEvent(ctx context.Context, eventID int64) ([]core.Trigger, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, type, value, fired, created_at FROM triggers
		 WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("triggers for event: %w", err)
	}
	defer rows.Close()

	var triggers []core.Trigger
	for rows.Next() {
		var tr core.Trigger
		var typ string
		var fired int
		var createdAt int64
		if err := rows.Scan(&tr.ID, &tr.EventID, &typ, &tr.Value, &fired, &createdAt); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		tr.Type = core.TriggerType(typ)
		tr.Fired = fired != 0
		tr.CreatedAt = time.Unix(createdAt, 0)
		triggers = append(triggers, tr)
	}
	return triggers, rows.Err()
}

// SearchEventsByLocation finds recent events whose location, context tag or
// keywords match the keyword.
func (s *SQLiteStore) SearchEventsByLocation(ctx context.Context, keyword string, withinDays, limit int) ([]core.Event, error) {
	cutoff := time.Now().AddDate(0, 0, -withinDays).Unix()
	pattern := "%" + strings.ToLower(keyword) + "%"
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE created_at >= ?
		   AND (LOWER(location) LIKE ? OR LOWER(context_url) LIKE ? OR keywords LIKE ?)
		 ORDER BY updated_at DESC LIMIT ?`,
		cutoff, pattern, pattern, pattern, limit)
}

// SearchEventsByKeywords is the full-text relevance fallback. With a
// semantic index configured the query goes through vector similarity;
// otherwise events in the window are scored by keyword hit count.
func (s *SQLiteStore) SearchEventsByKeywords(ctx context.Context, keywords []string, withinDays, limit int) ([]core.Event, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	if s.semantic != nil {
		ids, err := s.semantic.Search(ctx, strings.Join(keywords, " "), limit)
		if err != nil {
			log.Printf("[SQLITE] Semantic search failed, falling back to keyword scoring: %v", err)
		} else {
			cutoff := time.Now().AddDate(0, 0, -withinDays)
			var events []core.Event
			for _, id := range ids {
				e, err := s.GetEvent(ctx, id)
				if err != nil {
					return nil, err
				}
				if e != nil && !e.CreatedAt.Before(cutoff) {
					events = append(events, *e)
				}
			}
			return events, nil
		}
	}

	cutoff := time.Now().AddDate(0, 0, -withinDays).Unix()
	candidates, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE created_at >= ?`, cutoff)
	if err != nil {
		return nil, err
	}

	type scored struct {
		event core.Event
		hits  int
	}
	var matches []scored
	for _, e := range candidates {
		text := strings.ToLower(e.Title + " " + e.Description + " " + e.Keywords + " " + e.Location)
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, scored{event: e, hits: hits})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].hits > matches[j].hits })

	var events []core.Event
	for _, m := range matches {
		events = append(events, m.event)
		if len(events) == limit {
			break
		}
	}
	return events, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
