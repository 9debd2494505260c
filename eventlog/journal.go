package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coverctl/cover"
)

// DefaultBuffer is the number of events held while the database is busy.
const DefaultBuffer = 256

// timeFormat sorts lexically in chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Entry is a journaled event.
type Entry struct {
	ID        string    `json:"id"`
	Cover     string    `json:"cover"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Position  float64   `json:"position"`
	Operation string    `json:"operation"`
	At        time.Time `json:"at"`
}

// Journal writes cover events to the database. It implements cover.Recorder: Record never
// blocks, events are written by Run.
type Journal struct {
	db     *sql.DB
	events chan cover.Event
	logger *zap.SugaredLogger
}

// NewJournal returns a journal holding up to buffer pending events.
func NewJournal(db *sql.DB, buffer int, logger *zap.SugaredLogger) *Journal {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Journal{
		db:     db,
		events: make(chan cover.Event, buffer),
		logger: logger,
	}
}

// Record implements cover.Recorder. The event is dropped if the buffer is full.
func (j *Journal) Record(e cover.Event) {
	select {
	case j.events <- e:
	default:
		j.logger.Warnw("journal buffer full, dropping event", "cover", e.Cover, "kind", e.Kind)
	}
}

// Run writes recorded events until ctx is cancelled, then flushes what is still buffered.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			j.flush()
			return nil
		case e := <-j.events:
			if err := j.Append(ctx, e); err != nil {
				j.logger.Errorw("failed to journal event", "cover", e.Cover, "kind", e.Kind, "err", err)
			}
		}
	}
}

func (j *Journal) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case e := <-j.events:
			if err := j.Append(ctx, e); err != nil {
				j.logger.Errorw("failed to journal event", "cover", e.Cover, "kind", e.Kind, "err", err)
				return
			}
		default:
			return
		}
	}
}

// Append writes one event.
func (j *Journal) Append(ctx context.Context, e cover.Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO cover_events (id, occurred_at, cover, kind, message, position, operation)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		at.UTC().Format(timeFormat),
		e.Cover,
		string(e.Kind),
		e.Message,
		e.Position,
		e.Operation.String(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns the latest events of a cover, newest first.
func (j *Journal) List(ctx context.Context, coverName string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, occurred_at, cover, kind, message, position, operation FROM cover_events
		WHERE cover = ? ORDER BY occurred_at DESC LIMIT ?
	`, coverName, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &at, &e.Cover, &e.Kind, &e.Message, &e.Position, &e.Operation); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.At, err = time.Parse(timeFormat, at); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
