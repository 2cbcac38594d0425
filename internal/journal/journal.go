// Package journal keeps a local record of the changes applied to images.
package journal

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/guillermoamaral/VSCside/internal/remote"
)

// Journal stores applied changes in a sqlite database.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Entry is one journaled change.
type Entry struct {
	Seq        int64         `json:"seq"`
	Backend    string        `json:"backend"`
	RecordedAt time.Time     `json:"recordedAt"`
	Change     remote.Change `json:"change"`
}

const schema = `
CREATE TABLE IF NOT EXISTS changes (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	backend TEXT NOT NULL,
	type TEXT NOT NULL,
	author TEXT NOT NULL,
	class_name TEXT,
	selector TEXT,
	recorded_at INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_backend ON changes(backend);
`

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; the change reporter may fire from several goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying journal schema: %w", err)
	}

	return &Journal{db: db, logger: slog.Default()}, nil
}

// SetLogger replaces the logger.
func (j *Journal) SetLogger(l *slog.Logger) {
	j.logger = l
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record appends a change applied on backend.
func (j *Journal) Record(backend string, ch *remote.Change) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshaling change: %w", err)
	}
	_, err = j.db.Exec(
		`INSERT INTO changes (backend, type, author, class_name, selector, recorded_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		backend, string(ch.Type), ch.Author, ch.ClassName, ch.Selector, time.Now().UnixNano(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("recording change: %w", err)
	}
	return nil
}

// Reporter returns a change reporter recording into the journal. Failures
// are logged; they never fail the mutation that was already applied.
func (j *Journal) Reporter(backend string) func(*remote.Change) {
	return func(ch *remote.Change) {
		if err := j.Record(backend, ch); err != nil {
			j.logger.Warn("journal record failed", slog.String("type", string(ch.Type)), slog.Any("error", err))
		}
	}
}

// List returns the last limit entries in recording order. limit <= 0
// returns every entry.
func (j *Journal) List(limit int) ([]Entry, error) {
	q := `SELECT seq, backend, recorded_at, payload FROM changes ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ns int64
		var payload string
		if err := rows.Scan(&e.Seq, &e.Backend, &ns, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Change); err != nil {
			return nil, fmt.Errorf("decoding change %d: %w", e.Seq, err)
		}
		e.RecordedAt = time.Unix(0, ns)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

// Clear removes every entry.
func (j *Journal) Clear() error {
	_, err := j.db.Exec(`DELETE FROM changes`)
	return err
}

// Export writes every entry to w as zstd-compressed JSON lines.
func (j *Journal) Export(w io.Writer) (int, error) {
	entries, err := j.List(0)
	if err != nil {
		return 0, err
	}

	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("creating zstd encoder: %w", err)
	}
	enc := json.NewEncoder(encoder)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			encoder.Close()
			return 0, fmt.Errorf("compressing: %w", err)
		}
	}
	if err := encoder.Close(); err != nil {
		return 0, fmt.Errorf("closing encoder: %w", err)
	}
	return len(entries), nil
}

// ReadExport decodes a stream written by Export.
func ReadExport(r io.Reader) ([]Entry, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	var out []Entry
	scanner := bufio.NewScanner(decoder)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decoding entry: %w", err)
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}
