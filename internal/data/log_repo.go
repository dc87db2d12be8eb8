package data

import (
	"database/sql"
	"strings"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
)

// LogRepo stores execution log entries. Rows are append-only; the
// only delete path is the age-based Purge.
type LogRepo struct {
	db *sql.DB
}

func NewLogRepo(db *sql.DB) *LogRepo {
	return &LogRepo{db: db}
}

func (r *LogRepo) Append(entry *core.ExecutionLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	res, err := r.db.Exec(`INSERT INTO execution_logs (actor, template_id, timestamp, status, message) VALUES (?, ?, ?, ?, ?)`,
		entry.Actor, entry.TemplateID, entry.Timestamp, entry.Status, entry.Message)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	entry.ID = id
	return nil
}

// Query returns entries newest first, optionally narrowed by an actor
// substring and/or a status.
func (r *LogRepo) Query(filter core.LogFilter, limit int) ([]core.ExecutionLogEntry, error) {
	var conds []string
	var args []any

	if filter.ActorContains != "" {
		conds = append(conds, "actor LIKE ?")
		args = append(args, "%"+filter.ActorContains+"%")
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}

	q := `SELECT id, actor, template_id, timestamp, status, message FROM execution_logs`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []core.ExecutionLogEntry
	for rows.Next() {
		var e core.ExecutionLogEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.TemplateID, &e.Timestamp, &e.Status, &e.Message); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Purge deletes entries older than the given age and reports how many
// went.
func (r *LogRepo) Purge(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := r.db.Exec(`DELETE FROM execution_logs WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
