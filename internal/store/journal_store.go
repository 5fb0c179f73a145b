package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/jissue/internal/model"
)

var _ Journal = (*SQLiteStore)(nil)

// Record appends an entry to the journal. A missing ID or timestamp is
// filled in.
func (s *SQLiteStore) Record(ctx context.Context, entry model.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	const query = `
		INSERT INTO journal (id, action, target, detail, host, created_at)
		VALUES (:id, :action, :target, :detail, :host, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("recording %s of %s: %w", entry.Action, entry.Target, err)
	}
	return nil
}

// History returns journal entries matching filter, newest first.
func (s *SQLiteStore) History(
	ctx context.Context,
	filter JournalFilter,
) ([]model.JournalEntry, error) {
	var conditions []string
	var args []interface{}

	if filter.Target != nil {
		conditions = append(conditions, "target = ? COLLATE NOCASE")
		args = append(args, *filter.Target)
	}
	if filter.Action != nil {
		conditions = append(conditions, "action = ?")
		args = append(args, *filter.Action)
	}
	if filter.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := "SELECT id, action, target, detail, host, created_at FROM journal"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var entries []model.JournalEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	for i := range entries {
		entries[i].CreatedAt = entries[i].CreatedAt.Local()
	}
	return entries, nil
}

// Prune deletes entries older than before and returns how many went.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM journal WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	return res.RowsAffected()
}
