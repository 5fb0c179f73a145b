package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/jissue/internal/model"
)

// JournalPathEnv overrides the location of the journal database.
const JournalPathEnv = "JISSUE_JOURNAL_PATH"

// JournalFilter controls which entries History returns.
type JournalFilter struct {
	Target *string    // issue key, version or page id
	Action *string    // one of the model.Action* constants
	Since  *time.Time // entries at or after this time
	Limit  int
}

// Journal records the mutations this machine made remotely.
type Journal interface {
	Record(ctx context.Context, entry model.JournalEntry) error
	History(ctx context.Context, filter JournalFilter) ([]model.JournalEntry, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// DefaultJournalPath returns ~/.config/jissue/journal.db, or the path in
// JISSUE_JOURNAL_PATH.
func DefaultJournalPath() string {
	if p := os.Getenv(JournalPathEnv); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "jissue-journal.db")
	}
	return filepath.Join(home, ".config", "jissue", "journal.db")
}
