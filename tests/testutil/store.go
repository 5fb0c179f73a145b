package testutil

import (
	"testing"

	"github.com/nhle/jissue/internal/store"
)

// NewTestStore opens an empty in-memory journal with the schema migrated,
// ready for Record and History calls. The journal is closed when the test
// ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
