package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/querysteps/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleData is a small schema matching the testutil query fixtures.
const sampleData = `
CREATE TABLE tag (TAG TEXT PRIMARY KEY, WOCHENTAG TEXT);
CREATE TABLE termin (ID INTEGER PRIMARY KEY, TAG TEXT, RAUM TEXT);
INSERT INTO tag VALUES ('Mo', 'Montag'), ('Di', 'Dienstag');
INSERT INTO termin VALUES (1, 'Mo', 'A'), (2, 'Mo', 'B'), (3, 'Di', 'A'), (4, 'Mo', 'A');
`

func sequentialIDs() Option {
	return WithRunIDGenerator(&testutil.SequentialRunIDGenerator{})
}
