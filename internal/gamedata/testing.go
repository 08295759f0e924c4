package gamedata

import "testing"

// TestTables returns the embedded tables and fails the test if they do not
// parse. Exported for other packages' tests.
func TestTables(t testing.TB) *Tables {
	t.Helper()

	tables, err := Default()
	if err != nil {
		t.Fatalf("failed to load game data: %v", err)
	}
	return tables
}
