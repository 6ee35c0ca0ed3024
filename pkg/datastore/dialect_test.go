package datastore

import "testing"

func TestRebind(t *testing.T) {
	q := "UPDATE users SET wins = ? WHERE username = ?"
	if got := sqliteDialect.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	want := "UPDATE users SET wins = $1 WHERE username = $2"
	if got := postgresDialect.rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}
