package db

import "testing"

func TestDialectRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = $1 AND y = $2"

	if got := Postgres.Rebind(q); got != q {
		t.Fatalf("postgres rebind = %q, want unchanged", got)
	}
	if got, want := SQLite.Rebind(q), "SELECT a FROM t WHERE x = ? AND y = ?"; got != want {
		t.Fatalf("sqlite rebind = %q, want %q", got, want)
	}
}
