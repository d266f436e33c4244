package store

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB is an in-memory querier that understands the two statements Postgres issues.
type fakeDB struct {
	rows  map[string][]byte
	execs []string
}

type fakeRow struct {
	data []byte
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.data
	return nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	if strings.HasPrefix(sql, "INSERT") {
		f.rows[args[0].(string)] = args[1].([]byte)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	data, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{data: data}
}

func TestPostgres(t *testing.T) {
	db := &fakeDB{rows: make(map[string][]byte)}
	p := &Postgres{db: db, table: "kv_store"}

	if err := p.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if !strings.Contains(db.execs[0], "CREATE TABLE IF NOT EXISTS kv_store") {
		t.Errorf("schema statement = %q", db.execs[0])
	}

	exerciseStore(t, p)

	if !json.Valid(db.rows["market/KX-1"]) {
		t.Errorf("stored value is not JSON: %s", db.rows["market/KX-1"])
	}
	if !strings.Contains(db.execs[len(db.execs)-1], "ON CONFLICT (key) DO UPDATE") {
		t.Errorf("save is not an upsert: %q", db.execs[len(db.execs)-1])
	}
}

func TestNewPostgresRejectsBadTable(t *testing.T) {
	if _, err := NewPostgres(nil, "kv; DROP TABLE x"); err == nil {
		t.Error("NewPostgres() should reject unsafe table names")
	}
}
