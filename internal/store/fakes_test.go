package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB is an in-memory stand-in for the jobs table with unique job_id and
// url constraints. Only the statements issued by this package are understood.
type fakeDB struct {
	byJobID   map[string][]any
	byURL     map[string]string
	beginErr  error
	commitErr error
	// failInsert makes the insert of that job_id fail like a lost connection.
	failInsert string
	lastTx     *fakeTx
}

func newFakeDB() *fakeDB {
	return &fakeDB{byJobID: map[string][]any{}, byURL: map[string]string{}}
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	db.lastTx = &fakeTx{db: db, staged: map[string][]any{}, stagedURL: map[string]string{}}
	return db.lastTx, nil
}

// fakeTx embeds pgx.Tx so it satisfies the interface; only the methods used
// by Gateway are implemented.
type fakeTx struct {
	pgx.Tx
	db         *fakeDB
	staged     map[string][]any
	stagedURL  map[string]string
	order      []string
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if !strings.Contains(sql, "SELECT EXISTS") {
		return fakeRow{err: fmt.Errorf("unexpected query %q", sql)}
	}
	id := args[0].(string)
	_, inDB := tx.db.byJobID[id]
	_, inTx := tx.staged[id]
	return fakeRow{exists: inDB || inTx}
}

func (tx *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if !strings.Contains(sql, "INSERT INTO jobs") {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected statement %q", sql)
	}
	url, id := args[3].(string), args[5].(string)
	if id == tx.db.failInsert {
		return pgconn.CommandTag{}, errors.New("conn closed")
	}
	_, idTaken := tx.db.byJobID[id]
	_, idStaged := tx.staged[id]
	_, urlTaken := tx.db.byURL[url]
	_, urlStaged := tx.stagedURL[url]
	if idTaken || idStaged || urlTaken || urlStaged {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	tx.staged[id] = args
	tx.stagedURL[url] = id
	tx.order = append(tx.order, id)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) Commit(context.Context) error {
	if tx.db.commitErr != nil {
		return tx.db.commitErr
	}
	for id, row := range tx.staged {
		tx.db.byJobID[id] = row
	}
	for url, id := range tx.stagedURL {
		tx.db.byURL[url] = id
	}
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

type fakeRow struct {
	exists bool
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.exists
	return nil
}

// fakeQuerier records statements and serves canned rows.
type fakeQuerier struct {
	sql      string
	args     []any
	rows     [][]any
	queryErr error
	execTag  pgconn.CommandTag
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return &fakeRows{data: q.rows, idx: -1}, nil
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql, q.args = sql, args
	return q.execTag, nil
}

type fakeRows struct {
	pgx.Rows
	data   [][]any
	idx    int
	closed bool
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakeRows) Close()     { r.closed = true }
func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(row), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = row[i].(int64)
		case *string:
			*p = row[i].(string)
		case **string:
			if row[i] == nil {
				*p = nil
			} else {
				s := row[i].(string)
				*p = &s
			}
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported target %T", d)
		}
	}
	return nil
}
