package postgres_test

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowStub implements pgx.Row
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

// rowsStub implements pgx.Rows over a fixed set of scan funcs.
type rowsStub struct {
	scans   []func(dest ...any) error
	idx     int
	scanErr error
	rowsErr error
}

func (r *rowsStub) Next() bool { r.idx++; return r.idx <= len(r.scans) }
func (r *rowsStub) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	return r.scans[r.idx-1](dest...)
}
func (r *rowsStub) Close()                                       {}
func (r *rowsStub) Err() error                                   { return r.rowsErr }
func (r *rowsStub) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *rowsStub) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rowsStub) Values() ([]any, error)                       { return nil, nil }
func (r *rowsStub) RawValues() [][]byte                          { return nil }
func (r *rowsStub) Conn() *pgx.Conn                              { return nil }

// poolStub implements postgres.PgxPool for tests. It records executed SQL
// and arguments so assertions can check what the repos send to the database.
type poolStub struct {
	execErr  error
	execTag  pgconn.CommandTag
	row      rowStub
	rows     *rowsStub
	queryErr error

	execSQL  []string
	execArgs [][]any
	querySQL []string
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execSQL = append(p.execSQL, sql)
	p.execArgs = append(p.execArgs, args)
	if p.execErr != nil {
		return pgconn.CommandTag{}, p.execErr
	}
	return p.execTag, nil
}

func (p *poolStub) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	p.querySQL = append(p.querySQL, sql)
	if p.row.scan == nil {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	return p.row
}

func (p *poolStub) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	p.querySQL = append(p.querySQL, sql)
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.rows == nil {
		return &rowsStub{}, nil
	}
	return p.rows, nil
}
