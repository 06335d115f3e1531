package sqlmodule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	_ "modernc.org/sqlite" // registers the "sqlite" driver and the vtab hook
	"modernc.org/sqlite/vtab"

	"github.com/roach88/trailsql/internal/trailvtab"
)

// ModuleName is the name under which the module is registered.
const ModuleName = trailvtab.ModuleName

// DriverName is the database/sql driver the module is registered with.
const DriverName = "sqlite"

// ErrSessionClosed is returned by Session methods after Close.
var ErrSessionClosed = errors.New("sqlmodule: session closed")

var (
	hostOnce sync.Once
	hostDB   *sql.DB
	hostErr  error
)

// Register installs the traildb module and opens the host database. The
// engine creates a module on the first connection opened after
// registration only, so the process keeps that one connection for its
// lifetime and every Session runs on it. Later calls return the outcome of
// the first.
func Register() error {
	_, err := host()
	return err
}

func host() (*sql.DB, error) {
	hostOnce.Do(func() {
		if err := vtab.RegisterModule(nil, ModuleName, &module{}); err != nil {
			hostErr = fmt.Errorf("register %s module: %w", ModuleName, err)
			return
		}

		db, err := sql.Open(DriverName, ":memory:")
		if err != nil {
			hostErr = fmt.Errorf("open host database: %w", err)
			return
		}
		// the connection carrying the module must never be recycled
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)

		if err := db.Ping(); err != nil {
			db.Close()
			hostErr = fmt.Errorf("ping host database: %w", err)
			return
		}
		hostDB = db
		log.Printf("[DEBUG] registered %s module with driver %s", ModuleName, DriverName)
	})
	return hostDB, hostErr
}

// Session is a scope on the host database. Tables attached through it are
// dropped, and their stores closed, when the session is closed. Tables
// renamed with ALTER TABLE are not tracked and must be dropped by the caller.
//
// Sessions share one connection, so table names are visible across open
// sessions and statements are serialized.
type Session struct {
	db *sql.DB

	mu     sync.Mutex
	tables []string
	closed bool
}

// Open registers the module if needed and starts a Session.
func Open(ctx context.Context) (*Session, error) {
	db, err := host()
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping host database: %w", err)
	}
	return &Session{db: db}, nil
}

// Attach creates the virtual table name over the trail store at path.
func (s *Session) Attach(ctx context.Context, name, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	stmt := fmt.Sprintf("CREATE VIRTUAL TABLE %s USING %s(%s)",
		QuoteIdent(name), ModuleName, QuoteLiteral(path))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("attach %s: %w", path, err)
	}
	if !slices.Contains(s.tables, name) {
		s.tables = append(s.tables, name)
	}
	log.Printf("[DEBUG] attached %s as %s", path, name)
	return nil
}

// Exec runs a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, stmt string, args ...any) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// Query runs q and collects the full result.
func (s *Session) Query(ctx context.Context, q string, args ...any) (*Result, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	return query(ctx, s.db, q, args...)
}

// Close drops every table attached through the session. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs error
	for _, name := range s.tables {
		if _, err := s.db.Exec("DROP TABLE IF EXISTS " + QuoteIdent(name)); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("drop %s: %w", name, err))
		}
	}
	s.tables = nil
	return errs
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Result holds every row of a query, with TEXT and BLOB values as strings.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func query(ctx context.Context, db *sql.DB, q string, args ...any) (*Result, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	res := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(res.Rows), err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	return res, nil
}

// QuoteIdent quotes s as an SQL identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteLiteral quotes s as an SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
