package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS saved_locations (
	id TEXT PRIMARY KEY,
	city TEXT NOT NULL UNIQUE,
	created_at BIGINT NOT NULL
)`

// SQLStore implements Store on database/sql, using SQLite (pure Go driver
// modernc.org/sqlite) or PostgreSQL (lib/pq).
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open opens (or creates) the saved_locations table behind driver/dsn.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent fire-and-forget calls.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			logger.Warn("could not set WAL mode", zap.Error(err))
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLStore{db: db, driver: driver, logger: logger.Named("store")}, nil
}

// NewSQLite opens the SQLite database at path.
func NewSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLStore, error) {
	return Open(ctx, DriverSQLite, path, logger)
}

func (s *SQLStore) List(ctx context.Context) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, city, created_at FROM saved_locations ORDER BY created_at DESC, city`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Location, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *SQLStore) Add(ctx context.Context, city string) (Location, bool, error) {
	city, err := NormalizeName(city)
	if err != nil {
		return Location{}, false, err
	}

	loc := Location{ID: uuid.New(), City: city, CreatedAt: time.Now().UTC()}
	res, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO saved_locations(id, city, created_at) VALUES(?,?,?) ON CONFLICT (city) DO NOTHING`),
		loc.ID.String(), loc.City, loc.CreatedAt.UnixNano())
	if err != nil {
		return Location{}, false, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		s.logger.Debug("saved location added", zap.String("location", city))
		return loc, true, nil
	}

	existing, err := s.get(ctx, city)
	if err != nil {
		return Location{}, false, err
	}
	return existing, false, nil
}

func (s *SQLStore) Remove(ctx context.Context, city string) error {
	city, err := NormalizeName(city)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM saved_locations WHERE city = ?`), city)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Debug("saved location removed", zap.String("location", city))
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) get(ctx context.Context, city string) (Location, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, city, created_at FROM saved_locations WHERE city = ?`), city)
	loc, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Location{}, ErrNotFound
	}
	return loc, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLocation(row scanner) (Location, error) {
	var (
		loc     Location
		id      string
		created int64
	)
	if err := row.Scan(&id, &loc.City, &created); err != nil {
		return Location{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Location{}, fmt.Errorf("saved location %q has invalid id: %w", loc.City, err)
	}
	loc.ID = parsed
	loc.CreatedAt = time.Unix(0, created).UTC()
	return loc, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PostgresDSN builds a lib/pq URL from discrete connection settings.
// Credentials are escaped.
func PostgresDSN(host, port, name, user, password string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
