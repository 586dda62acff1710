package store

//Repository implementation (Postgres)

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bookseed/internal/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrUnsupportedRole is returned for roles with no PostgreSQL role attribute.
var ErrUnsupportedRole = errors.New("unsupported role")

// roleAttributes maps admin roles to role attributes. root is cluster-wide
// in PostgreSQL, so its scope database is not used.
var roleAttributes = map[string]string{
	"root": "SUPERUSER",
}

// PostgresStore keeps collections as rows of one documents table per
// database. Databases are created on first use.
type PostgresStore struct {
	server *pgxpool.Pool
	logger zerolog.Logger

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

func NewPostgresStore(server *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		server: server,
		logger: logger.With().Str("component", "store.postgres").Logger(),
		pools:  make(map[string]*pgxpool.Pool),
	}
}

// ConnectPostgres opens a pool and pings the server within timeout.
func ConnectPostgres(ctx context.Context, dsn string, timeout time.Duration) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// CreateUser creates a login role. An existing role makes the server fail
// with duplicate_object; that error is returned unchanged.
func (s *PostgresStore) CreateUser(ctx context.Context, u entity.AdminUser) error {
	stmt, err := createRoleSQL(u)
	if err != nil {
		return err
	}
	_, err = s.server.Exec(ctx, stmt)
	return err
}

func (s *PostgresStore) InsertBooks(ctx context.Context, ns entity.Namespace, books []entity.Book) (int, error) {
	pool, err := s.database(ctx, ns.Database)
	if err != nil {
		return 0, err
	}
	if len(books) == 0 {
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, b := range books {
		batch.Queue(`INSERT INTO documents (collection, doc) VALUES ($1, $2)`, ns.Collection, b)
	}
	br := tx.SendBatch(ctx, batch)
	for range books {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, err
		}
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(books), nil
}

func (s *PostgresStore) CountBooks(ctx context.Context, ns entity.Namespace) (int64, error) {
	pool, err := s.database(ctx, ns.Database)
	if err != nil {
		return 0, err
	}
	var n int64
	err = pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE collection = $1`, ns.Collection).Scan(&n)
	return n, err
}

func (s *PostgresStore) ListBooks(ctx context.Context, ns entity.Namespace) ([]entity.Book, error) {
	pool, err := s.database(ctx, ns.Database)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, `SELECT doc FROM documents WHERE collection = $1 ORDER BY seq`, ns.Collection)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[entity.Book])
}

// Close closes every database pool opened by the store, then the server pool.
func (s *PostgresStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, p := range s.pools {
		p.Close()
		delete(s.pools, name)
	}
	s.server.Close()
}

// database returns a migrated pool for name, creating the database if absent.
func (s *PostgresStore) database(ctx context.Context, name string) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pools[name]; ok {
		return p, nil
	}

	var exists bool
	err := s.server.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup database %s: %w", name, err)
	}
	if !exists {
		s.logger.Info().Str("database", name).Msg("creating database")
		if _, err := s.server.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
			return nil, fmt.Errorf("create database %s: %w", name, err)
		}
	}

	cfg := s.server.Config()
	cfg.ConnConfig.Database = name
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", name, err)
	}
	if err := s.migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate database %s: %w", name, err)
	}
	s.pools[name] = pool
	return pool, nil
}

func (s *PostgresStore) migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: s.logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func createRoleSQL(u entity.AdminUser) (string, error) {
	if u.Username == "" {
		return "", errors.New("admin username is required")
	}
	attrs := make([]string, 0, len(u.Roles))
	seen := make(map[string]bool, len(u.Roles))
	for _, r := range u.Roles {
		attr, ok := roleAttributes[r.Role]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedRole, r.Role)
		}
		if !seen[attr] {
			seen[attr] = true
			attrs = append(attrs, attr)
		}
	}

	var sb strings.Builder
	sb.WriteString("CREATE ROLE ")
	sb.WriteString(pgx.Identifier{u.Username}.Sanitize())
	sb.WriteString(" WITH LOGIN")
	for _, a := range attrs {
		sb.WriteString(" ")
		sb.WriteString(a)
	}
	sb.WriteString(" PASSWORD ")
	sb.WriteString(quoteLiteral(u.Password))
	return sb.String(), nil
}

// quoteLiteral quotes s as an escape string literal (E'...'), which reads
// the same whatever standard_conforming_strings is set to.
func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return "E'" + s + "'"
}

type gooseLogger struct {
	log zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Debug().Msgf(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Fatal().Msgf(strings.TrimSpace(format), v...)
}
