// Package postgresdb provides a PostgreSQL implementation of the user and
// conversation stores. The schema is managed by goose; migrations ship
// inside the binary unless a directory is configured.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/userpurge/internal/models"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const embeddedMigrationsDir = "migrations"

// PostgresDB is a PostgreSQL-backed user and conversation store.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

// InitOption tunes New.
type InitOption func(*initOptions)

type initOptions struct {
	DBPreReset bool
}

// WithDBPreReset drops all tables before migrations run. Tests use it.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New connects to databaseDSN and applies migrations. An empty
// migrationsDir selects the embedded migrations.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, fmt.Errorf("resetting database: %w", err)
		}
	}

	if err := result.migrate(migrationsDir); err != nil {
		return nil, err
	}

	return result, nil
}

func (db *PostgresDB) migrate(migrationsDir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if migrationsDir == "" {
		goose.SetBaseFS(embeddedMigrations)
		defer goose.SetBaseFS(nil)
		migrationsDir = embeddedMigrationsDir
	}

	if err := goose.Up(db.database, migrationsDir); err != nil {
		return fmt.Errorf("applying migrations from %s: %w", migrationsDir, err)
	}

	return nil
}

func (db *PostgresDB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.connectionTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, db.connectionTimeout)
}

// DeleteUser removes the user row keyed by email. Deleting an absent row is
// not an error.
func (db *PostgresDB) DeleteUser(ctx context.Context, email string) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	if _, err := db.database.ExecContext(ctx, `DELETE FROM users WHERE email = $1`, email); err != nil {
		return fmt.Errorf("deleting user record: %w", err)
	}

	return nil
}

// FindByOwner returns the keys of every conversation owned by email.
func (db *PostgresDB) FindByOwner(ctx context.Context, email string) ([]models.DependentRecord, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.database.QueryContext(
		ctx,
		`SELECT conversation_id, response_id FROM conversations WHERE user_email = $1`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var records []models.DependentRecord
	for rows.Next() {
		var record models.DependentRecord
		if err := rows.Scan(&record.PrimaryKey, &record.SecondaryKey); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// DeleteRecord removes one conversation by its key pair.
func (db *PostgresDB) DeleteRecord(ctx context.Context, record models.DependentRecord) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM conversations WHERE conversation_id = $1 AND response_id = $2`,
		record.PrimaryKey,
		record.SecondaryKey,
	)
	if err != nil {
		return fmt.Errorf("deleting conversation %s: %w", record.PrimaryKey, err)
	}

	return nil
}

// SaveUser inserts a user row. It exists for seeding and tests.
func (db *PostgresDB) SaveUser(ctx context.Context, email string) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (email) VALUES ($1) ON CONFLICT (email) DO NOTHING`,
		email,
	)

	return err
}

// SaveRecord inserts a conversation owned by email.
func (db *PostgresDB) SaveRecord(ctx context.Context, email string, record models.DependentRecord) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO conversations (conversation_id, response_id, user_email)
				VALUES ($1, $2, $3)
				ON CONFLICT (conversation_id, response_id) DO NOTHING
		`,
		record.PrimaryKey,
		record.SecondaryKey,
		email,
	)

	return err
}

// HasUser reports whether a user row exists for email.
func (db *PostgresDB) HasUser(ctx context.Context, email string) (bool, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := db.database.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)

	return exists, err
}

// Ping checks that the database is reachable.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return db.database.PingContext(ctx)
}

// Close closes the connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DROP TABLE IF EXISTS conversations;
			DROP TABLE IF EXISTS users;
			DROP TABLE IF EXISTS goose_db_version;
		`,
	)

	return err
}
