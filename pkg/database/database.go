package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/samogod/musegen/pkg/config"
)

var DebugLog func(string, ...interface{})

type DB struct {
	conn    *sql.DB
	enabled bool
}

// GenerationRecord is one generated file of a sampling run.
type GenerationRecord struct {
	RunID       uuid.UUID
	ConfigName  string
	Checkpoint  string
	Temperature float64
	NumOutputs  int
	FilePath    string
	CreatedAt   time.Time
}

const DBName = "musegen_history"

func dsn(cfg *config.Database, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, dbname)
}

func New(cfg *config.Database) (*DB, error) {
	db := &DB{
		enabled: cfg.Enabled,
	}

	if !cfg.Enabled {
		if DebugLog != nil {
			DebugLog("generation history disabled")
		}
		return db, nil
	}

	postgresConn, err := sql.Open("postgres", dsn(cfg, "postgres"))
	if err != nil {
		fmt.Println("[INF] Database connection disabled.")
		return db, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer postgresConn.Close()

	if err := postgresConn.Ping(); err != nil {
		fmt.Println("[INF] Database connection disabled.")
		return db, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var exists bool
	err = postgresConn.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", DBName).Scan(&exists)
	if err != nil {
		fmt.Println("[INF] Database connection disabled.")
		return db, fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		if _, err := postgresConn.Exec(fmt.Sprintf("CREATE DATABASE %s", DBName)); err != nil {
			fmt.Println("[INF] Database connection disabled.")
			return db, fmt.Errorf("failed to create database: %w", err)
		}
		fmt.Printf("[INF] Database '%s' created successfully.\n", DBName)
	}

	conn, err := sql.Open("postgres", dsn(cfg, DBName))
	if err != nil {
		fmt.Println("[INF] Database connection disabled.")
		return db, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		fmt.Println("[INF] Database connection disabled.")
		return db, fmt.Errorf("failed to ping database: %w", err)
	}

	db.conn = conn
	fmt.Println("[INF] Database connection active.")

	if err := db.initSchema(); err != nil {
		return db, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func (db *DB) initSchema() error {
	if !db.enabled || db.conn == nil {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id SERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		config_name VARCHAR(255) NOT NULL,
		checkpoint TEXT NOT NULL,
		temperature DOUBLE PRECISION NOT NULL,
		num_outputs INTEGER NOT NULL,
		file_path TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE(run_id, file_path)
	);

	CREATE INDEX IF NOT EXISTS idx_generations_config ON generations(config_name);
	CREATE INDEX IF NOT EXISTS idx_generations_run ON generations(run_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) IsEnabled() bool {
	return db.enabled && db.conn != nil
}

// RecordGenerations stores every file of one run in a single transaction.
func (db *DB) RecordGenerations(ctx context.Context, records []GenerationRecord) error {
	if !db.IsEnabled() || len(records) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range records {
		if DebugLog != nil {
			DebugLog("recording %s of run %s in database", r.FilePath, r.RunID)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO generations (run_id, config_name, checkpoint, temperature, num_outputs, file_path, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (run_id, file_path) DO NOTHING
		`, r.RunID, r.ConfigName, r.Checkpoint, r.Temperature, r.NumOutputs, r.FilePath, r.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// QueryGenerations lists recorded files, newest first. An empty configName
// returns every configuration.
func (db *DB) QueryGenerations(ctx context.Context, configName string, limit int) ([]GenerationRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	query := `
		SELECT run_id, config_name, checkpoint, temperature, num_outputs, file_path, created_at
		FROM generations
	`
	var args []interface{}

	if configName != "" {
		args = append(args, configName)
		query += fmt.Sprintf(" WHERE config_name = $%d", len(args))
	}

	query += " ORDER BY created_at DESC, file_path"

	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		var r GenerationRecord
		if err := rows.Scan(&r.RunID, &r.ConfigName, &r.Checkpoint, &r.Temperature, &r.NumOutputs, &r.FilePath, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
