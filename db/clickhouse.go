package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"intradaytick/config"
	"intradaytick/models"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
    timestamp DateTime64(3, 'UTC'),
    security String,
    time String,
    type LowCardinality(String),
    value Float64,
    size Int32
) ENGINE = MergeTree()
ORDER BY (security, timestamp)
`

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type ClickHouseDB struct {
	conn    driver.Conn
	table   string
	timeout time.Duration
}

func NewClickHouseDB(ctx context.Context, cfg config.ClickHouseConfig, debug bool) (*ClickHouseDB, error) {
	if !tableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid ClickHouse table name %q", cfg.Table)
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Protocol: clickhouse.Native,
		Debug:    debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	db := &ClickHouseDB{conn: conn, table: cfg.Table, timeout: cfg.Timeout}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := db.createTable(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func CreateTableStatement(table string) string {
	return fmt.Sprintf(createTableSQL, table)
}

func (db *ClickHouseDB) createTable(ctx context.Context) error {
	if err := db.conn.Exec(ctx, CreateTableStatement(db.table)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", db.table, err)
	}
	return nil
}

// InsertTicks writes rows as a single batch.
func (db *ClickHouseDB) InsertTicks(ctx context.Context, rows []models.TickRow) error {
	if len(rows) == 0 {
		return nil
	}
	if db.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.timeout)
		defer cancel()
	}

	batch, err := db.conn.PrepareBatch(ctx, "INSERT INTO "+db.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for i := range rows {
		if err := batch.AppendStruct(&rows[i]); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (db *ClickHouseDB) Ping(ctx context.Context) bool {
	return db.conn.Ping(ctx) == nil
}

func (db *ClickHouseDB) Close() error {
	return db.conn.Close()
}
