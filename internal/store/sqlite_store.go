package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketplace-service/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists notification logs in a local SQLite database, one row
// per notification keyed by (viewer_email, id) plus a tombstone table for
// deleted ids. Save replaces a viewer's whole log in one transaction so a
// reconciliation pass is never half-persisted.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the notification database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL mode keeps reads cheap while a Save transaction is in flight
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS notifications (
			viewer_email   TEXT NOT NULL,
			id             TEXT NOT NULL,
			type           TEXT NOT NULL,
			title          TEXT NOT NULL,
			message        TEXT NOT NULL,
			product_id     TEXT NOT NULL,
			product_image  TEXT NOT NULL DEFAULT '',
			product_name   TEXT NOT NULL DEFAULT '',
			exporter_email TEXT NOT NULL DEFAULT '',
			price          REAL NOT NULL DEFAULT 0,
			origin_country TEXT NOT NULL DEFAULT '',
			timestamp      TEXT NOT NULL,
			read_flag      INTEGER NOT NULL DEFAULT 0,
			position       INTEGER NOT NULL,
			PRIMARY KEY (viewer_email, id)
		);
		CREATE TABLE IF NOT EXISTS notification_tombstones (
			viewer_email TEXT NOT NULL,
			id           TEXT NOT NULL,
			PRIMARY KEY (viewer_email, id)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, viewer string) ([]models.Notification, error) {
	query := `
		SELECT id, type, title, message, product_id, product_image, product_name,
		       exporter_email, price, origin_country, timestamp, read_flag
		FROM notifications
		WHERE viewer_email = ?
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		var timestampStr string
		var readFlag int

		err := rows.Scan(
			&n.ID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.ProductID,
			&n.ProductImage,
			&n.ProductName,
			&n.ExporterEmail,
			&n.Price,
			&n.OriginCountry,
			&timestampStr,
			&readFlag,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if ts, err := time.Parse(time.RFC3339Nano, timestampStr); err == nil {
			n.Timestamp = ts
		}
		n.Read = readFlag != 0

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}

func (s *SQLiteStore) Save(ctx context.Context, viewer string, notifications []models.Notification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE viewer_email = ?`, viewer); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}

	insert := `
		INSERT INTO notifications (
			viewer_email, id, type, title, message, product_id, product_image,
			product_name, exporter_email, price, origin_country, timestamp,
			read_flag, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, n := range notifications {
		readFlag := 0
		if n.Read {
			readFlag = 1
		}
		_, err := tx.ExecContext(ctx, insert,
			viewer, n.ID, n.Type, n.Title, n.Message, n.ProductID, n.ProductImage,
			n.ProductName, n.ExporterEmail, n.Price, n.OriginCountry,
			n.Timestamp.Format(time.RFC3339Nano), readFlag, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadTombstones(ctx context.Context, viewer string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM notification_tombstones WHERE viewer_email = ?`, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to load tombstones: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tombstones: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) SaveTombstones(ctx context.Context, viewer string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notification_tombstones WHERE viewer_email = ?`, viewer); err != nil {
		return fmt.Errorf("failed to clear tombstones: %w", err)
	}

	for _, id := range ids {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO notification_tombstones (viewer_email, id) VALUES (?, ?)`, viewer, id)
		if err != nil {
			return fmt.Errorf("failed to insert tombstone: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
