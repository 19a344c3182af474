package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	database, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return database, nil
}

func runMigrations(database *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            email TEXT NOT NULL UNIQUE,
            status TEXT NOT NULL DEFAULT 'offline',
            last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            profile_picture TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS connections (
            id TEXT PRIMARY KEY,
            participants TEXT NOT NULL UNIQUE,
            sides JSONB NOT NULL,
            conversation_ids TEXT[] NOT NULL DEFAULT '{}',
            connected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_connections_sides ON connections USING GIN (sides);`,
		`CREATE TABLE IF NOT EXISTS conversations (
            id TEXT PRIMARY KEY,
            sender TEXT NOT NULL,
            sender_id TEXT NOT NULL,
            receiver TEXT NOT NULL,
            receiver_id TEXT NOT NULL,
            body TEXT NOT NULL,
            kind TEXT NOT NULL DEFAULT 'text',
            status TEXT NOT NULL DEFAULT 'Sent',
            file_name TEXT NOT NULL DEFAULT '',
            file_size TEXT NOT NULL DEFAULT '',
            replied BOOLEAN NOT NULL DEFAULT FALSE,
            replied_by TEXT NOT NULL DEFAULT '',
            replied_message_id TEXT NOT NULL DEFAULT '',
            deleted_by_sender BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_by_receiver BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	}

	for _, m := range migrations {
		if _, err := database.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
