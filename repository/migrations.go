package repository

import (
	"context"
	"errors"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id VARCHAR(256) PRIMARY KEY,
		balance NUMERIC(64, 18) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		max_balance NUMERIC(64, 18) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS transfers (
		tx_id VARCHAR(64) PRIMARY KEY,
		sender VARCHAR(256) NOT NULL,
		receiver VARCHAR(256) NOT NULL,
		sender_public_key VARCHAR(256) NOT NULL,
		receiver_public_key VARCHAR(256) NOT NULL,
		amount NUMERIC(64, 18) NOT NULL,
		pledge_timestamp BIGINT NOT NULL,
		ack_timestamp BIGINT NOT NULL,
		sender_signature VARCHAR(256) NOT NULL,
		receiver_signature VARCHAR(256) NOT NULL,
		status VARCHAR(32) NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS transfers_sender_idx ON transfers (sender)`,
	`CREATE INDEX IF NOT EXISTS transfers_receiver_idx ON transfers (receiver)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		id SERIAL PRIMARY KEY,
		token VARCHAR(256) NOT NULL UNIQUE,
		valid BOOLEAN NOT NULL,
		expiration_date BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id SERIAL PRIMARY KEY,
		level VARCHAR(16) NOT NULL,
		msg TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}

// RunMigration creates the schema when it does not exist yet. Statements are
// idempotent, running them on every start is safe.
func (db DataBase) RunMigration(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.inner.ExecContext(ctx, stmt); err != nil {
			return errors.Join(ErrTxFailed, err)
		}
	}
	return nil
}
