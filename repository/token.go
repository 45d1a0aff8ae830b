package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bartossh/Pecunia/token"
)

// CheckToken checks if token exists in the database, is valid and didn't expire.
func (db DataBase) CheckToken(ctx context.Context, tkn string) (bool, error) {
	var t token.Token
	if err := db.inner.QueryRowContext(ctx,
		`SELECT token, valid, expiration_date
			FROM tokens WHERE token = $1`, tkn).
		Scan(&t.Token, &t.Valid, &t.ExpirationDate); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, errors.Join(ErrSelectFailed, err)
	}
	if !t.Valid || t.Expired(time.Now()) {
		return false, nil
	}
	return true, nil
}

// WriteToken writes unique token to the database.
func (db DataBase) WriteToken(ctx context.Context, tkn string, expirationDate int64) error {
	if _, err := db.inner.ExecContext(ctx,
		`INSERT INTO tokens (token, valid, expiration_date)
			VALUES ($1, $2, $3)`, tkn, true, expirationDate); err != nil {
		return errors.Join(ErrInsertFailed, err)
	}
	return nil
}

// InvalidateToken invalidates token.
func (db DataBase) InvalidateToken(ctx context.Context, tkn string) error {
	if _, err := db.inner.ExecContext(ctx,
		`UPDATE tokens SET valid = $1 WHERE token = $2`, false, tkn); err != nil {
		return errors.Join(ErrRemoveFailed, err)
	}
	return nil
}
