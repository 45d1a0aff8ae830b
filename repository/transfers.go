package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bartossh/Pecunia/transfer"
)

// ErrTransferNotFound is returned when no audit record exists for the transaction id.
var ErrTransferNotFound = errors.New("transfer not found")

// ReadTransfer reads the audit record stored for the transaction id.
func (db DataBase) ReadTransfer(ctx context.Context, txID string) (transfer.Record, error) {
	var rec transfer.Record
	var status string
	if err := db.inner.QueryRowContext(ctx,
		`SELECT tx_id, sender, receiver, sender_public_key, receiver_public_key,
			amount, pledge_timestamp, ack_timestamp, sender_signature,
			receiver_signature, status, reason
			FROM transfers WHERE tx_id = $1`, txID).
		Scan(&rec.TxID, &rec.From, &rec.To, &rec.SenderPublicKey, &rec.ReceiverPublicKey,
			&rec.Amount, &rec.PledgeTimestamp, &rec.AckTimestamp, &rec.SenderSignature,
			&rec.ReceiverSignature, &status, &rec.Reason); err != nil {
		if err == sql.ErrNoRows {
			return transfer.Record{}, ErrTransferNotFound
		}
		return transfer.Record{}, errors.Join(ErrSelectFailed, err)
	}
	rec.Status = transfer.Status(status)
	return rec, nil
}

// ReadTransfersByAccount reads audit records where the account is the sender
// or the receiver, most recent first, up to the limit.
func (db DataBase) ReadTransfersByAccount(ctx context.Context, accountID string, limit int) ([]transfer.Record, error) {
	rows, err := db.inner.QueryContext(ctx,
		`SELECT tx_id, sender, receiver, sender_public_key, receiver_public_key,
			amount, pledge_timestamp, ack_timestamp, sender_signature,
			receiver_signature, status, reason
			FROM transfers WHERE sender = $1 OR receiver = $1
			ORDER BY ack_timestamp DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, errors.Join(ErrSelectFailed, err)
	}
	defer rows.Close()

	var recs []transfer.Record
	for rows.Next() {
		var rec transfer.Record
		var status string
		if err := rows.Scan(&rec.TxID, &rec.From, &rec.To, &rec.SenderPublicKey, &rec.ReceiverPublicKey,
			&rec.Amount, &rec.PledgeTimestamp, &rec.AckTimestamp, &rec.SenderSignature,
			&rec.ReceiverSignature, &status, &rec.Reason); err != nil {
			return nil, errors.Join(ErrScanFailed, err)
		}
		rec.Status = transfer.Status(status)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSelectFailed, err)
	}
	return recs, nil
}
