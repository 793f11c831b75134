package repository

import (
	"context"

	"github.com/ankunda/credit-engine/internal/domain"
)

type transactionRepository struct{}

func NewTransactionRepository() TransactionRepository {
	return &transactionRepository{}
}

func (r *transactionRepository) Create(ctx context.Context, q DBTX, txn *domain.UnitTransaction) error {
	query := `
		INSERT INTO unit_transactions (id, transaction_id, sender_meter, receiver_meter, units, direction, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.ExecContext(ctx, query,
		txn.ID,
		txn.TransactionID,
		txn.SenderMeter,
		txn.ReceiverMeter,
		txn.Units,
		txn.Direction,
		txn.Status,
		txn.Message,
		txn.CreatedAt,
	)
	return err
}
