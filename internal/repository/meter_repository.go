package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ankunda/credit-engine/internal/domain"
)

const meterColumns = `
	id, meter_no, account_id, units, is_active, deactivated_at, created_at, updated_at
`

type meterRepository struct{}

func NewMeterRepository() MeterRepository {
	return &meterRepository{}
}

func (r *meterRepository) GetByMeterNo(ctx context.Context, q DBTX, meterNo string) (*domain.Meter, error) {
	query := `SELECT ` + meterColumns + ` FROM meters WHERE meter_no = $1`

	var meter domain.Meter
	if err := sqlx.GetContext(ctx, q, &meter, query, meterNo); err != nil {
		return nil, err
	}
	return &meter, nil
}

func (r *meterRepository) GetByAccountID(ctx context.Context, q DBTX, accountID string) (*domain.Meter, error) {
	query := `SELECT ` + meterColumns + ` FROM meters WHERE account_id = $1 AND is_active = true`

	var meter domain.Meter
	if err := sqlx.GetContext(ctx, q, &meter, query, accountID); err != nil {
		return nil, err
	}
	return &meter, nil
}

func (r *meterRepository) LockByAccountID(ctx context.Context, q DBTX, accountID string) (*domain.Meter, error) {
	query := `SELECT ` + meterColumns + ` FROM meters WHERE account_id = $1 AND is_active = true FOR UPDATE`

	var meter domain.Meter
	if err := sqlx.GetContext(ctx, q, &meter, query, accountID); err != nil {
		return nil, err
	}
	return &meter, nil
}

// LockByMeterNos locks all named meters in one statement, ordered by
// primary key so crossing transfers acquire locks in the same sequence.
func (r *meterRepository) LockByMeterNos(ctx context.Context, q DBTX, meterNos ...string) (map[string]*domain.Meter, error) {
	query, args, err := sqlx.In(
		`SELECT `+meterColumns+` FROM meters WHERE meter_no IN (?) ORDER BY id FOR UPDATE`,
		meterNos,
	)
	if err != nil {
		return nil, err
	}
	query = q.Rebind(query)

	var meters []*domain.Meter
	if err := sqlx.SelectContext(ctx, q, &meters, query, args...); err != nil {
		return nil, err
	}

	byNo := make(map[string]*domain.Meter, len(meters))
	for _, m := range meters {
		byNo[m.MeterNo] = m
	}
	return byNo, nil
}

func (r *meterRepository) UpdateUnits(ctx context.Context, q DBTX, meterNo string, units decimal.Decimal) error {
	query := `
		UPDATE meters
		SET units = $2, updated_at = $3
		WHERE meter_no = $1
	`
	_, err := q.ExecContext(ctx, query, meterNo, units, time.Now())
	return err
}

func (r *meterRepository) SetActive(ctx context.Context, q DBTX, meterNo string, active bool, at time.Time) error {
	var deactivatedAt *time.Time
	if !active {
		deactivatedAt = &at
	}
	query := `
		UPDATE meters
		SET is_active = $2, deactivated_at = $3, updated_at = $4
		WHERE meter_no = $1
	`
	_, err := q.ExecContext(ctx, query, meterNo, active, deactivatedAt, at)
	return err
}

func (r *meterRepository) CreateToken(ctx context.Context, q DBTX, token *domain.MeterToken) error {
	query := `
		INSERT INTO meter_tokens (id, token, meter_no, account_id, units, source, loan_id, is_used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.ExecContext(ctx, query,
		token.ID,
		token.Token,
		token.MeterNo,
		token.AccountID,
		token.Units,
		token.Source,
		token.LoanID,
		token.IsUsed,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

func (r *meterRepository) ExpireTokens(ctx context.Context, q DBTX, now time.Time) (int64, error) {
	query := `
		UPDATE meter_tokens
		SET is_used = true
		WHERE is_used = false AND expires_at <= $1
	`
	res, err := q.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
