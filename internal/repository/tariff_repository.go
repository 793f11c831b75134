package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ankunda/credit-engine/internal/domain"
	"github.com/ankunda/credit-engine/internal/tariff"
)

type tariffRepository struct{}

func NewTariffRepository() TariffRepository {
	return &tariffRepository{}
}

func (r *tariffRepository) Create(ctx context.Context, q DBTX, t *domain.Tariff) error {
	// A tariff that fails the tiling check must never reach the database.
	if err := tariff.ValidateBlocks(t.Blocks); err != nil {
		return err
	}

	query := `
		INSERT INTO tariffs (id, tariff_code, tariff_name, tariff_type, service_charge, is_active, effective_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := q.ExecContext(ctx, query,
		t.ID, t.TariffCode, t.TariffName, t.TariffType, t.ServiceCharge, t.IsActive, t.EffectiveDate,
	); err != nil {
		return err
	}

	blockQuery := `
		INSERT INTO tariff_blocks (id, tariff_id, block_name, min_units, max_units, rate_per_unit, block_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, b := range t.Blocks {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.TariffID = t.ID
		if _, err := q.ExecContext(ctx, blockQuery,
			b.ID, b.TariffID, b.BlockName, b.MinUnits, b.MaxUnits, b.RatePerUnit, b.BlockOrder,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *tariffRepository) GetByCode(ctx context.Context, q DBTX, code string) (*domain.Tariff, error) {
	query := `
		SELECT id, tariff_code, tariff_name, tariff_type, service_charge, is_active, effective_date
		FROM tariffs
		WHERE tariff_code = $1
	`
	var t domain.Tariff
	if err := sqlx.GetContext(ctx, q, &t, query, code); err != nil {
		return nil, err
	}
	return r.withBlocks(ctx, q, &t)
}

func (r *tariffRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Tariff, error) {
	query := `
		SELECT id, tariff_code, tariff_name, tariff_type, service_charge, is_active, effective_date
		FROM tariffs
		WHERE id = $1
	`
	var t domain.Tariff
	if err := sqlx.GetContext(ctx, q, &t, query, id); err != nil {
		return nil, err
	}
	return r.withBlocks(ctx, q, &t)
}

func (r *tariffRepository) FirstActive(ctx context.Context, q DBTX) (*domain.Tariff, error) {
	query := `
		SELECT id, tariff_code, tariff_name, tariff_type, service_charge, is_active, effective_date
		FROM tariffs
		WHERE is_active = true
		ORDER BY effective_date
		LIMIT 1
	`
	var t domain.Tariff
	if err := sqlx.GetContext(ctx, q, &t, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.withBlocks(ctx, q, &t)
}

func (r *tariffRepository) ListActive(ctx context.Context, q DBTX) ([]*domain.Tariff, error) {
	query := `
		SELECT id, tariff_code, tariff_name, tariff_type, service_charge, is_active, effective_date
		FROM tariffs
		WHERE is_active = true
		ORDER BY tariff_code
	`
	var tariffs []*domain.Tariff
	if err := sqlx.SelectContext(ctx, q, &tariffs, query); err != nil {
		return nil, err
	}
	for _, t := range tariffs {
		if _, err := r.withBlocks(ctx, q, t); err != nil {
			return nil, err
		}
	}
	return tariffs, nil
}

func (r *tariffRepository) withBlocks(ctx context.Context, q DBTX, t *domain.Tariff) (*domain.Tariff, error) {
	query := `
		SELECT id, tariff_id, block_name, min_units, max_units, rate_per_unit, block_order
		FROM tariff_blocks
		WHERE tariff_id = $1
		ORDER BY block_order
	`
	if err := sqlx.SelectContext(ctx, q, &t.Blocks, query, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}
