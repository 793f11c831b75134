package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TariffTypeDomestic   = "DOMESTIC"
	TariffTypeCommercial = "COMMERCIAL"
	TariffTypeIndustrial = "INDUSTRIAL"
)

// Tariff is a named block-rate schedule. A tariff referenced by a disbursed
// loan is immutable; rate changes are published as a new tariff version.
type Tariff struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	TariffCode    string          `json:"tariff_code" db:"tariff_code"`
	TariffName    string          `json:"tariff_name" db:"tariff_name"`
	TariffType    string          `json:"tariff_type" db:"tariff_type"`
	ServiceCharge decimal.Decimal `json:"service_charge" db:"service_charge"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	EffectiveDate time.Time       `json:"effective_date" db:"effective_date"`
	Blocks        []*TariffBlock  `json:"blocks" db:"-"`
}

// TariffBlock is one rung of a tariff. MaxUnits is nil on the terminal
// unbounded block, which must sort last.
type TariffBlock struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	TariffID    uuid.UUID       `json:"tariff_id" db:"tariff_id"`
	BlockName   string          `json:"block_name" db:"block_name"`
	MinUnits    int64           `json:"min_units" db:"min_units"`
	MaxUnits    *int64          `json:"max_units" db:"max_units"`
	RatePerUnit decimal.Decimal `json:"rate_per_unit" db:"rate_per_unit"`
	BlockOrder  int             `json:"block_order" db:"block_order"`
}

// Capacity returns the number of whole units the block holds, or false for
// the unbounded terminal block.
func (b *TariffBlock) Capacity() (int64, bool) {
	if b.MaxUnits == nil {
		return 0, false
	}
	return *b.MaxUnits - b.MinUnits + 1, true
}

// BlocksSorted returns the tariff blocks ordered by block_order.
func (t *Tariff) BlocksSorted() []*TariffBlock {
	sorted := make([]*TariffBlock, len(t.Blocks))
	copy(sorted, t.Blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BlockOrder < sorted[j].BlockOrder
	})
	return sorted
}

// CostBreakdownEntry is one row of the per-block conversion detail returned
// to callers for transparency. Units and cost are rounded to 2dp.
type CostBreakdownEntry struct {
	BlockName  string          `json:"block_name"`
	Units      decimal.Decimal `json:"units"`
	Rate       decimal.Decimal `json:"rate"`
	Cost       decimal.Decimal `json:"cost"`
	BlockRange string          `json:"block_range"`
}
