package tariff

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankunda/credit-engine/internal/domain"
	customError "github.com/ankunda/credit-engine/pkg/errors"
)

func int64Ptr(v int64) *int64 { return &v }

// twoBlockTariff mirrors the common domestic tariff shape: a subsidised
// lifeline block and an unbounded standard block.
func twoBlockTariff() *domain.Tariff {
	return &domain.Tariff{
		TariffCode: "CODE10.1",
		IsActive:   true,
		Blocks: []*domain.TariffBlock{
			{BlockName: "Lifeline", MinUnits: 0, MaxUnits: int64Ptr(14), RatePerUnit: decimal.NewFromInt(250), BlockOrder: 1},
			{BlockName: "Standard", MinUnits: 15, MaxUnits: nil, RatePerUnit: decimal.NewFromFloat(775.7), BlockOrder: 2},
		},
	}
}

func TestAmountToUnits(t *testing.T) {
	c := NewConverter(decimal.NewFromInt(500))
	trf := twoBlockTariff()

	tests := []struct {
		name    string
		tariff  *domain.Tariff
		amount  decimal.Decimal
		want    float64
		wantErr bool
	}{
		{
			name:   "flat fallback without tariff",
			tariff: nil,
			amount: decimal.NewFromInt(5000),
			want:   10,
		},
		{
			name:   "zero amount yields zero units",
			tariff: trf,
			amount: decimal.Zero,
			want:   0,
		},
		{
			name:    "negative amount rejected",
			tariff:  trf,
			amount:  decimal.NewFromInt(-1),
			wantErr: true,
		},
		{
			name:   "within first block at marginal rate",
			tariff: trf,
			amount: decimal.NewFromInt(1000),
			want:   4, // 1000 / 250
		},
		{
			name:   "exactly exhausts first block",
			tariff: trf,
			amount: decimal.NewFromInt(3750), // 15 units * 250
			want:   15,
		},
		{
			name:   "spills into unbounded block",
			tariff: trf,
			amount: decimal.NewFromFloat(3750 + 775.7),
			want:   16,
		},
		{
			name:   "large amount mostly priced at terminal rate",
			tariff: trf,
			amount: decimal.NewFromInt(50000),
			want:   15 + 46250.0/775.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.AmountToUnits(tt.tariff, tt.amount)
			if tt.wantErr {
				require.Error(t, err)
				var be *customError.BusinessError
				require.ErrorAs(t, err, &be)
				assert.Equal(t, customError.ErrCodeInvalidAmount, be.Code)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.InexactFloat64(), 0.001)
		})
	}
}

func TestAmountToUnitsBlockOrderIndependent(t *testing.T) {
	c := NewConverter(decimal.NewFromInt(500))

	ordered := twoBlockTariff()
	shuffled := twoBlockTariff()
	shuffled.Blocks[0], shuffled.Blocks[1] = shuffled.Blocks[1], shuffled.Blocks[0]

	amount := decimal.NewFromInt(50000)
	want, err := c.AmountToUnits(ordered, amount)
	require.NoError(t, err)
	got, err := c.AmountToUnits(shuffled, amount)
	require.NoError(t, err)
	assert.True(t, got.Equal(want), "units walk must follow block_order, not slice order")
}

func TestAmountToUnitsDomesticExample(t *testing.T) {
	// The legacy domestic schedule: 8 subsidised units at 250, the rest at
	// 775.7. A 5000 purchase buys the full first block (2000) and converts
	// the remaining 3000 at the standard rate.
	c := NewConverter(decimal.NewFromInt(500))
	trf := &domain.Tariff{
		TariffCode: "CODE10.1",
		IsActive:   true,
		Blocks: []*domain.TariffBlock{
			{BlockName: "Subsidised", MinUnits: 0, MaxUnits: int64Ptr(7), RatePerUnit: decimal.NewFromInt(250), BlockOrder: 1},
			{BlockName: "Standard", MinUnits: 8, MaxUnits: nil, RatePerUnit: decimal.NewFromFloat(775.7), BlockOrder: 2},
		},
	}

	units, err := c.AmountToUnits(trf, decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.InDelta(t, 11.867, units.InexactFloat64(), 0.001)
	assert.True(t, units.Round(0).Equal(decimal.NewFromInt(12)))
}

func TestUnitsToAmountInverse(t *testing.T) {
	c := NewConverter(decimal.NewFromInt(500))
	trf := twoBlockTariff()

	amounts := []decimal.Decimal{
		decimal.NewFromInt(100),
		decimal.NewFromInt(3750),
		decimal.NewFromInt(5000),
		decimal.NewFromInt(123456),
	}
	for _, amount := range amounts {
		units, err := c.AmountToUnits(trf, amount)
		require.NoError(t, err)

		back, err := c.UnitsToAmount(trf, units)
		require.NoError(t, err)
		assert.InDelta(t, amount.InexactFloat64(), back.InexactFloat64(), 0.01,
			"round trip for %s drifted", amount)
	}
}

func TestAmountToUnitsMonotonic(t *testing.T) {
	c := NewConverter(decimal.NewFromInt(500))
	trf := twoBlockTariff()

	prev := decimal.Zero
	for _, amount := range []int64{100, 1000, 3750, 4000, 10000, 100000} {
		units, err := c.AmountToUnits(trf, decimal.NewFromInt(amount))
		require.NoError(t, err)
		assert.True(t, units.GreaterThanOrEqual(prev),
			"units decreased at amount %d", amount)
		prev = units
	}
}

func TestCostBreakdown(t *testing.T) {
	c := NewConverter(decimal.NewFromInt(500))
	trf := twoBlockTariff()

	t.Run("spans both blocks", func(t *testing.T) {
		entries, err := c.CostBreakdown(trf, decimal.NewFromFloat(3750+775.7))
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "0-14", entries[0].BlockRange)
		assert.True(t, entries[0].Units.Equal(decimal.NewFromInt(15)))
		assert.True(t, entries[0].Cost.Equal(decimal.NewFromInt(3750)))

		assert.Equal(t, "15-inf", entries[1].BlockRange)
		assert.InDelta(t, 1, entries[1].Units.InexactFloat64(), 0.001)
		assert.InDelta(t, 775.7, entries[1].Cost.InexactFloat64(), 0.001)
	})

	t.Run("stops inside first block", func(t *testing.T) {
		entries, err := c.CostBreakdown(trf, decimal.NewFromInt(1000))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Units.Equal(decimal.NewFromInt(4)))
	})

	t.Run("no tariff means no breakdown", func(t *testing.T) {
		entries, err := c.CostBreakdown(nil, decimal.NewFromInt(1000))
		require.NoError(t, err)
		assert.Nil(t, entries)
	})
}

func TestValidateBlocks(t *testing.T) {
	rate := decimal.NewFromInt(250)

	tests := []struct {
		name    string
		blocks  []*domain.TariffBlock
		wantErr bool
	}{
		{
			name:   "valid two block tariff",
			blocks: twoBlockTariff().Blocks,
		},
		{
			name:    "empty",
			blocks:  nil,
			wantErr: true,
		},
		{
			name: "first block does not start at zero",
			blocks: []*domain.TariffBlock{
				{MinUnits: 1, MaxUnits: nil, RatePerUnit: rate, BlockOrder: 1},
			},
			wantErr: true,
		},
		{
			name: "gap between blocks",
			blocks: []*domain.TariffBlock{
				{MinUnits: 0, MaxUnits: int64Ptr(14), RatePerUnit: rate, BlockOrder: 1},
				{MinUnits: 20, MaxUnits: nil, RatePerUnit: rate, BlockOrder: 2},
			},
			wantErr: true,
		},
		{
			name: "overlapping blocks",
			blocks: []*domain.TariffBlock{
				{MinUnits: 0, MaxUnits: int64Ptr(14), RatePerUnit: rate, BlockOrder: 1},
				{MinUnits: 10, MaxUnits: nil, RatePerUnit: rate, BlockOrder: 2},
			},
			wantErr: true,
		},
		{
			name: "terminal block bounded",
			blocks: []*domain.TariffBlock{
				{MinUnits: 0, MaxUnits: int64Ptr(14), RatePerUnit: rate, BlockOrder: 1},
				{MinUnits: 15, MaxUnits: int64Ptr(100), RatePerUnit: rate, BlockOrder: 2},
			},
			wantErr: true,
		},
		{
			name: "unbounded block not last",
			blocks: []*domain.TariffBlock{
				{MinUnits: 0, MaxUnits: nil, RatePerUnit: rate, BlockOrder: 1},
				{MinUnits: 15, MaxUnits: nil, RatePerUnit: rate, BlockOrder: 2},
			},
			wantErr: true,
		},
		{
			name: "non-positive rate",
			blocks: []*domain.TariffBlock{
				{MinUnits: 0, MaxUnits: int64Ptr(14), RatePerUnit: decimal.Zero, BlockOrder: 1},
				{MinUnits: 15, MaxUnits: nil, RatePerUnit: rate, BlockOrder: 2},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBlocks(tt.blocks)
			if tt.wantErr {
				var be *customError.BusinessError
				require.ErrorAs(t, err, &be)
				assert.Equal(t, customError.ErrCodeConfiguration, be.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
