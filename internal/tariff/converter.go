package tariff

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ankunda/credit-engine/internal/domain"
	customError "github.com/ankunda/credit-engine/pkg/errors"
)

// Converter maps money to electricity units and back through a progressive
// block tariff. All conversions are pure; rounding policy belongs to the
// caller (headline disbursement units are whole-rounded, breakdown rows 2dp).
type Converter struct {
	defaultRate decimal.Decimal
}

// NewConverter builds a converter with the flat per-unit fallback rate used
// when a loan carries no tariff. The legacy default is 500 per unit.
func NewConverter(defaultRate decimal.Decimal) *Converter {
	return &Converter{defaultRate: defaultRate}
}

// AmountToUnits walks the tariff blocks in order, consuming whole blocks
// while the remaining amount covers their full cost and converting the rest
// at the current block's marginal rate. The terminal unbounded block absorbs
// any remainder. Without a tariff (or with a blockless one) the flat default
// rate applies.
func (c *Converter) AmountToUnits(t *domain.Tariff, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, customError.WrapInvalidAmount("amount must not be negative")
	}
	if amount.IsZero() {
		return decimal.Zero, nil
	}
	if t == nil || len(t.Blocks) == 0 {
		return amount.Div(c.defaultRate), nil
	}

	remaining := amount
	total := decimal.Zero
	for _, block := range t.BlocksSorted() {
		if remaining.Sign() <= 0 {
			break
		}
		capacity, bounded := block.Capacity()
		if !bounded {
			total = total.Add(remaining.Div(block.RatePerUnit))
			remaining = decimal.Zero
			break
		}
		capUnits := decimal.NewFromInt(capacity)
		blockCost := capUnits.Mul(block.RatePerUnit)
		if remaining.GreaterThanOrEqual(blockCost) {
			total = total.Add(capUnits)
			remaining = remaining.Sub(blockCost)
		} else {
			total = total.Add(remaining.Div(block.RatePerUnit))
			remaining = decimal.Zero
			break
		}
	}
	return total, nil
}

// UnitsToAmount is the inverse walk: each block sells min(remaining units,
// capacity) at its own rate, the terminal block takes whatever is left.
func (c *Converter) UnitsToAmount(t *domain.Tariff, units decimal.Decimal) (decimal.Decimal, error) {
	if units.IsNegative() {
		return decimal.Zero, customError.WrapInvalidAmount("units must not be negative")
	}
	if units.IsZero() {
		return decimal.Zero, nil
	}
	if t == nil || len(t.Blocks) == 0 {
		return units.Mul(c.defaultRate), nil
	}

	remaining := units
	total := decimal.Zero
	for _, block := range t.BlocksSorted() {
		if remaining.Sign() <= 0 {
			break
		}
		var unitsInBlock decimal.Decimal
		if capacity, bounded := block.Capacity(); bounded {
			capUnits := decimal.NewFromInt(capacity)
			unitsInBlock = decimal.Min(remaining, capUnits)
		} else {
			unitsInBlock = remaining
		}
		total = total.Add(unitsInBlock.Mul(block.RatePerUnit))
		remaining = remaining.Sub(unitsInBlock)
	}
	return total, nil
}

// CostBreakdown performs the same walk as AmountToUnits but reports the
// per-block detail for user-facing transparency. It never mutates balances.
func (c *Converter) CostBreakdown(t *domain.Tariff, amount decimal.Decimal) ([]*domain.CostBreakdownEntry, error) {
	if amount.IsNegative() {
		return nil, customError.WrapInvalidAmount("amount must not be negative")
	}
	if t == nil || len(t.Blocks) == 0 {
		return nil, nil
	}

	remaining := amount
	breakdown := make([]*domain.CostBreakdownEntry, 0, len(t.Blocks))
	for _, block := range t.BlocksSorted() {
		if remaining.Sign() <= 0 {
			break
		}
		var unitsFromBlock, costFromBlock decimal.Decimal
		blockRange := fmt.Sprintf("%d-inf", block.MinUnits)
		if capacity, bounded := block.Capacity(); bounded {
			blockRange = fmt.Sprintf("%d-%d", block.MinUnits, *block.MaxUnits)
			capUnits := decimal.NewFromInt(capacity)
			blockCost := capUnits.Mul(block.RatePerUnit)
			if remaining.GreaterThanOrEqual(blockCost) {
				unitsFromBlock = capUnits
				costFromBlock = blockCost
				remaining = remaining.Sub(blockCost)
			} else {
				unitsFromBlock = remaining.Div(block.RatePerUnit)
				costFromBlock = remaining
				remaining = decimal.Zero
			}
		} else {
			unitsFromBlock = remaining.Div(block.RatePerUnit)
			costFromBlock = remaining
			remaining = decimal.Zero
		}

		breakdown = append(breakdown, &domain.CostBreakdownEntry{
			BlockName:  block.BlockName,
			Units:      unitsFromBlock.Round(2),
			Rate:       block.RatePerUnit,
			Cost:       costFromBlock.Round(2),
			BlockRange: blockRange,
		})
	}
	return breakdown, nil
}

// ValidateBlocks checks the tiling invariant at tariff-activation time:
// blocks sorted by order must cover [0, inf) contiguously without overlap,
// with exactly one unbounded block in the terminal position. A tariff that
// fails validation must never become selectable.
func ValidateBlocks(blocks []*domain.TariffBlock) error {
	if len(blocks) == 0 {
		return customError.WrapConfiguration("tariff has no blocks")
	}

	sorted := (&domain.Tariff{Blocks: blocks}).BlocksSorted()
	if sorted[0].MinUnits != 0 {
		return customError.WrapConfiguration("first block must start at 0 units")
	}

	for i, block := range sorted {
		if !block.RatePerUnit.IsPositive() {
			return customError.WrapConfiguration(
				fmt.Sprintf("block %q has non-positive rate", block.BlockName))
		}
		last := i == len(sorted)-1
		if block.MaxUnits == nil {
			if !last {
				return customError.WrapConfiguration(
					fmt.Sprintf("unbounded block %q must be last", block.BlockName))
			}
			continue
		}
		if last {
			return customError.WrapConfiguration("terminal block must be unbounded")
		}
		if *block.MaxUnits < block.MinUnits {
			return customError.WrapConfiguration(
				fmt.Sprintf("block %q has max below min", block.BlockName))
		}
		next := sorted[i+1]
		if next.MinUnits != *block.MaxUnits+1 {
			return customError.WrapConfiguration(
				fmt.Sprintf("blocks %q and %q leave a gap or overlap", block.BlockName, next.BlockName))
		}
	}
	return nil
}
