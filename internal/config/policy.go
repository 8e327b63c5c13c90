package config

import (
	"fmt"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/shopspring/decimal"
)

// ReorderParams converts the policy section into planner parameters.
func (p PolicyConfig) ReorderParams() (reorder.Params, error) {
	params := reorder.DefaultParams()
	params.SaleBonus = p.SaleBonus

	if p.ReorderPointRatio != "" {
		ratio, err := decimal.NewFromString(p.ReorderPointRatio)
		if err != nil {
			return reorder.Params{}, fmt.Errorf("invalid reorder point ratio %q: %w", p.ReorderPointRatio, err)
		}
		if ratio.IsNegative() || ratio.GreaterThan(decimal.NewFromInt(1)) {
			return reorder.Params{}, fmt.Errorf("reorder point ratio %s must be within [0, 1]", ratio)
		}
		params.ReorderPointRatio = ratio
	}

	if p.StockoutFactor != "" {
		factor, err := decimal.NewFromString(p.StockoutFactor)
		if err != nil {
			return reorder.Params{}, fmt.Errorf("invalid stockout factor %q: %w", p.StockoutFactor, err)
		}
		if factor.LessThan(decimal.NewFromInt(1)) {
			return reorder.Params{}, fmt.Errorf("stockout factor %s must be at least 1", factor)
		}
		params.StockoutFactor = factor
	}

	if params.SaleBonus < 0 {
		return reorder.Params{}, fmt.Errorf("sale bonus %d must not be negative", params.SaleBonus)
	}
	return params, nil
}
