package reorder

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/shopspring/decimal"
)

// Params holds the numeric knobs of the restocking policy.
type Params struct {
	// SaleBonus is added to the target while an item is discounted.
	SaleBonus int
	// ReorderPointRatio is the share of the effective target that available
	// stock (on hand + on order) must fall to before a reorder triggers.
	ReorderPointRatio decimal.Decimal
	// StockoutFactor scales the target after an item is found depleted.
	StockoutFactor decimal.Decimal
}

// DefaultParams returns the standard policy: +20 on sale, reorder at 80%
// coverage, raise the target by 10% after a stockout.
func DefaultParams() Params {
	return Params{
		SaleBonus:         20,
		ReorderPointRatio: decimal.NewFromFloat(0.8),
		StockoutFactor:    decimal.NewFromFloat(1.10),
	}
}

// Decision is the policy output for one (item, warehouse) pair.
type Decision struct {
	Order domain.Order
	// Escalation is set when on-hand was zero. It is returned rather than
	// applied so the caller decides when to issue it.
	Escalation *domain.Escalation
}

// Policy evaluates the restocking rules for a single item location.
type Policy struct {
	params Params
}

// NewPolicy creates a policy with the given parameters.
func NewPolicy(params Params) *Policy {
	return &Policy{params: params}
}

// Decide computes the order for item at loc. A zero-quantity order means no
// action is needed.
func (p *Policy) Decide(ctx context.Context, today time.Time, item domain.Item, loc domain.WarehouseTarget, stock StockOracle, market MarketOracle) (Decision, error) {
	warehouse := loc.Warehouse
	if warehouse == "" {
		warehouse = domain.Home
	}
	decision := Decision{Order: domain.NewOrder(item, 0, warehouse)}

	onHand, err := stock.OnHand(ctx, item, warehouse)
	if err != nil {
		return Decision{}, fmt.Errorf("on-hand for %s@%s: %w", item.SKU, warehouse, err)
	}

	// 1. Stockout escalation, regardless of what follows
	if onHand == 0 {
		decision.Escalation = &domain.Escalation{
			SKU:       item.SKU,
			Warehouse: warehouse,
			From:      loc.Target,
			To:        p.escalatedTarget(loc.Target),
		}
	}

	// 2. Restricted items only reorder on the first of the month
	if item.Restricted && today.Day() != 1 {
		return decision, nil
	}

	onOrder, err := stock.OnOrder(ctx, item, warehouse)
	if err != nil {
		return Decision{}, fmt.Errorf("on-order for %s@%s: %w", item.SKU, warehouse, err)
	}

	onSale, err := market.OnSale(ctx, item)
	if err != nil {
		return Decision{}, fmt.Errorf("on-sale for %s: %w", item.SKU, err)
	}

	// 3. Effective target
	var effective int
	switch item.Kind {
	case domain.KindSeasonal:
		season, err := market.SeasonFor(ctx, today)
		if err != nil {
			return Decision{}, fmt.Errorf("season for %s: %w", today.Format(domain.DateLayout), err)
		}
		effective = p.seasonalTarget(loc.Target, season == item.Season, onSale)
	default:
		effective = p.plainTarget(loc.Target, onSale)
	}

	// 4-6. Deficit, reorder-point gate, lot rounding
	decision.Order.Quantity = p.quantity(effective, onHand, onOrder, item.LotSize)
	return decision, nil
}

func (p *Policy) plainTarget(target int, onSale bool) int {
	if onSale {
		return target + p.params.SaleBonus
	}
	return target
}

func (p *Policy) seasonalTarget(target int, inSeason, onSale bool) int {
	switch {
	case inSeason && onSale:
		return max(target+p.params.SaleBonus, 2*target)
	case inSeason:
		return 2 * target
	default:
		return p.plainTarget(target, onSale)
	}
}

func (p *Policy) quantity(effective, onHand, onOrder, lotSize int) int {
	available := onHand + onOrder
	deficit := effective - available

	reorderPoint := p.params.ReorderPointRatio.Mul(decimal.NewFromInt(int64(effective)))
	if decimal.NewFromInt(int64(available)).GreaterThan(reorderPoint) {
		return 0
	}
	if deficit <= 0 {
		return 0
	}
	return roundUpToLot(deficit, lotSize)
}

func (p *Policy) escalatedTarget(target int) int {
	return int(decimal.NewFromInt(int64(target)).Mul(p.params.StockoutFactor).Ceil().IntPart())
}

// roundUpToLot returns the smallest multiple of lot that covers qty.
func roundUpToLot(qty, lot int) int {
	if lot <= 1 {
		return qty
	}
	return ((qty + lot - 1) / lot) * lot
}
