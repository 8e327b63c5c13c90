package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
)

// PromotionSource answers whether a SKU is currently discounted.
type PromotionSource interface {
	IsOnSale(ctx context.Context, sku string) (bool, error)
}

// StaticPromotions is a fixed set of discounted SKUs.
type StaticPromotions map[string]struct{}

// NewStaticPromotions builds a set from SKU lists; entries may be comma separated.
func NewStaticPromotions(skus ...string) StaticPromotions {
	set := make(StaticPromotions)
	for _, entry := range skus {
		for _, sku := range strings.Split(entry, ",") {
			sku = strings.TrimSpace(sku)
			if sku != "" {
				set[sku] = struct{}{}
			}
		}
	}
	return set
}

func (s StaticPromotions) IsOnSale(ctx context.Context, sku string) (bool, error) {
	_, ok := s[sku]
	return ok, nil
}

// Oracle combines a calendar and a promotion source into a reorder.MarketOracle.
type Oracle struct {
	calendar   Calendar
	promotions PromotionSource
}

func NewOracle(calendar Calendar, promotions PromotionSource) *Oracle {
	if promotions == nil {
		promotions = StaticPromotions{}
	}
	return &Oracle{calendar: calendar, promotions: promotions}
}

func (o *Oracle) OnSale(ctx context.Context, item domain.Item) (bool, error) {
	onSale, err := o.promotions.IsOnSale(ctx, item.SKU)
	if err != nil {
		return false, fmt.Errorf("promotion lookup for %s: %w", item.SKU, err)
	}
	return onSale, nil
}

func (o *Oracle) SeasonFor(ctx context.Context, date time.Time) (domain.Season, error) {
	return o.calendar.SeasonFor(date), nil
}

var _ reorder.MarketOracle = (*Oracle)(nil)
