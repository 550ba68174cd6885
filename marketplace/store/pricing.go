package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

func (s *Store) InsertCompetitorPrice(ctx context.Context, cp *model.CompetitorPrice) error {
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.Date = model.Day(cp.Date)
	if _, err := s.db.NewInsert().Model(cp).Exec(ctx); err != nil {
		return fmt.Errorf("insert competitor price: %w", err)
	}
	return nil
}

// CompetitorAverages averages observed prices per tier over [from, to].
func (s *Store) CompetitorAverages(ctx context.Context, productID string, from, to time.Time) (map[model.CompetitorTier]decimal.Decimal, error) {
	var rows []*model.CompetitorPrice
	err := s.db.NewSelect().Model(&rows).
		Where("cp.product_id = ?", productID).
		Where("cp.date >= ?", model.Day(from)).
		Where("cp.date <= ?", model.Day(to)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select competitor prices: %w", err)
	}

	sums := map[model.CompetitorTier]decimal.Decimal{}
	counts := map[model.CompetitorTier]int64{}
	for _, r := range rows {
		sums[r.Tier] = sums[r.Tier].Add(r.Price)
		counts[r.Tier]++
	}
	out := make(map[model.CompetitorTier]decimal.Decimal, len(sums))
	for tier, sum := range sums {
		out[tier] = sum.Div(decimal.NewFromInt(counts[tier]))
	}
	return out, nil
}
