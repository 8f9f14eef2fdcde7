package pricing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepo baca tarif global dari DB. Read-mostly; stale read tidak masalah
// karena harga selalu di-snapshot per order.
type SettingsRepo struct{ DB *pgxpool.Pool }

func (r *SettingsRepo) Current(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.DB.QueryRow(ctx, `
		SELECT filament_cost_per_gram, print_time_cost_per_hour, markup_percentage
		FROM pricing_settings WHERE id = 1`).
		Scan(&s.FilamentCostPerGram, &s.PrintTimeCostPerHour, &s.MarkupPercentage)
	if err != nil {
		return Settings{}, fmt.Errorf("baca pricing settings: %w", err)
	}
	return s, nil
}
