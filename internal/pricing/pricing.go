package pricing

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidInput = errors.New("input pricing tidak valid")

// Settings adalah tarif global yang di-snapshot ke tiap order saat dibuat.
// Setelah order ada, perubahan settings tidak pernah mengubah harga order lama.
type Settings struct {
	FilamentCostPerGram  int64 `json:"filament_cost_per_gram"`
	PrintTimeCostPerHour int64 `json:"print_time_cost_per_hour"`
	MarkupPercentage     int64 `json:"markup_percentage"`
}

// DefaultSettings dipakai kalau baca settings dari DB gagal;
// lebih baik jalan dengan tarif default daripada blokir checkout.
var DefaultSettings = Settings{
	FilamentCostPerGram:  150,
	PrintTimeCostPerHour: 15000,
	MarkupPercentage:     30,
}

func (s Settings) Valid() bool {
	return s.FilamentCostPerGram >= 0 && s.PrintTimeCostPerHour >= 0 && s.MarkupPercentage >= 0
}

// Item adalah input minimum yang dibutuhkan kalkulator (hasil slicing).
type Item struct {
	Quantity            int
	FilamentWeightGrams float64
	PrintTimeMinutes    float64
}

// ItemPricing adalah breakdown harga per item, semua dalam rupiah utuh (int64).
type ItemPricing struct {
	FilamentTotalCost  int64 `json:"filament_total_cost"`
	PrintTimeTotalCost int64 `json:"print_time_total_cost"`
	BasePrice          int64 `json:"base_price"`
	MarkupAmount       int64 `json:"markup_amount"`
	SubtotalPerUnit    int64 `json:"subtotal_per_unit"`
	TotalPrice         int64 `json:"total_price"`
}

type Summary struct {
	Subtotal              int64    `json:"subtotal"`
	ShippingCost          int64    `json:"shipping_cost"`
	TotalAmount           int64    `json:"total_amount"`
	TotalWeightGrams      float64  `json:"total_weight_grams"`
	TotalPrintTimeMinutes float64  `json:"total_print_time_minutes"`
	AppliedSettings       Settings `json:"applied_settings"`
}

// Price menghitung breakdown per item + ringkasan order. Pure function:
// tanpa I/O, tanpa clock; input sama selalu menghasilkan output sama.
// Semua-atau-tidak: satu item invalid berarti tidak ada hasil sama sekali.
//
// Uang dihitung dalam rupiah utuh. Komponen per item dihitung di float64
// (berat/waktu dari slicer pecahan) lalu dibulatkan SEKALI per field;
// penjumlahan ke summary murni integer, jadi error pembulatan tidak
// menumpuk antar item.
func Price(items []Item, s Settings, shippingCost int64) ([]ItemPricing, Summary, error) {
	if len(items) == 0 {
		return nil, Summary{}, fmt.Errorf("%w: items kosong", ErrInvalidInput)
	}
	if !s.Valid() {
		return nil, Summary{}, fmt.Errorf("%w: settings negatif", ErrInvalidInput)
	}
	if shippingCost < 0 {
		return nil, Summary{}, fmt.Errorf("%w: shipping cost negatif", ErrInvalidInput)
	}

	priced := make([]ItemPricing, 0, len(items))
	sum := Summary{ShippingCost: shippingCost, AppliedSettings: s}

	for i, it := range items {
		if it.Quantity < 1 {
			return nil, Summary{}, fmt.Errorf("%w: item[%d] quantity < 1", ErrInvalidInput, i)
		}
		if it.FilamentWeightGrams < 0 || it.PrintTimeMinutes < 0 {
			return nil, Summary{}, fmt.Errorf("%w: item[%d] statistik negatif", ErrInvalidInput, i)
		}

		filament := roundIDR(it.FilamentWeightGrams * float64(s.FilamentCostPerGram))
		printTime := roundIDR(it.PrintTimeMinutes / 60 * float64(s.PrintTimeCostPerHour))
		base := filament + printTime
		markup := roundIDR(float64(base) * float64(s.MarkupPercentage) / 100)
		perUnit := base + markup
		total := perUnit * int64(it.Quantity)

		priced = append(priced, ItemPricing{
			FilamentTotalCost:  filament,
			PrintTimeTotalCost: printTime,
			BasePrice:          base,
			MarkupAmount:       markup,
			SubtotalPerUnit:    perUnit,
			TotalPrice:         total,
		})

		sum.Subtotal += total
		sum.TotalWeightGrams += it.FilamentWeightGrams * float64(it.Quantity)
		sum.TotalPrintTimeMinutes += it.PrintTimeMinutes * float64(it.Quantity)
	}

	sum.TotalAmount = sum.Subtotal + shippingCost
	return priced, sum, nil
}

func roundIDR(v float64) int64 { return int64(math.Round(v)) }
