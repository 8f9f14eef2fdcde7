package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contohSettings = Settings{
	FilamentCostPerGram:  100,
	PrintTimeCostPerHour: 10000,
	MarkupPercentage:     30,
}

func TestPrice_Breakdown(t *testing.T) {
	items := []Item{{Quantity: 2, FilamentWeightGrams: 50, PrintTimeMinutes: 120}}

	priced, sum, err := Price(items, contohSettings, 0)
	require.NoError(t, err)
	require.Len(t, priced, 1)

	p := priced[0]
	assert.Equal(t, int64(5000), p.FilamentTotalCost)
	assert.Equal(t, int64(20000), p.PrintTimeTotalCost)
	assert.Equal(t, int64(25000), p.BasePrice)
	assert.Equal(t, int64(7500), p.MarkupAmount)
	assert.Equal(t, int64(32500), p.SubtotalPerUnit)
	assert.Equal(t, int64(65000), p.TotalPrice)

	assert.Equal(t, int64(65000), sum.Subtotal)
	assert.Equal(t, int64(65000), sum.TotalAmount)
	assert.Equal(t, float64(100), sum.TotalWeightGrams)
	assert.Equal(t, float64(240), sum.TotalPrintTimeMinutes)
	assert.Equal(t, contohSettings, sum.AppliedSettings)
}

func TestPrice_ShippingMasukTotal(t *testing.T) {
	items := []Item{{Quantity: 1, FilamentWeightGrams: 10, PrintTimeMinutes: 30}}

	_, sum, err := Price(items, contohSettings, 15000)
	require.NoError(t, err)

	// 10g*100 + 0.5h*10000 = 6000; markup 30% = 1800 -> 7800
	assert.Equal(t, int64(7800), sum.Subtotal)
	assert.Equal(t, int64(15000), sum.ShippingCost)
	assert.Equal(t, int64(22800), sum.TotalAmount)
}

func TestPrice_Deterministik(t *testing.T) {
	items := []Item{
		{Quantity: 3, FilamentWeightGrams: 12.7, PrintTimeMinutes: 95.5},
		{Quantity: 1, FilamentWeightGrams: 240.21, PrintTimeMinutes: 1441.2},
	}

	p1, s1, err := Price(items, contohSettings, 9000)
	require.NoError(t, err)
	p2, s2, err := Price(items, contohSettings, 9000)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, s1, s2)
}

func TestPrice_MultiItemTanpaAkumulasiPembulatan(t *testing.T) {
	// tiap item dibulatkan per field, summary murni penjumlahan integer
	items := []Item{
		{Quantity: 1, FilamentWeightGrams: 1.4, PrintTimeMinutes: 1},
		{Quantity: 1, FilamentWeightGrams: 1.4, PrintTimeMinutes: 1},
	}
	priced, sum, err := Price(items, contohSettings, 0)
	require.NoError(t, err)

	var manual int64
	for _, p := range priced {
		manual += p.TotalPrice
	}
	assert.Equal(t, manual, sum.Subtotal)
}

func TestPrice_InputInvalid(t *testing.T) {
	cases := []struct {
		name     string
		items    []Item
		settings Settings
		shipping int64
	}{
		{"items kosong", nil, contohSettings, 0},
		{"quantity nol", []Item{{Quantity: 0}}, contohSettings, 0},
		{"berat negatif", []Item{{Quantity: 1, FilamentWeightGrams: -1}}, contohSettings, 0},
		{"waktu negatif", []Item{{Quantity: 1, PrintTimeMinutes: -5}}, contohSettings, 0},
		{"settings negatif", []Item{{Quantity: 1}}, Settings{FilamentCostPerGram: -1}, 0},
		{"shipping negatif", []Item{{Quantity: 1}}, contohSettings, -100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			priced, sum, err := Price(tc.items, tc.settings, tc.shipping)
			require.ErrorIs(t, err, ErrInvalidInput)
			// all-or-nothing: tidak ada hasil parsial
			assert.Nil(t, priced)
			assert.Equal(t, Summary{}, sum)
		})
	}
}
