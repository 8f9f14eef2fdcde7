package orders

import (
	"time"

	"github.com/rifqiarief/cetak3d-backend/internal/pricing"
)

// PrintConfig adalah parameter cetak yang dipilih user untuk satu file.
type PrintConfig struct {
	Material      string  `json:"material"`
	LayerHeightMm float64 `json:"layer_height_mm"`
	InfillPercent int     `json:"infill_percent"`
	WallCount     int     `json:"wall_count"`
}

// PrintStats datang dari hasil slicing (eksternal), bukan dihitung di sini.
type PrintStats struct {
	PrintTimeMinutes    float64 `json:"print_time_minutes"`
	FilamentWeightGrams float64 `json:"filament_weight_grams"`
}

// PrintItem immutable setelah order dibuat.
type PrintItem struct {
	FileRef       string      `json:"file_ref"`
	FileName      string      `json:"file_name"`
	FileSizeBytes int64       `json:"file_size_bytes"`
	Quantity      int         `json:"quantity"`
	Configuration PrintConfig `json:"configuration"`
	Statistics    PrintStats  `json:"statistics"`
}

// OrderItem = item + breakdown harga yang sudah dibekukan saat create.
type OrderItem struct {
	PrintItem
	Pricing pricing.ItemPricing `json:"pricing"`
}

type ShippingDetails struct {
	RecipientName  string `json:"recipient_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
	AddressLine    string `json:"address_line"`
	City           string `json:"city"`
	Province       string `json:"province"`
	PostalCode     string `json:"postal_code"`
	Courier        string `json:"courier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// PaymentInfo menyimpan jejak transaksi gateway yang aktif untuk order ini.
// Satu order maksimal satu transaksi aktif; re-init payment melakukan
// reuse token yang masih berlaku atau menerbitkan yang baru (supersede).
type PaymentInfo struct {
	PaymentMethod  string     `json:"payment_method,omitempty"` // bank_transfer | credit_card | e_wallet
	TransactionID  string     `json:"transaction_id,omitempty"`
	GatewayOrderID string     `json:"gateway_order_id,omitempty"` // = order_number
	SnapToken      string     `json:"snap_token,omitempty"`
	PaymentURL     string     `json:"payment_url,omitempty"`
	PaymentExpiry  *time.Time `json:"payment_expiry,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

// StatusChange adalah entry status history; append-only, tidak pernah diubah.
type StatusChange struct {
	Status    OrderStatus `json:"status"`
	ChangedAt time.Time   `json:"changed_at"`
	ChangedBy Actor       `json:"changed_by"`
}

type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	UserID        string          `json:"user_id"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Items         []OrderItem     `json:"items"`
	Summary       pricing.Summary `json:"summary"`
	Shipping      ShippingDetails `json:"shipping"`
	PaymentInfo   PaymentInfo     `json:"payment_info"`
	StatusHistory []StatusChange  `json:"status_history"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// View menyembunyikan tracking number selama belum relevan
// (baru tampil mulai status shipping).
func (o *Order) View() *Order {
	if TrackingVisible(o.Status) {
		return o
	}
	v := *o
	v.Shipping.TrackingNumber = ""
	return &v
}
