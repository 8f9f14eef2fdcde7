package redisx

import "time"

const (
	// Advisory lock reconciliation per order: lock:recon:{order_number} -> token
	KeyReconLock = "lock:recon:%s"

	// Dedup notifikasi webhook / event consumer: dedup:{service}:{id}
	KeyDedup = "dedup:%s:%s"

	// Cache status order: order_status:{order_id} -> {"status":"...","payment_status":"..."}
	KeyOrderStatus = "order_status:%s"
)

var (
	TTLReconLock   = 10 * time.Second
	TTLDedup       = 48 * time.Hour
	TTLStatusCache = 5 * time.Minute
)
