package orders

// OrderStatus adalah lifecycle order; string value dipakai apa adanya di API & DB.
type OrderStatus string

const (
	StatusUnpaid    OrderStatus = "unpaid"
	StatusInReview  OrderStatus = "in-review"
	StatusDiscuss   OrderStatus = "discuss"
	StatusPrinting  OrderStatus = "printing"
	StatusShipping  OrderStatus = "shipping"
	StatusDelivery  OrderStatus = "delivery"
	StatusDelivered OrderStatus = "delivered"
	StatusDone      OrderStatus = "done"
	StatusCanceled  OrderStatus = "canceled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Actor menandai siapa yang men-trigger transisi (dicatat di status history).
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorAdmin    Actor = "admin"
	ActorSystem   Actor = "system" // reconciliation engine
)

// validNext adalah satu-satunya sumber kebenaran transisi + siapa yang boleh.
// Status tidak pernah mundur; canceled hanya dari unpaid / in-review.
var validNext = map[OrderStatus]map[OrderStatus][]Actor{
	StatusUnpaid: {
		StatusInReview: {ActorSystem},
		StatusCanceled: {ActorCustomer, ActorAdmin, ActorSystem},
	},
	StatusInReview: {
		StatusDiscuss:  {ActorAdmin},
		StatusPrinting: {ActorAdmin},
		StatusCanceled: {ActorAdmin},
	},
	StatusDiscuss: {
		StatusPrinting: {ActorAdmin},
	},
	StatusPrinting: {
		StatusShipping: {ActorAdmin},
	},
	StatusShipping: {
		StatusDelivery: {ActorAdmin},
	},
	StatusDelivery: {
		StatusDelivered: {ActorAdmin},
	},
	StatusDelivered: {
		StatusDone: {ActorCustomer, ActorAdmin},
	},
	// terminal: done, canceled
	StatusDone:     {},
	StatusCanceled: {},
}

func ValidOrderStatus(s OrderStatus) bool {
	_, ok := validNext[s]
	return ok
}

// CanTransition cek apakah edge from->to ada dan actor diizinkan menjalankannya.
func CanTransition(from, to OrderStatus, by Actor) bool {
	for _, a := range validNext[from][to] {
		if a == by {
			return true
		}
	}
	return false
}

// Terminal: tidak ada edge keluar lagi.
func Terminal(s OrderStatus) bool { return len(validNext[s]) == 0 }

// TrackingVisible: trackingNumber baru berarti (dan boleh tampil) mulai shipping.
func TrackingVisible(s OrderStatus) bool {
	switch s {
	case StatusShipping, StatusDelivery, StatusDelivered, StatusDone:
		return true
	}
	return false
}

// paymentRank dipakai reconciliation untuk menolak event basi:
// notifikasi yang menurunkan rank tidak pernah ditulis (paid itu sticky,
// hanya refund yang boleh melewatinya).
var paymentRank = map[PaymentStatus]int{
	PaymentPending:  0,
	PaymentFailed:   1,
	PaymentPaid:     2,
	PaymentRefunded: 3,
}

func PaymentRank(p PaymentStatus) int { return paymentRank[p] }
