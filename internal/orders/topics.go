package orders

const (
	TopicOrderCreated   = "order.created"
	TopicPaymentSettled = "order.payment.settled"
	TopicPaymentFailed  = "order.payment.failed"
	TopicPaymentFlagged = "order.payment.flagged"
	TopicStatusChanged  = "order.status.changed"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
