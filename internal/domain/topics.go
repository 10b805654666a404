package domain

const (
	TopicThresholdCrossed      = "stock.threshold.crossed"
	TopicPurchaseOrderReceived = "purchase_order.received"
	TopicSaleRecorded          = "sale.recorded"
)

// Partition key = aggregate id (product/order/sale), supaya event 1 aggregate tetap urut.
func PartitionKey(id string) []byte { return []byte(id) }
