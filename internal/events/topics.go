package events

const (
	TopicOrderFulfilled      = "order.fulfilled"
	TopicSubscriptionCreated = "subscription.created"
	TopicSubscriptionRenewed = "subscription.renewed"
	TopicSubscriptionExpired = "subscription.expired-transition"
)

// Partition key = subscription/order id so all events for one aggregate keep
// their order.
func PartitionKey(id string) []byte { return []byte(id) }
