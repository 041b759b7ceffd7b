package service

// Event names pushed to connected dashboards.
const (
	EventPurchaseApproved  = "purchase.approved"
	EventInventoryImported = "inventory.imported"
)

// EventPublisher pushes live notifications after a change has committed.
type EventPublisher interface {
	Publish(event string, data map[string]interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, map[string]interface{}) {}
