package ports

// PubSubService is the outbound push-notification sink. Delivery is
// best-effort only: implementations must never make a settlement fail because
// a notification could not be delivered.
type PubSubService interface {
	// Publish delivers a message for a certain topic to all the subscribed
	// endpoints. The message is a JSON-encoded payload.
	Publish(topic string, message string) error
}
