package events

// Topic constants for domain events emitted by the pricing engine.
const (
	TopicCartUpdated = "cart.updated"
	TopicCartQuoted  = "cart.quoted"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicCartUpdated,
		TopicCartQuoted,
	}
}
