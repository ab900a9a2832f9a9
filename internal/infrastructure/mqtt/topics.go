package mqtt

import "fmt"

// Topic layout. Everything audioctl publishes lives under one root so
// brokers shared with other services stay tidy.
const (
	// topicRoot prefixes every audioctl topic.
	topicRoot = "audioctl"

	// TopicSystemStatus carries retained online/offline announcements.
	TopicSystemStatus = topicRoot + "/system/status"

	// topicEvents prefixes domain event topics.
	topicEvents = topicRoot + "/events"
)

// EventTopic returns the topic for a domain event type, e.g.
// audioctl/events/bluetooth.paired.
func EventTopic(event string) string {
	return fmt.Sprintf("%s/%s", topicEvents, event)
}
