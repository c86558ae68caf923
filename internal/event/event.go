package event

// Event is a live update pushed to connected clients.
type Event struct {
	Topic string      // e.g. "user:abc"
	Type  string      // e.g. notification_created
	Data  interface{} // event data, depends on the type
}

const (
	EventTypeNotificationCreated = "notification_created"
)

// UserTopic is the per-user stream topic for inbox updates.
func UserTopic(userID string) string {
	return "user:" + userID
}

// EventSender is the interface for the server pushing events to clients.
type EventSender interface {
	Register(topic string, client chan Event)
	Unregister(topic string, client chan Event)
	Broadcast(event Event)
	Run()
}
