package event

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type SSEServer struct {
	clients map[string]map[chan Event]bool
	events  chan Event
	mu      sync.Mutex
}

func NewSSEServer() EventSender {
	return &SSEServer{
		clients: make(map[string]map[chan Event]bool),
		events:  make(chan Event),
	}
}

// Register subscribes a client to a topic.
func (s *SSEServer) Register(topic string, client chan Event) {
	s.mu.Lock()
	if _, ok := s.clients[topic]; !ok {
		s.clients[topic] = make(map[chan Event]bool)
	}
	s.clients[topic][client] = true
	s.mu.Unlock()
	log.Debug().Msgf("New client registered to topic %s", topic)
}

// Unregister removes a client from a topic.
func (s *SSEServer) Unregister(topic string, client chan Event) {
	s.mu.Lock()
	if clients, ok := s.clients[topic]; ok {
		// The channel is not closed here: a broadcast goroutine may still
		// hold it. Pending sends time out instead.
		delete(clients, client)
		if len(clients) == 0 {
			delete(s.clients, topic)
		}
	}
	s.mu.Unlock()
	log.Debug().Msgf("Client unregistered from topic %s", topic)
}

// Broadcast sends an event to every client subscribed to its topic.
func (s *SSEServer) Broadcast(event Event) {
	s.events <- event
}

// Run processes the event stream. A slow client is skipped rather than
// blocking delivery to the rest of the topic.
func (s *SSEServer) Run() {
	for event := range s.events {
		s.mu.Lock()
		clients := make([]chan Event, 0, len(s.clients[event.Topic]))
		for client := range s.clients[event.Topic] {
			clients = append(clients, client)
		}
		s.mu.Unlock()

		var wg sync.WaitGroup
		for _, client := range clients {
			wg.Add(1)
			go func(c chan Event) {
				defer wg.Done()
				select {
				case c <- event:
				case <-time.After(time.Second):
					log.Warn().Str("topic", event.Topic).Msg("dropped event for slow client")
				}
			}(client)
		}
		wg.Wait()
	}
}
