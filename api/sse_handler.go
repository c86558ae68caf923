package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tranvand/feedhub-BE/internal/event"
)

// streamNotifications establishes an SSE connection that pushes newly
// delivered notifications to the authenticated user in real time.
func (server *Server) streamNotifications(c *gin.Context) {
	userID := authenticatedUserID(c)
	topic := event.UserTopic(userID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	clientChan := make(chan event.Event)
	server.eventSender.Register(topic, clientChan)
	defer server.eventSender.Unregister(topic, clientChan)

	for {
		select {
		case ev := <-clientChan:
			data, _ := json.Marshal(ev.Data)
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, data)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
