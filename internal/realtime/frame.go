package realtime

import (
	"encoding/json"
	"strings"
)

// frame is one inbound push message. Seq is a per-topic monotonic
// sequence number assigned by the messaging endpoint; the channel uses
// it to drop redeliveries and to detect gaps.
type frame struct {
	Topic string          `json:"topic"`
	Seq   uint64          `json:"seq"`
	Body  json.RawMessage `json:"body"`
}

// outbound is a client-to-server message: a subscription control frame
// or a payload sent to a publish destination.
type outbound struct {
	Type        string          `json:"type"`
	Topic       string          `json:"topic,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

const (
	outboundSubscribe   = "subscribe"
	outboundUnsubscribe = "unsubscribe"
	outboundSend        = "send"
)

// Topic naming conventions used by the portal backend.
const (
	chatTopicPrefix    = "ticket-chat/"
	chatSendPrefix     = "ticket-chat.sendMessage/"
	notificationPrefix = "notificacoes/"
)

// ChatTopic returns the subscription topic for a ticket thread.
func ChatTopic(ticketID string) string {
	return chatTopicPrefix + ticketID
}

// NotificationTopic returns the per-user notification topic.
func NotificationTopic(userID string) string {
	return notificationPrefix + userID
}

// publishDestination derives the outbound destination from a
// subscription topic key.
func publishDestination(topic string) string {
	if id, ok := strings.CutPrefix(topic, chatTopicPrefix); ok {
		return chatSendPrefix + id
	}
	return topic
}
