package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"clinic_queue/internal/queue"
)

const (
	EventQueueUpdated   = "queue_updated"
	EventConsumerCalled = "consumer_called"
	EventSessionUpdated = "server_session_updated"
)

// ServerTopic carries the full queue view of one server.
func ServerTopic(serverID string) string { return "server:" + serverID }

// ConsumerTopic carries point-to-point notices for one consumer.
func ConsumerTopic(consumerID string) string { return "consumer:" + consumerID }

// Message is the JSON envelope sent to every subscriber.
type Message struct {
	EventType string      `json:"event_type"`
	ServerID  string      `json:"server_id"`
	Data      interface{} `json:"data"`
}

// Frame is one encoded message as delivered to a subscriber.
type Frame struct {
	Event   string
	Payload []byte
}

type envelope struct {
	topic string
	frame Frame
}

// Subscriber receives frames for its topics on Send. Send is closed when the
// subscriber is removed: on Unsubscribe, when it falls behind, or when the
// hub stops.
type Subscriber struct {
	Topics []string
	Send   chan Frame
}

// Hub fans messages out to subscribers grouped by topic. Only Run touches
// the subscriber map; everything else talks to it over channels.
type Hub struct {
	logger     logrus.FieldLogger
	buffer     int
	topics     map[string]map[*Subscriber]struct{}
	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan envelope
	done       chan struct{}

	dropped atomic.Int64
	evicted atomic.Int64
}

func NewHub(logger logrus.FieldLogger, subscriberBuffer int) *Hub {
	if subscriberBuffer <= 0 {
		subscriberBuffer = 32
	}
	return &Hub{
		logger:     logger,
		buffer:     subscriberBuffer,
		topics:     make(map[string]map[*Subscriber]struct{}),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		broadcast:  make(chan envelope, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			closed := map[*Subscriber]bool{}
			for _, subs := range h.topics {
				for sub := range subs {
					if !closed[sub] {
						closed[sub] = true
						close(sub.Send)
					}
				}
			}
			h.topics = map[string]map[*Subscriber]struct{}{}
			return
		case sub := <-h.register:
			for _, topic := range sub.Topics {
				if h.topics[topic] == nil {
					h.topics[topic] = make(map[*Subscriber]struct{})
				}
				h.topics[topic][sub] = struct{}{}
			}
		case sub := <-h.unregister:
			h.remove(sub)
		case env := <-h.broadcast:
			for sub := range h.topics[env.topic] {
				select {
				case sub.Send <- env.frame:
				default:
					// Slow subscriber: drop it rather than stall the fan-out.
					h.evicted.Add(1)
					h.logger.WithField("topics", sub.Topics).Warn("subscriber buffer full, disconnecting")
					h.remove(sub)
				}
			}
		}
	}
}

func (h *Hub) remove(sub *Subscriber) {
	found := false
	for _, topic := range sub.Topics {
		subs, ok := h.topics[topic]
		if !ok {
			continue
		}
		if _, ok := subs[sub]; !ok {
			continue
		}
		found = true
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	if found {
		close(sub.Send)
	}
}

// Subscribe registers a new subscriber on topics. It returns nil once the hub has stopped.
func (h *Hub) Subscribe(topics ...string) *Subscriber {
	sub := &Subscriber{Topics: topics, Send: make(chan Frame, h.buffer)}
	select {
	case h.register <- sub:
		return sub
	case <-h.done:
		return nil
	}
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish queues msg for every subscriber of topic without blocking. When
// the hub's backlog is full the message is dropped and counted; observers
// recover on the next state change, which carries the full view.
func (h *Hub) Publish(topic string, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).WithField("event", msg.EventType).Error("encode hub message")
		return
	}
	select {
	case h.broadcast <- envelope{topic: topic, frame: Frame{Event: msg.EventType, Payload: payload}}:
	default:
		h.dropped.Add(1)
		h.logger.WithField("topic", topic).Warn("hub backlog full, dropping message")
	}
}

// Dropped counts messages discarded because the hub backlog was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Evicted counts subscribers disconnected for falling behind.
func (h *Hub) Evicted() int64 { return h.evicted.Load() }

func (h *Hub) PublishServerView(view queue.ServerView) {
	h.Publish(ServerTopic(view.ServerID), Message{EventType: EventQueueUpdated, ServerID: view.ServerID, Data: view})
}

func (h *Hub) PublishCalled(notice queue.CalledNotice) {
	h.Publish(ConsumerTopic(notice.ConsumerID), Message{EventType: EventConsumerCalled, ServerID: notice.ServerID, Data: notice})
}

func (h *Hub) PublishSession(session queue.ServerSession) {
	h.Publish(ServerTopic(session.ServerID), Message{EventType: EventSessionUpdated, ServerID: session.ServerID, Data: session})
}
