package notifications

import (
	"sync"
	"time"
)

type EventType string

const (
	EventLike     EventType = "like"
	EventUnlike   EventType = "unlike"
	EventFollow   EventType = "follow"
	EventUnfollow EventType = "unfollow"
)

type Event struct {
	Type        EventType `json:"type"`
	RecipientId string    `json:"recipientId"`
	ActorId     string    `json:"actorId"`
	PostId      string    `json:"postId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Publisher interface {
	Publish(event Event)
}

// Hub fans events out to the subscribers of their recipient.
type Hub struct {
	mu          sync.RWMutex
	nextId      uint64
	subscribers map[string]map[uint64]func(Event)
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[uint64]func(Event)),
	}
}

// Subscribe registers callback for events addressed to userId. The returned
// function removes it and is safe to call more than once.
func (h *Hub) Subscribe(userId string, callback func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextId++
	id := h.nextId
	if h.subscribers[userId] == nil {
		h.subscribers[userId] = make(map[uint64]func(Event))
	}
	h.subscribers[userId][id] = callback

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[userId], id)
			if len(h.subscribers[userId]) == 0 {
				delete(h.subscribers, userId)
			}
		})
	}
}

// Publish calls every subscriber of event.RecipientId synchronously.
// Callbacks must not block.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	callbacks := make([]func(Event), 0, len(h.subscribers[event.RecipientId]))
	for _, callback := range h.subscribers[event.RecipientId] {
		callbacks = append(callbacks, callback)
	}
	h.mu.RUnlock()

	for _, callback := range callbacks {
		callback(event)
	}
}

func (h *Hub) SubscriberCount(userId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userId])
}
