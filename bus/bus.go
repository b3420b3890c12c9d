// Copyright (c) 2025 Eternadex Authors

// Package bus implements the in-memory event bus: one ephemeral pub/sub
// channel per order id. Events are delivered to current subscribers only;
// there is no replay, the order store is the durable record.
package bus

import (
	"github.com/eternadex/swapd/order"
	"github.com/eternadex/swapd/syncmap"
	"github.com/visvasity/topic"
)

type Bus struct {
	topicMap syncmap.Map[string, *topic.Topic[order.Event]]
}

func New() *Bus {
	return new(Bus)
}

func (b *Bus) channel(orderID string) *topic.Topic[order.Event] {
	if t, ok := b.topicMap.Load(orderID); ok {
		return t
	}
	t, _ := b.topicMap.LoadOrStore(orderID, topic.New[order.Event]())
	return t
}

// Publish sends an event to the order's channel. Per-channel delivery order
// is preserved for each subscriber. Publishing a terminal event retires the
// channel; late subscribers are served by the store snapshot instead.
func (b *Bus) Publish(orderID string, ev order.Event) {
	t := b.channel(orderID)
	t.Send(ev)
	if ev.Status().IsTerminal() {
		b.topicMap.Delete(orderID)
	}
}

// Subscribe opens a dedicated subscription on the order's channel. The caller
// owns the receiver and must Close it on every exit path.
func (b *Bus) Subscribe(orderID string) (*topic.Receiver[order.Event], error) {
	return topic.Subscribe(b.channel(orderID), 0, false /* includeRecent */)
}
