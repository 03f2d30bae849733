package broker

import "context"

type subscription[TTopic comparable, TPayload any] struct {
	topic   TTopic
	channel chan TPayload
}

type publication[TTopic comparable, TPayload any] struct {
	topic   TTopic
	payload TPayload
}

// Broker fans out payloads published on a topic to every current subscriber of that topic.
//
// Subscribers receive on a buffered channel. A subscriber that falls behind the buffer loses
// payloads instead of blocking the publisher, so a stalled websocket never stalls the game.
type Broker[TTopic comparable, TPayload any] struct {
	buffer        int
	publishCh     chan publication[TTopic, TPayload]
	subscribeCh   chan subscription[TTopic, TPayload]
	unsubscribeCh chan subscription[TTopic, TPayload]
	done          chan struct{}
}

// New creates a Broker whose subscriber channels hold up to buffer payloads.
// Call Start in a goroutine before publishing.
func New[TTopic comparable, TPayload any](buffer int) *Broker[TTopic, TPayload] {
	return &Broker[TTopic, TPayload]{
		buffer:        max(buffer, 1),
		publishCh:     make(chan publication[TTopic, TPayload]),
		subscribeCh:   make(chan subscription[TTopic, TPayload]),
		unsubscribeCh: make(chan subscription[TTopic, TPayload]),
		done:          make(chan struct{}),
	}
}

// Start handles publish and subscription requests until ctx is done. All subscriber channels are
// closed on return. It always returns nil so that it can be run in an errgroup.
func (b *Broker[TTopic, TPayload]) Start(ctx context.Context) error {
	subscribers := map[TTopic]map[chan TPayload]struct{}{}
	defer func() {
		for _, channels := range subscribers {
			for c := range channels {
				close(c)
			}
		}
		close(b.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return nil

		case sub := <-b.subscribeCh:
			channels := subscribers[sub.topic]
			if channels == nil {
				channels = map[chan TPayload]struct{}{}
				subscribers[sub.topic] = channels
			}
			channels[sub.channel] = struct{}{}

		case sub := <-b.unsubscribeCh:
			channels := subscribers[sub.topic]
			if _, ok := channels[sub.channel]; !ok {
				break
			}
			delete(channels, sub.channel)
			close(sub.channel)
			if len(channels) == 0 {
				delete(subscribers, sub.topic)
			}

		case pub := <-b.publishCh:
			for c := range subscribers[pub.topic] {
				select {
				case c <- pub.payload:
				default:
					// Slow subscriber, drop the payload.
				}
			}
		}
	}
}

// Subscribe registers a new subscriber for topic. The returned channel is closed after the
// returned cancel function is called or the broker stops.
func (b *Broker[TTopic, TPayload]) Subscribe(topic TTopic) (<-chan TPayload, func()) {
	sub := subscription[TTopic, TPayload]{topic: topic, channel: make(chan TPayload, b.buffer)}
	select {
	case b.subscribeCh <- sub:
	case <-b.done:
		close(sub.channel)
		return sub.channel, func() {}
	}
	cancel := func() {
		select {
		case b.unsubscribeCh <- sub:
		case <-b.done:
		}
	}
	return sub.channel, cancel
}

// Publish sends payload to all current subscribers of topic. It is a no-op after the broker stopped.
func (b *Broker[TTopic, TPayload]) Publish(topic TTopic, payload TPayload) {
	select {
	case b.publishCh <- publication[TTopic, TPayload]{topic: topic, payload: payload}:
	case <-b.done:
	}
}
