package events

import (
	"sync"

	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/throttle"
)

const defaultQueueSize = 32

// Notifier forwards zone transitions to a Publisher from its own goroutine
// so a slow broker never delays sampling. When the queue is full the
// newest event is dropped.
type Notifier struct {
	pub    Publisher
	logger logger.Logger
	queue  chan Event
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewNotifier starts a notifier. queueSize below 1 selects the default.
func NewNotifier(pub Publisher, queueSize int, log logger.Logger) *Notifier {
	if queueSize < 1 {
		queueSize = defaultQueueSize
	}

	n := &Notifier{
		pub:    pub,
		logger: log,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	go n.run()

	return n
}

func (n *Notifier) run() {
	defer close(n.done)

	for event := range n.queue {
		if err := n.pub.Publish(event); err != nil {
			n.logger.Warn().
				Err(err).
				Str("event", string(event.Kind)).
				Stringer("to", event.To).
				Msg("Failed to publish zone transition")
		}
	}
}

// Observe queues an event for samples that changed zone.
func (n *Notifier) Observe(s throttle.Sample) {
	event, ok := FromSample(s)
	if !ok {
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}

	select {
	case n.queue <- event:
	default:
		n.logger.Warn().Stringer("to", event.To).Msg("Event queue full, dropping zone transition")
	}
}

// Close publishes queued events, then closes the publisher.
func (n *Notifier) Close() error {
	var err error

	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()

		<-n.done
		err = n.pub.Close()
	})

	return err
}
