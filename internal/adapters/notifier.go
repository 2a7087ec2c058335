package adapters

import (
	"log"
	"sync"
)

// RecordEvent describes a completed mutation on the patient collection. The
// store layer never formats user-facing text; subscribers compose their own
// messages from the action and identifiers.
type RecordEvent struct {
	Action      string // "created", "updated", "deleted", "history_added", "lab_added"
	PatientID   string
	PatientName string
}

// EventHandler consumes one RecordEvent.
type EventHandler func(event RecordEvent)

// Notifier is the boundary the API layer publishes mutation events through.
type Notifier interface {
	Publish(event RecordEvent)
}

// InMemoryNotifier fans events out to a single consumer goroutine over a
// buffered channel. Publish never blocks a mutation: when the buffer is full
// the event is dropped with a log line, since notifications are transient by
// contract.
type InMemoryNotifier struct {
	events chan RecordEvent
	logger *log.Logger
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewInMemoryNotifier creates a notifier with a small event buffer.
func NewInMemoryNotifier(logger *log.Logger) *InMemoryNotifier {
	return &InMemoryNotifier{
		events: make(chan RecordEvent, 64),
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Publish enqueues an event for the consumer.
func (n *InMemoryNotifier) Publish(event RecordEvent) {
	select {
	case n.events <- event:
	default:
		n.logger.Printf("notification buffer full, dropping %s event for patient %s", event.Action, event.PatientID)
	}
}

// StartConsuming launches the consumer goroutine. Call Stop to drain and
// shut it down.
func (n *InMemoryNotifier) StartConsuming(handler EventHandler) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case event := <-n.events:
				handler(event)
			case <-n.stop:
				// Drain whatever was already queued before exiting.
				for {
					select {
					case event := <-n.events:
						handler(event)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop signals the consumer to drain and exit, then waits for it.
func (n *InMemoryNotifier) Stop() {
	n.once.Do(func() { close(n.stop) })
	n.wg.Wait()
}
