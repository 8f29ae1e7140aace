package report

// Publisher is the producing end of the progress stream. Publish blocks
// when the buffer is full, so a slow consumer suspends the scheduler
// instead of losing events; terminal events in particular are never
// dropped.
//
// Close must only be called once every producer has stopped publishing;
// the scheduler guarantees that by closing after its worker wait group
// drains.
type Publisher struct {
	events chan Event
}

// NewPublisher creates a publisher with the given buffer capacity.
func NewPublisher(buffer int) *Publisher {
	if buffer < 0 {
		buffer = 0
	}
	return &Publisher{events: make(chan Event, buffer)}
}

// Publish appends one event to the stream, blocking while the consumer
// lags behind.
func (p *Publisher) Publish(event Event) {
	p.events <- event
}

// Events exposes the consuming end of the stream.
func (p *Publisher) Events() <-chan Event {
	return p.events
}

// Close ends the stream.
func (p *Publisher) Close() {
	close(p.events)
}

// Consumer renders progress events. Implementations run on the single
// drain goroutine and need no internal locking for HandleEvent.
type Consumer interface {
	HandleEvent(Event)
}

// Drain feeds every event to the consumer until the stream closes, then
// releases consumers that hold resources.
func Drain(events <-chan Event, consumer Consumer) {
	for event := range events {
		consumer.HandleEvent(event)
	}
	if closer, ok := consumer.(interface{ Close() }); ok {
		closer.Close()
	}
}
