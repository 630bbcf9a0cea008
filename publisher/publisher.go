package publisher

import (
	"sync"

	"github.com/TEENet-io/htlc-go/htlc"
)

type observer struct {
	ch    chan *htlc.Event
	kinds map[htlc.EventKind]bool // nil for all kinds
}

// PublisherService is a concurrent-safe htlc.EventSink that forwards events
// to the channels of registered observers.
// Please "Register" observers before events are emitted.
type PublisherService struct {
	observers []observer
	mu        sync.Mutex
}

var _ htlc.EventSink = (*PublisherService)(nil)

// NewPublisherService creates a new PublisherService
// Currently the observers are empty.
// Add some observers via register.
func NewPublisherService() *PublisherService {
	return &PublisherService{
		observers: make([]observer, 0),
	}
}

// RegisterObserver registers ch for the given event kinds, or for every kind
// if none is given.
func (m *PublisherService) RegisterObserver(ch chan *htlc.Event, kinds ...htlc.EventKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obs := observer{ch: ch}
	if len(kinds) > 0 {
		obs.kinds = make(map[htlc.EventKind]bool, len(kinds))
		for _, k := range kinds {
			obs.kinds[k] = true
		}
	}
	m.observers = append(m.observers, obs)
}

// Emit notifies the observers. It never blocks: a full channel receives the
// event from a separate goroutine.
func (m *PublisherService) Emit(ev *htlc.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, obs := range m.observers {
		if obs.kinds != nil && !obs.kinds[ev.Kind] {
			continue
		}
		cp := ev.Clone()
		select {
		case obs.ch <- cp:
		default:
			// Handle the case where the observer's channel is full
			go func(ch chan *htlc.Event) {
				ch <- cp
			}(obs.ch)
		}
	}
}
