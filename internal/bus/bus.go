// Package bus implements the core's pub/sub event bus. Services never call
// each other directly; they publish typed ServiceEvent values and any
// interested service subscribes a handler. This mirrors the teacher's
// pattern of fanning incoming messages out to multiple channels
// (apps/appcore.AppCore.HandleMessagesUntilEOF sends each message to every
// channel in its Channels slice) generalised from a single message type to
// a small typed event enum.
package bus

import "sync"

// ServiceIdentifier names the originator of a ServiceEvent.
type ServiceIdentifier int

// The fixed set of event originators known to the core. Sensor-specific
// services are listed even though their behaviour lives outside the core
// (see SPEC_FULL.md §1) because the core reacts to events they publish.
const (
	ServiceGNSS ServiceIdentifier = iota
	ServiceArgosTX
	ServiceArgosRX
	ServiceUWDetect
	ServicePH
	ServicePressure
	ServiceSeaTemp
	ServiceALS
	ServiceCDT
	ServiceAXL
)

func (s ServiceIdentifier) String() string {
	switch s {
	case ServiceGNSS:
		return "GNSS"
	case ServiceArgosTX:
		return "ARGOS_TX"
	case ServiceArgosRX:
		return "ARGOS_RX"
	case ServiceUWDetect:
		return "UW_DETECT"
	case ServicePH:
		return "PH"
	case ServicePressure:
		return "PRESSURE"
	case ServiceSeaTemp:
		return "SEA_TEMP"
	case ServiceALS:
		return "ALS"
	case ServiceCDT:
		return "CDT"
	case ServiceAXL:
		return "AXL"
	default:
		return "UNKNOWN"
	}
}

// EventType is the kind of a ServiceEvent.
type EventType int

const (
	// EventActive indicates the originating service has become active.
	EventActive EventType = iota
	// EventInactive indicates the originating service has gone idle.
	EventInactive
	// EventLogUpdated carries new data (a GPS fix, an underwater flag, a
	// sensor reading) in the event's Data field.
	EventLogUpdated
)

// ServiceEvent is the single message type carried by the bus.
type ServiceEvent struct {
	Source       ServiceIdentifier
	Type         EventType
	Data         interface{}
	OriginatorID uint32
}

// Handler reacts to a ServiceEvent. Handlers must not block - the bus
// delivers synchronously on the scheduler thread (see SPEC_FULL.md §5).
type Handler func(ServiceEvent)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is the in-process pub/sub event bus. The zero value is an empty,
// ready-to-use bus; New returns one.
type Bus struct {
	mutex     sync.Mutex
	nextID    uint64
	listeners []subscription
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers handler and returns a token that Unsubscribe accepts.
// A handler that calls Subscribe again from inside its own callback only
// starts receiving events published after the current Publish call returns,
// since Publish iterates over a snapshot taken at its start.
func (b *Bus) Subscribe(handler Handler) uint64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a handler previously registered with Subscribe. It is
// idempotent - unsubscribing an unknown or already-removed token is a no-op.
func (b *Bus) Unsubscribe(id uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for i, s := range b.listeners {
		if s.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every handler subscribed at the time Publish is
// called, in subscription order (FIFO).
func (b *Bus) Publish(e ServiceEvent) {
	b.mutex.Lock()
	snapshot := make([]subscription, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mutex.Unlock()

	for _, s := range snapshot {
		s.handler(e)
	}
}
