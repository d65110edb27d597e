package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	EventRentCreated     = "rent_created"
	EventRentReturned    = "rent_returned"
	EventCustomerDeleted = "customer_deleted"
	EventCartCancelled   = "cart_cancelled"
)

// RentEventPayload is the rental snapshot carried by rent_created and rent_returned.
type RentEventPayload struct {
	RentalID         int64     `json:"rental_id"`
	IssuedIdentifier string    `json:"issued_identifier"`
	Status           string    `json:"status"`
	CustomerID       int64     `json:"customer_id,omitempty"`
	EmployerID       int64     `json:"employer_id,omitempty"`
	TotalNetPrice    int64     `json:"total_net_price"`
	TotalGrossPrice  int64     `json:"total_gross_price"`
	LineCount        int       `json:"line_count"`
	ReturnIdentifier string    `json:"return_identifier,omitempty"`
	At               time.Time `json:"at"`
}

type CustomerDeletedPayload struct {
	CustomerID       int64   `json:"customer_id"`
	DeletedRentalIDs []int64 `json:"deleted_rental_ids,omitempty"`
	DetachedRentals  int     `json:"detached_rentals"`
	ReleasedUnits    int     `json:"released_units"`
	DeletedBy        int64   `json:"deleted_by"`
}

type CartEventPayload struct {
	SessionID  string `json:"session_id"`
	CustomerID int64  `json:"customer_id"`
	LineCount  int    `json:"line_count"`
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs every handler of the event type synchronously. All handlers run even when
// some fail; their errors are joined.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event. A nil bus drops the event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
}
