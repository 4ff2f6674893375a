package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var delivered []string
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		delivered = append(delivered, "first:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		delivered = append(delivered, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketDeleted, func(ctx context.Context, e Event) error {
		t.Error("handler for another event type must not fire")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t-1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(delivered) != 2 || delivered[0] != "first:t-1" || delivered[1] != "second:t-1" {
		t.Fatalf("unexpected delivery %v", delivered)
	}
}

func TestDispatcherIgnoresHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()

	fired := false
	d.Subscribe(EventTicketClaimed, func(ctx context.Context, e Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventTicketClaimed, func(ctx context.Context, e Event) error {
		fired = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketClaimed, TicketID: "t-1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !fired {
		t.Fatal("later handlers must still run after an error")
	}
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventTicketAssigned}); err != nil {
		t.Fatalf("Publish without subscribers: %v", err)
	}
}
